package mets

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/transform"
)

// Options are the export settings a traversal runs with.
type Options struct {
	OutputPath          string
	AllowMissingURNNBN  bool
	AllowMissingStreams bool
}

// Context holds every element resolved by one traversal. A Context must not
// be reused for another traversal; create a new one with NewContext.
type Context struct {
	storage   fedora.Storage
	opts      Options
	elements  map[string]*Element
	order     []string
	seq       map[string]int
	referrers map[string][]string
	packageID string
}

// NewContext starts a traversal over storage.
func NewContext(storage fedora.Storage, opts Options) *Context {
	return &Context{
		storage:   storage,
		opts:      opts,
		elements:  map[string]*Element{},
		seq:       map[string]int{},
		referrers: map[string][]string{},
		packageID: uuid.NewString(),
	}
}

func (c *Context) Storage() fedora.Storage { return c.storage }
func (c *Context) Options() Options        { return c.opts }

// PackageID identifies the package produced from this traversal.
func (c *Context) PackageID() string { return c.packageID }

// Element returns a resolved element.
func (c *Context) Element(pid string) (*Element, bool) {
	e, ok := c.elements[pid]
	return e, ok
}

// Elements lists the resolved elements in resolution order.
func (c *Context) Elements() []*Element {
	out := make([]*Element, 0, len(c.order))
	for _, pid := range c.order {
		out = append(out, c.elements[pid])
	}
	return out
}

// NextSeq returns the next 1-based sequence number of a file group.
func (c *Context) NextSeq(group string) int {
	c.seq[group]++
	return c.seq[group]
}

// Element is one node of the structural tree. Links to other nodes are PIDs
// looked up in the owning Context.
type Element struct {
	PID         string
	Model       string
	Type        ElementType
	Label       string
	ParentPID   string
	Children    []string
	Mods        []byte
	DC          []byte
	Datastreams []fedora.DatastreamProfile
	Object      fedora.RepositoryObject
	FOXML       []byte

	ctx      *Context
	resolved bool
}

// Context returns the owning traversal.
func (e *Element) Context() *Context { return e.ctx }

// Parent returns the parent element or nil at the root.
func (e *Element) Parent() *Element {
	if e.ParentPID == "" {
		return nil
	}
	p, _ := e.ctx.Element(e.ParentPID)
	return p
}

// ChildElements returns the resolved children in member order.
func (e *Element) ChildElements() []*Element {
	out := make([]*Element, 0, len(e.Children))
	for _, pid := range e.Children {
		if c, ok := e.ctx.Element(pid); ok && c.ParentPID == e.PID {
			out = append(out, c)
		}
	}
	return out
}

// Resolved reports whether the children were traversed.
func (e *Element) Resolved() bool { return e.resolved }

// Depth is 0 for the root.
func (e *Element) Depth() int {
	d := 0
	for p := e.Parent(); p != nil && d <= len(e.ctx.elements); p = p.Parent() {
		d++
	}
	return d
}

// Root returns the topmost ancestor.
func (e *Element) Root() *Element {
	root := e
	for i := 0; i <= len(e.ctx.elements); i++ {
		p := root.Parent()
		if p == nil {
			break
		}
		root = p
	}
	return root
}

// Walk visits e and its resolved descendants depth first.
func (e *Element) Walk(fn func(*Element) error) error {
	if err := fn(e); err != nil {
		return err
	}
	for _, c := range e.ChildElements() {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// HasStream reports whether the element has an active datastream.
func (e *Element) HasStream(dsID string) bool {
	_, ok := fedora.FindProfile(e.Datastreams, dsID)
	return ok
}

// Stream reads a datastream of the element.
func (e *Element) Stream(ctx context.Context, dsID string) ([]byte, fedora.DatastreamProfile, error) {
	p, ok := fedora.FindProfile(e.Datastreams, dsID)
	if !ok {
		return nil, p, exception.NewNotFoundError(e.PID, dsID)
	}
	ed := e.Object.Editor(p)
	data, err := ed.Read(ctx)
	if err != nil {
		return nil, p, err
	}
	return data, ed.Profile(), nil
}

// ParsedMods parses the descriptive metadata; an element without MODS
// yields an empty record.
func (e *Element) ParsedMods() (*transform.Mods, error) {
	if len(e.Mods) == 0 {
		return &transform.Mods{}, nil
	}
	m, err := transform.ParseMods(e.Mods)
	if err != nil {
		return nil, exception.NewMetsExportError(e.PID, "invalid BIBLIO_MODS", err)
	}
	return m, nil
}

// GetElement resolves pid below parentPID (empty for a root). With
// hierarchy the members are resolved recursively in RELS-EXT order.
// An object shared by several parents is resolved once and stays below the
// parent that reached it first. Reaching an object on its own ancestor path
// is reported as a loop.
func GetElement(ctx context.Context, pid, parentPID string, mctx *Context, hierarchy bool) (*Element, error) {
	e, seen := mctx.elements[pid]
	if seen {
		if mctx.onPath(pid, parentPID) {
			return nil, exception.NewMetsExportError(pid, fmt.Sprintf("loop detected: %s is its own ancestor", pid), nil)
		}
		if !hierarchy || e.resolved {
			return e, nil
		}
	} else {
		loaded, err := load(ctx, pid, mctx)
		if err != nil {
			return nil, err
		}
		e = loaded
		e.ParentPID = parentPID
		mctx.elements[pid] = e
		mctx.order = append(mctx.order, pid)
	}
	if !hierarchy {
		return e, nil
	}
	e.resolved = true
	for _, child := range e.Children {
		if _, err := GetElement(ctx, child, pid, mctx, true); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// parentsOf returns the referrers of pid. Results are kept for the lifetime of
// the traversal since a local store answers by scanning every object.
func (c *Context) parentsOf(ctx context.Context, pid string) ([]string, error) {
	if refs, ok := c.referrers[pid]; ok {
		return refs, nil
	}
	refs, err := c.storage.Referrers(ctx, pid)
	if err != nil {
		return nil, err
	}
	c.referrers[pid] = refs
	return refs, nil
}

// onPath reports whether pid is from or one of its ancestors.
func (c *Context) onPath(pid, from string) bool {
	for i := 0; from != "" && i <= len(c.elements); i++ {
		if from == pid {
			return true
		}
		e, ok := c.elements[from]
		if !ok {
			return false
		}
		from = e.ParentPID
	}
	return false
}

// GetElementWithAncestors resolves pid like GetElement and also loads the
// chain of its ancestors (found through referrers) without their other
// children. The top ancestor becomes the root of the context.
func GetElementWithAncestors(ctx context.Context, pid string, mctx *Context, hierarchy bool) (*Element, error) {
	var chain []string
	seen := map[string]bool{pid: true}
	current := pid
	for {
		refs, err := mctx.parentsOf(ctx, current)
		if err != nil {
			return nil, exception.NewMetsExportError(current, "cannot find parent", err)
		}
		if len(refs) == 0 {
			break
		}
		parent := refs[0]
		if seen[parent] {
			return nil, exception.NewMetsExportError(parent, "loop detected in parent chain", nil)
		}
		seen[parent] = true
		chain = append([]string{parent}, chain...)
		current = parent
	}
	parentPID := ""
	for _, ancestor := range chain {
		if _, err := GetElement(ctx, ancestor, parentPID, mctx, false); err != nil {
			return nil, err
		}
		parentPID = ancestor
	}
	return GetElement(ctx, pid, parentPID, mctx, hierarchy)
}

func load(ctx context.Context, pid string, mctx *Context) (*Element, error) {
	obj, err := mctx.storage.Find(ctx, pid)
	if err != nil {
		return nil, exception.NewMetsExportError(pid, "unknown PID "+pid, err)
	}
	raw, err := obj.FOXML(ctx)
	if err != nil {
		return nil, exception.NewMetsExportError(pid, "unreadable FOXML", err)
	}
	doc, err := fedora.ParseFOXML(raw)
	if err != nil {
		return nil, exception.NewMetsExportError(pid, "unreadable FOXML", err)
	}
	e := &Element{
		PID:         pid,
		Label:       doc.Label(),
		Datastreams: doc.Profiles(),
		Object:      obj,
		FOXML:       raw,
		ctx:         mctx,
	}
	relsData, err := inlineOrRead(ctx, obj, doc, fedora.RelsExt)
	if err != nil {
		return nil, exception.NewMetsExportError(pid, "unreadable RELS-EXT", err)
	}
	rels, err := fedora.ParseRelations(pid, relsData)
	if err != nil {
		return nil, exception.NewMetsExportError(pid, "unreadable RELS-EXT", err)
	}
	e.Model = rels.Model()
	if e.Model == "" {
		return nil, exception.NewMetsExportError(pid, "object has no model", nil)
	}
	e.Type = TypeOf(e.Model)
	e.Children = rels.Members()
	if e.Mods, err = inlineOrRead(ctx, obj, doc, fedora.BiblioMods); err != nil {
		return nil, exception.NewMetsExportError(pid, "unreadable BIBLIO_MODS", err)
	}
	if e.DC, err = inlineOrRead(ctx, obj, doc, fedora.DC); err != nil {
		return nil, exception.NewMetsExportError(pid, "unreadable DC", err)
	}
	return e, nil
}

// inlineOrRead returns content from FOXML when it is inline and reads it
// through the editor otherwise. A missing stream yields nil.
func inlineOrRead(ctx context.Context, obj fedora.RepositoryObject, doc *fedora.DigitalObject, dsID string) ([]byte, error) {
	ds := doc.Datastream(dsID)
	if ds == nil || !ds.Active() || ds.Latest() == nil {
		return nil, nil
	}
	data, ok, err := ds.Latest().InlineContent()
	if err != nil {
		return nil, err
	}
	if ok {
		return data, nil
	}
	return obj.Editor(ds.Profile()).Read(ctx)
}

// FindEnclosingObject returns the nearest ancestor of e (excluding e) whose
// type is one of types, or nil when the root is reached.
func FindEnclosingObject(e *Element, types ...ElementType) *Element {
	limit := len(e.ctx.elements)
	for p, steps := e.Parent(), 0; p != nil && steps <= limit; p, steps = p.Parent(), steps+1 {
		for _, t := range types {
			if p.Type == t {
				return p
			}
		}
	}
	return nil
}
