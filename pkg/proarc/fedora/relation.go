package fedora

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

// RDF vocabularies used in RELS-EXT.
const (
	RdfNS       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	ModelNS     = "info:fedora/fedora-system:def/model#"
	RelsExtNS   = "info:fedora/fedora-system:def/relations-external#"
	KrameriusNS = "http://www.nsdl.org/ontologies/relationships#"
	ProArcNS    = "http://proarc.lib.cas.cz/relations#"
	OaiNS       = "http://www.openarchives.org/OAI/2.0/"

	RelsExtFormatURI = "info:fedora/fedora-system:FedoraRELSExt-1.0"
	fedoraURIPrefix  = "info:fedora/"
)

var knownPrefixes = map[string]string{
	ModelNS:     "fedora-model",
	RelsExtNS:   "fedora-rels-ext",
	KrameriusNS: "kramerius",
	ProArcNS:    "proarc-rels",
	OaiNS:       "oai",
}

// Relation is one statement about the described object.
type Relation struct {
	Space    string
	Local    string
	Resource string // object PID or URI; empty for literals
	Literal  string
}

// ToURI prefixes a PID with info:fedora/.
func ToURI(pid string) string {
	if strings.HasPrefix(pid, fedoraURIPrefix) {
		return pid
	}
	return fedoraURIPrefix + pid
}

// FromURI strips the info:fedora/ prefix.
func FromURI(uri string) string {
	return strings.TrimPrefix(uri, fedoraURIPrefix)
}

type rdfDocument struct {
	XMLName     xml.Name         `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
	Description []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
}

type rdfDescription struct {
	About     string        `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# about,attr"`
	Relations []rdfRelation `xml:",any"`
}

type rdfRelation struct {
	XMLName  xml.Name
	Resource string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# resource,attr"`
	Value    string `xml:",chardata"`
}

// Relations is the parsed content of a RELS-EXT datastream.
type Relations struct {
	PID        string
	Statements []Relation
}

// ParseRelations decodes RELS-EXT RDF/XML.
func ParseRelations(pid string, data []byte) (*Relations, error) {
	rels := &Relations{PID: pid}
	if len(bytes.TrimSpace(data)) == 0 {
		return rels, nil
	}
	var doc rdfDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, exception.NewDigitalObjectError(pid, "invalid RELS-EXT", err)
	}
	for _, d := range doc.Description {
		if d.About != "" && FromURI(d.About) != pid && pid != "" {
			continue
		}
		for _, r := range d.Relations {
			st := Relation{Space: r.XMLName.Space, Local: r.XMLName.Local}
			if r.Resource != "" {
				st.Resource = FromURI(r.Resource)
			} else {
				st.Literal = strings.TrimSpace(r.Value)
			}
			rels.Statements = append(rels.Statements, st)
		}
	}
	return rels, nil
}

// Model returns the object model, e.g. "model:page".
func (r *Relations) Model() string {
	for _, s := range r.Statements {
		if s.Space == ModelNS && s.Local == "hasModel" {
			return s.Resource
		}
	}
	return ""
}

// SetModel replaces the object model.
func (r *Relations) SetModel(model string) {
	r.Replace(ModelNS, "hasModel", []Relation{{Space: ModelNS, Local: "hasModel", Resource: model}})
}

// Members returns the ordered child PIDs.
func (r *Relations) Members() []string {
	return r.Resources(RelsExtNS, "hasMember")
}

// SetMembers replaces the member list keeping the given order.
func (r *Relations) SetMembers(members []string) {
	stmts := make([]Relation, 0, len(members))
	for _, m := range members {
		stmts = append(stmts, Relation{Space: RelsExtNS, Local: "hasMember", Resource: m})
	}
	r.Replace(RelsExtNS, "hasMember", stmts)
}

// Resources lists the resource objects of a predicate in document order.
func (r *Relations) Resources(space, local string) []string {
	var out []string
	for _, s := range r.Statements {
		if s.Space == space && s.Local == local && s.Resource != "" {
			out = append(out, s.Resource)
		}
	}
	return out
}

// Literal returns the first literal value of a predicate.
func (r *Relations) Literal(space, local string) string {
	for _, s := range r.Statements {
		if s.Space == space && s.Local == local {
			return s.Literal
		}
	}
	return ""
}

// SetLiteral sets a single literal predicate.
func (r *Relations) SetLiteral(space, local, value string) {
	r.Replace(space, local, []Relation{{Space: space, Local: local, Literal: value}})
}

// Replace swaps every statement of a predicate. New statements take the
// position of the first removed one, or go last.
func (r *Relations) Replace(space, local string, stmts []Relation) {
	out := make([]Relation, 0, len(r.Statements)+len(stmts))
	inserted := false
	for _, s := range r.Statements {
		if s.Space == space && s.Local == local {
			if !inserted {
				out = append(out, stmts...)
				inserted = true
			}
			continue
		}
		out = append(out, s)
	}
	if !inserted {
		out = append(out, stmts...)
	}
	r.Statements = out
}

// Marshal renders the RDF with stable prefixes.
func (r *Relations) Marshal() []byte {
	prefixes := map[string]string{}
	next := 0
	prefixOf := func(space string) string {
		if p, ok := prefixes[space]; ok {
			return p
		}
		p, ok := knownPrefixes[space]
		if !ok {
			p = fmt.Sprintf("ns%d", next)
			next++
		}
		prefixes[space] = p
		return p
	}
	var body bytes.Buffer
	for _, s := range r.Statements {
		name := prefixOf(s.Space) + ":" + s.Local
		if s.Resource != "" {
			fmt.Fprintf(&body, "    <%s rdf:resource=\"%s\"/>\n", name, escapeAttr(resourceURI(s.Resource)))
			continue
		}
		body.WriteString("    <" + name + ">")
		_ = xml.EscapeText(&body, []byte(s.Literal))
		body.WriteString("</" + name + ">\n")
	}

	spaces := make([]string, 0, len(prefixes))
	for ns := range prefixes {
		spaces = append(spaces, ns)
	}
	sort.Slice(spaces, func(i, j int) bool { return prefixes[spaces[i]] < prefixes[spaces[j]] })

	var out bytes.Buffer
	out.WriteString(`<rdf:RDF xmlns:rdf="` + RdfNS + `"`)
	for _, ns := range spaces {
		fmt.Fprintf(&out, " xmlns:%s=\"%s\"", prefixes[ns], escapeAttr(ns))
	}
	out.WriteString(">\n")
	fmt.Fprintf(&out, "  <rdf:Description rdf:about=\"%s\">\n", escapeAttr(ToURI(r.PID)))
	out.Write(body.Bytes())
	out.WriteString("  </rdf:Description>\n</rdf:RDF>\n")
	return out.Bytes()
}

// resourceURI keeps absolute URIs and turns PIDs into info:fedora URIs.
func resourceURI(res string) string {
	if strings.HasPrefix(res, "http://") || strings.HasPrefix(res, "https://") {
		return res
	}
	return ToURI(res)
}

func escapeAttr(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// RelationEditor reads and writes the RELS-EXT datastream of an object.
type RelationEditor struct {
	editor       StreamEditor
	relations    *Relations
	lastModified time.Time
}

// NewRelationEditor binds an editor to the RELS-EXT stream of obj.
func NewRelationEditor(obj RepositoryObject) *RelationEditor {
	return &RelationEditor{editor: obj.Editor(XMLProfile(RelsExt, "RDF Statements about this object", RelsExtFormatURI))}
}

// Load reads the current relations.
func (e *RelationEditor) Load(ctx context.Context) (*Relations, error) {
	data, err := e.editor.Read(ctx)
	if err != nil && !exception.IsNotFound(err) {
		return nil, err
	}
	rels, err := ParseRelations(e.editor.PID(), data)
	if err != nil {
		return nil, err
	}
	e.relations = rels
	e.lastModified = e.editor.LastModified()
	return rels, nil
}

// Relations returns the loaded relations, loading them on first use.
func (e *RelationEditor) Relations(ctx context.Context) (*Relations, error) {
	if e.relations != nil {
		return e.relations, nil
	}
	return e.Load(ctx)
}

// Model returns the hasModel of the object.
func (e *RelationEditor) Model(ctx context.Context) (string, error) {
	rels, err := e.Relations(ctx)
	if err != nil {
		return "", err
	}
	return rels.Model(), nil
}

// Members returns the ordered member PIDs.
func (e *RelationEditor) Members(ctx context.Context) ([]string, error) {
	rels, err := e.Relations(ctx)
	if err != nil {
		return nil, err
	}
	return rels.Members(), nil
}

// SetMembers replaces the member list in memory; call Write to persist.
func (e *RelationEditor) SetMembers(ctx context.Context, members []string) error {
	rels, err := e.Relations(ctx)
	if err != nil {
		return err
	}
	rels.SetMembers(members)
	return nil
}

// Write stores the relations guarded by the timestamp seen on Load.
func (e *RelationEditor) Write(ctx context.Context, message string) error {
	if e.relations == nil {
		return exception.NewDigitalObjectError(e.editor.PID(), "RELS-EXT not loaded", nil)
	}
	if err := e.editor.Write(ctx, e.relations.Marshal(), e.lastModified, message); err != nil {
		return err
	}
	e.lastModified = e.editor.LastModified()
	return nil
}
