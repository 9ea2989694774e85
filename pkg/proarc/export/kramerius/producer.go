// Package kramerius converts objects to Kramerius 4 FOXML. The KWIS
// variant moves page images out of the FOXML to an image server.
package kramerius

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/mets"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
	"github.com/proarc/proarc/pkg/proarc/transform"
)

// Producer serves the KRAMERIUS and KWIS profiles.
type Producer struct {
	storage fedora.Storage
	engine  *transform.Engine
	cfg     config.KrameriusConfig
	// kwis is nil for plain Kramerius export.
	kwis *config.KwisConfig
}

// NewProducer creates the Kramerius 4 producer.
func NewProducer(storage fedora.Storage, engine *transform.Engine, cfg *config.ExportConfig) *Producer {
	return &Producer{storage: storage, engine: engine, cfg: cfg.Kramerius}
}

// NewKwisProducer creates the producer that externalizes page images.
func NewKwisProducer(storage fedora.Storage, engine *transform.Engine, cfg *config.ExportConfig) *Producer {
	kwis := cfg.Kwis
	return &Producer{storage: storage, engine: engine, cfg: cfg.Kramerius, kwis: &kwis}
}

// Export writes <folder>/<uuid>/<uuid>.xml for each root and, with
// hierarchy, each descendant. An object shared by several roots is written
// once, below the first root reaching it.
func (p *Producer) Export(ctx context.Context, req export.Request) ([]export.Result, error) {
	prefix := "k4"
	if p.kwis != nil {
		prefix = "kwis"
	}
	folder, err := export.CreateFolder(req.OutputDir, prefix)
	if err != nil {
		return nil, err
	}
	policy := normalizePolicy(req.Params.Policy, p.cfg.Policy)
	exported := map[string]bool{}
	results := make([]export.Result, 0, len(req.PIDs))
	for _, pid := range req.PIDs {
		results = append(results, p.exportRoot(ctx, pid, folder, req.Hierarchy, policy, exported))
	}
	return results, nil
}

func normalizePolicy(requested, fallback string) string {
	policy := requested
	if policy == "" {
		policy = fallback
	}
	if policy == "" {
		policy = "private"
	}
	if !strings.HasPrefix(policy, "policy:") {
		policy = "policy:" + policy
	}
	return policy
}

func (p *Producer) exportRoot(ctx context.Context, pid, folder string, hierarchy bool, policy string, exported map[string]bool) export.Result {
	mctx := mets.NewContext(p.storage, mets.Options{OutputPath: folder})
	root, err := mets.GetElement(ctx, pid, "", mctx, hierarchy)
	if err != nil {
		return export.Failed(pid, folder, err)
	}
	v := &export.ValidationError{}
	_ = root.Walk(func(e *mets.Element) error {
		if e.Type == mets.TypeUnknown {
			v.Add(e.PID, fmt.Sprintf("Unsupported model %s", e.Model), false)
		}
		return nil
	})
	if v.Failed() {
		return export.Invalid(pid, folder, v)
	}

	target := filepath.Join(folder, fedora.UUID(pid))
	files, err := export.NewFileSet(target)
	if err != nil {
		return export.Failed(pid, folder, exception.NewExportError(pid, "", "cannot create target folder", err))
	}
	pages := 0
	err = root.Walk(func(e *mets.Element) error {
		if exported[e.PID] {
			return nil
		}
		exported[e.PID] = true
		if e.Type.IsPage() {
			pages++
		}
		data, err := p.convert(ctx, e, policy, files)
		if err != nil {
			return err
		}
		if _, err := files.Write(fedora.UUID(e.PID)+".xml", data); err != nil {
			return exception.NewExportError(e.PID, "", "cannot write FOXML", err)
		}
		return nil
	})
	if err != nil {
		logger.WithField("pid", pid).Errorf("Kramerius export failed: %v", err)
		return export.Failed(pid, folder, err)
	}
	return export.Success(pid, folder, target, pages)
}

func (p *Producer) excluded(dsID string) bool {
	for _, id := range p.cfg.ExcludeDatastreams {
		if id == dsID {
			return true
		}
	}
	return false
}

// convert rewrites the FOXML of e for Kramerius.
func (p *Producer) convert(ctx context.Context, e *mets.Element, policy string, files *export.FileSet) ([]byte, error) {
	doc, err := fedora.ParseFOXML(e.FOXML)
	if err != nil {
		return nil, exception.NewExportError(e.PID, "", "invalid FOXML", err)
	}
	kept := doc.Datastreams[:0]
	for _, ds := range doc.Datastreams {
		if !p.excluded(ds.ID) && ds.Active() && ds.Latest() != nil {
			kept = append(kept, ds)
		}
	}
	doc.Datastreams = kept

	for i := range doc.Datastreams {
		ds := &doc.Datastreams[i]
		if ds.ControlGroup != fedora.ControlManaged {
			continue
		}
		v := ds.Latest()
		data, err := e.Object.Editor(ds.Profile()).Read(ctx)
		if err != nil {
			return nil, exception.NewExportError(e.PID, ds.ID, "cannot read datastream", err)
		}
		if p.kwis != nil && ds.ID == fedora.Full {
			rel := "images/" + fedora.UUID(e.PID) + "." + fedora.ExtensionFor(v.MimeType)
			if _, err := files.Write(rel, data); err != nil {
				return nil, exception.NewExportError(e.PID, ds.ID, "cannot write image", err)
			}
			ds.ControlGroup = fedora.ControlExternal
			v.XMLContent, v.BinaryContent, v.ContentDigest = nil, nil, nil
			v.ContentLocation = &fedora.ContentLocation{
				Type: fedora.LocationURL,
				Ref:  strings.ReplaceAll(p.kwis.ImageURLTemplate, "{uuid}", fedora.UUID(e.PID)),
			}
			continue
		}
		v.ContentDigest = nil
		v.SetContent(fedora.ControlManaged, data)
	}

	if err := p.rewriteRelations(ctx, e, doc, policy); err != nil {
		return nil, err
	}
	if len(e.Mods) > 0 {
		dc, err := p.engine.Transform(e.Mods, transform.ModsAsDublinCore, transform.Params{
			transform.ParamPID:    e.PID,
			transform.ParamModel:  k4Model(e.Model),
			transform.ParamPolicy: policy,
		})
		if err != nil {
			return nil, err
		}
		setInline(doc, fedora.DC, "Dublin Core Record for this object", "http://www.openarchives.org/OAI/2.0/oai_dc/", dc)
	}
	return doc.Marshal()
}

func (p *Producer) rewriteRelations(ctx context.Context, e *mets.Element, doc *fedora.DigitalObject, policy string) error {
	relsData, err := p.relsExt(ctx, e, doc)
	if err != nil {
		return err
	}
	rels, err := fedora.ParseRelations(e.PID, relsData)
	if err != nil {
		return exception.NewExportError(e.PID, fedora.RelsExt, "invalid RELS-EXT", err)
	}
	var children []fedora.Relation
	for _, child := range e.Children {
		t, err := p.childType(ctx, e, child)
		if err != nil {
			return err
		}
		children = append(children, fedora.Relation{Space: fedora.KrameriusNS, Local: relationFor(e.Type, t), Resource: child})
	}
	rels.Replace(fedora.RelsExtNS, "hasMember", children)
	rels.SetModel(k4Model(e.Model))
	rels.SetLiteral(fedora.KrameriusNS, "policy", policy)
	rels.SetLiteral(fedora.OaiNS, "itemID", e.PID)
	setInline(doc, fedora.RelsExt, "RDF Statements about this object", fedora.RelsExtFormatURI, rels.Marshal())
	return nil
}

func (p *Producer) relsExt(ctx context.Context, e *mets.Element, doc *fedora.DigitalObject) ([]byte, error) {
	ds := doc.Datastream(fedora.RelsExt)
	if ds == nil || ds.Latest() == nil {
		return nil, exception.NewExportError(e.PID, fedora.RelsExt, "missing RELS-EXT", nil)
	}
	data, ok, err := ds.Latest().InlineContent()
	if err != nil {
		return nil, exception.NewExportError(e.PID, fedora.RelsExt, "unreadable RELS-EXT", err)
	}
	if ok {
		return data, nil
	}
	return e.Object.Editor(ds.Profile()).Read(ctx)
}

// childType uses the traversal when the child was resolved and asks the
// repository otherwise.
func (p *Producer) childType(ctx context.Context, e *mets.Element, pid string) (mets.ElementType, error) {
	if c, ok := e.Context().Element(pid); ok {
		return c.Type, nil
	}
	obj, err := p.storage.Find(ctx, pid)
	if err != nil {
		return mets.TypeUnknown, exception.NewExportError(pid, "", "cannot read member", err)
	}
	m, err := fedora.NewRelationEditor(obj).Model(ctx)
	if err != nil {
		return mets.TypeUnknown, exception.NewExportError(pid, fedora.RelsExt, "cannot read model", err)
	}
	return mets.TypeOf(m), nil
}

func setInline(doc *fedora.DigitalObject, id, label, formatURI string, data []byte) {
	ds := doc.Datastream(id)
	if ds == nil {
		doc.Datastreams = append(doc.Datastreams, fedora.Datastream{ID: id, State: "A", ControlGroup: fedora.ControlInline})
		ds = &doc.Datastreams[len(doc.Datastreams)-1]
	}
	ds.ControlGroup = fedora.ControlInline
	v := fedora.DatastreamVersion{ID: id + ".0", Label: label, MimeType: "text/xml", FormatURI: formatURI}
	if latest := ds.Latest(); latest != nil {
		v.ID, v.Created = latest.ID, latest.Created
	}
	v.SetContent(fedora.ControlInline, data)
	ds.Versions = []fedora.DatastreamVersion{v}
}
