// Package cejsh exports journal articles as bwmeta documents for the
// Central European Journal of Social Sciences and Humanities.
package cejsh

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/mets"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
	"github.com/proarc/proarc/pkg/proarc/transform"
)

// Producer serves the CEJSH profile.
type Producer struct {
	storage fedora.Storage
	zip     bool
}

// NewProducer creates the producer.
func NewProducer(storage fedora.Storage, cfg *config.ExportConfig) *Producer {
	return &Producer{storage: storage, zip: cfg.Cejsh.Zip}
}

// Export writes one bwmeta file per issue that contains exported articles.
func (p *Producer) Export(ctx context.Context, req export.Request) ([]export.Result, error) {
	folder, err := export.CreateFolder(req.OutputDir, "cejsh")
	if err != nil {
		return nil, err
	}
	results := make([]export.Result, 0, len(req.PIDs))
	for _, pid := range req.PIDs {
		results = append(results, p.exportRoot(ctx, pid, folder))
	}
	return results, nil
}

func (p *Producer) exportRoot(ctx context.Context, pid, folder string) export.Result {
	elem, err := export.LoadTree(ctx, p.storage, pid, mets.Options{OutputPath: folder})
	if err != nil {
		return export.Failed(pid, folder, err)
	}
	groups, v := collect(elem)
	if v.Failed() {
		return export.Invalid(pid, folder, v)
	}
	docs := make(map[string][]byte, len(groups))
	for _, g := range groups {
		data, err := issueDocument(g, v)
		if err != nil {
			return export.Failed(pid, folder, err)
		}
		docs[g.Issue.PID] = data
	}
	if v.Failed() {
		return export.Invalid(pid, folder, v)
	}

	target := filepath.Join(folder, fedora.UUID(pid))
	files, err := export.NewFileSet(target)
	if err != nil {
		return export.Failed(pid, folder, exception.NewExportError(pid, "", "cannot create target folder", err))
	}
	for _, g := range groups {
		name := fedora.UUID(g.Issue.PID) + ".xml"
		if _, err := files.Write(name, docs[g.Issue.PID]); err != nil {
			return export.Failed(pid, folder, exception.NewExportError(g.Issue.PID, "", "cannot write "+name, err))
		}
	}
	if !p.zip {
		return export.Success(pid, folder, target, 0)
	}
	zipPath := target + ".zip"
	if err := export.ZipFolder(target, zipPath, false); err != nil {
		return export.Failed(pid, folder, exception.NewExportError(pid, "", "cannot create archive", err))
	}
	if err := os.RemoveAll(target); err != nil {
		logger.Warnf("Cannot remove %s: %v", target, err)
	}
	return export.Success(pid, folder, zipPath, 0)
}

// collect groups the articles below elem by their issue.
func collect(elem *mets.Element) ([]*export.IssueArticles, *export.ValidationError) {
	v := &export.ValidationError{}
	groups, orphans := export.GroupArticles(elem)
	for _, a := range orphans {
		v.Add(a.PID, "Article is not part of an issue", false)
	}
	if len(groups) == 0 && len(orphans) == 0 {
		v.Add(elem.PID, "No articles to export", false)
	}
	return groups, v
}

func elementID(pid string) string { return "bwmeta1.element." + fedora.UUID(pid) }

func issueDocument(g *export.IssueArticles, v *export.ValidationError) ([]byte, error) {
	title := mets.FindEnclosingObject(g.Issue, mets.TypeTitle)
	if title == nil {
		v.Add(g.Issue.PID, "Issue is not part of a periodical", false)
		return nil, nil
	}
	titleMods, err := title.ParsedMods()
	if err != nil {
		return nil, err
	}
	issn := titleMods.IdentifierValue("issn")
	if issn == "" {
		v.Add(title.PID, "Missing ISSN", false)
	}

	doc := bwmeta{}
	journal := bwElement{
		ID:          elementID(title.PID),
		Names:       []bwText{{Value: titleMods.Title()}},
		Hierarchy:   bwHierarchy{Class: hierarchyClass, Level: levelJournal},
		Identifiers: []bwIdentifier{{Scheme: "bwmeta1.id-class.ISSN", Value: issn}},
	}
	doc.Elements = append(doc.Elements, journal)

	parentID := journal.ID
	if volume := mets.FindEnclosingObject(g.Issue, mets.TypeVolume); volume != nil {
		vm, err := volume.ParsedMods()
		if err != nil {
			return nil, err
		}
		doc.Elements = append(doc.Elements, bwElement{
			ID:        elementID(volume.PID),
			Names:     []bwText{{Value: firstNonEmpty(vm.PartNumber(), vm.DateIssued(), volume.Label)}},
			Hierarchy: bwHierarchy{Class: hierarchyClass, Level: levelVolume, Ref: &bwLink{Ref: parentID}},
		})
		parentID = elementID(volume.PID)
	}
	im, err := g.Issue.ParsedMods()
	if err != nil {
		return nil, err
	}
	doc.Elements = append(doc.Elements, bwElement{
		ID:        elementID(g.Issue.PID),
		Names:     []bwText{{Value: firstNonEmpty(im.PartNumber(), g.Issue.Label)}},
		Hierarchy: bwHierarchy{Class: hierarchyClass, Level: levelNumber, Ref: &bwLink{Ref: parentID}},
	})
	for _, a := range g.Articles {
		am, err := a.ParsedMods()
		if err != nil {
			return nil, err
		}
		doc.Elements = append(doc.Elements, article(a, am, elementID(g.Issue.PID)))
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, exception.NewExportError(g.Issue.PID, "", "cannot serialize bwmeta", err)
	}
	return buf.Bytes(), nil
}

func article(a *mets.Element, m *transform.Mods, issueID string) bwElement {
	lang := ""
	if langs := m.Languages(); len(langs) > 0 {
		lang = langs[0]
	}
	el := bwElement{
		ID:        elementID(a.PID),
		Langs:     lang,
		Names:     []bwText{{Lang: lang, Value: firstNonEmpty(m.Title(), a.Label)}},
		Hierarchy: bwHierarchy{Class: hierarchyClass, Level: levelArticle, Ref: &bwLink{Ref: issueID}},
	}
	for _, abs := range m.Abstracts() {
		el.Descriptions = append(el.Descriptions, bwText{Lang: lang, Type: "abstract", Value: abs})
	}
	for i, author := range m.Authors() {
		el.Contributors = append(el.Contributors, bwContributor{
			Role: "author", Index: i,
			Name: bwContribName{Key: "person-name.full", Value: author},
		})
	}
	if doi := m.IdentifierValue("doi"); doi != "" {
		el.Identifiers = append(el.Identifiers, bwIdentifier{Scheme: "bwmeta1.id-class.DOI", Value: doi})
	}
	return el
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
