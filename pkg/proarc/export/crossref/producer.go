// Package crossref builds DOI deposit batches for periodical articles.
package crossref

import (
	"bytes"
	"context"
	"encoding/xml"
	"path/filepath"
	"strings"
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/mets"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/transform"
)

// Producer serves the CROSSREF profile.
type Producer struct {
	storage fedora.Storage
	cfg     config.CrossrefConfig
	now     func() time.Time
}

// NewProducer creates the producer.
func NewProducer(storage fedora.Storage, cfg *config.ExportConfig) *Producer {
	return &Producer{storage: storage, cfg: cfg.Crossref, now: time.Now}
}

// Export writes one doi_batch per issue below each requested object.
func (p *Producer) Export(ctx context.Context, req export.Request) ([]export.Result, error) {
	folder, err := export.CreateFolder(req.OutputDir, "crossref")
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
	v := &export.ValidationError{}
	groups, orphans := export.GroupArticles(elem)
	for _, a := range orphans {
		v.Add(a.PID, "Article is not part of an issue", false)
	}
	if len(groups) == 0 && len(orphans) == 0 {
		v.Add(pid, "No articles to export", false)
	}

	docs := make([][]byte, 0, len(groups))
	for _, g := range groups {
		data, err := p.deposit(g, v)
		if err != nil {
			return export.Failed(pid, folder, err)
		}
		docs = append(docs, data)
	}
	if v.Failed() {
		return export.Invalid(pid, folder, v)
	}

	target := filepath.Join(folder, fedora.UUID(pid))
	files, err := export.NewFileSet(target)
	if err != nil {
		return export.Failed(pid, folder, exception.NewExportError(pid, "", "cannot create target folder", err))
	}
	for i, g := range groups {
		name := fedora.UUID(g.Issue.PID) + ".xml"
		if _, err := files.Write(name, docs[i]); err != nil {
			return export.Failed(pid, folder, exception.NewExportError(g.Issue.PID, "", "cannot write "+name, err))
		}
	}
	return export.Success(pid, folder, target, 0)
}

func (p *Producer) deposit(g *export.IssueArticles, v *export.ValidationError) ([]byte, error) {
	title := mets.FindEnclosingObject(g.Issue, mets.TypeTitle)
	if title == nil {
		v.Add(g.Issue.PID, "Issue is not part of a periodical", false)
		return nil, nil
	}
	tm, err := title.ParsedMods()
	if err != nil {
		return nil, err
	}
	im, err := g.Issue.ParsedMods()
	if err != nil {
		return nil, err
	}

	now := p.now()
	batch := doiBatch{
		Version: SchemaVersion,
		Head: head{
			BatchID:    fedora.UUID(g.Issue.PID) + "_" + now.Format("20060102150405"),
			Timestamp:  now.Format("20060102150405000"),
			Depositor:  depositor{Name: p.cfg.Depositor, Email: p.cfg.Email},
			Registrant: p.cfg.Registrant,
		},
	}
	j := &batch.Body.Journal
	j.Metadata = journalMetadata{FullTitle: tm.Title()}
	if langs := tm.Languages(); len(langs) > 0 {
		j.Metadata.Language = langs[0]
	}
	for _, s := range tm.Identifiers("issn") {
		j.Metadata.ISSN = append(j.Metadata.ISSN, issn{MediaType: "print", Value: s})
	}

	ji := &journalIssue{Issue: firstNonEmpty(im.PartNumber(), g.Issue.Label)}
	year := im.DateIssued()
	if volume := mets.FindEnclosingObject(g.Issue, mets.TypeVolume); volume != nil {
		vm, err := volume.ParsedMods()
		if err != nil {
			return nil, err
		}
		ji.Volume = &journalVolume{Volume: firstNonEmpty(vm.PartNumber(), volume.Label)}
		year = firstNonEmpty(year, vm.DateIssued())
	}
	if year = yearOf(year); year != "" {
		ji.PublicationDate = &publicationDate{MediaType: "print", Year: year}
	}
	j.Issue = ji

	for _, a := range g.Articles {
		am, err := a.ParsedMods()
		if err != nil {
			return nil, err
		}
		doi := am.IdentifierValue("doi")
		if doi == "" {
			v.Add(a.PID, "Missing DOI", false)
			continue
		}
		j.Articles = append(j.Articles, p.article(a, am, doi, ji.PublicationDate))
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(batch); err != nil {
		return nil, exception.NewExportError(g.Issue.PID, "", "cannot serialize doi_batch", err)
	}
	return buf.Bytes(), nil
}

func (p *Producer) article(a *mets.Element, m *transform.Mods, doi string, date *publicationDate) article {
	out := article{
		PublicationType: "full_text",
		Titles:          titles{Title: firstNonEmpty(m.Title(), a.Label), Subtitle: m.SubTitle()},
		PublicationDate: date,
		DOIData: doiData{
			DOI:      doi,
			Resource: strings.ReplaceAll(p.cfg.ResourceURLTemplate, "{uuid}", fedora.UUID(a.PID)),
		},
	}
	if langs := m.Languages(); len(langs) > 0 {
		out.Language = langs[0]
	}
	if authors := m.Authors(); len(authors) > 0 {
		c := &contributors{}
		for i, name := range authors {
			seq := "additional"
			if i == 0 {
				seq = "first"
			}
			c.Persons = append(c.Persons, personName{Sequence: seq, Role: "author", Surname: name})
		}
		out.Contributors = c
	}
	return out
}

// yearOf keeps the leading four digits of a MODS date.
func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return date[:4]
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
