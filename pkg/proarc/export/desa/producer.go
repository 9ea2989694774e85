// Package desa produces submission packages for the DESA records archive.
package desa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/mets"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// Producer serves the DESA profile.
type Producer struct {
	storage  fedora.Storage
	producer string
	now      func() time.Time
}

// NewProducer creates the producer.
func NewProducer(storage fedora.Storage, cfg *config.ExportConfig) *Producer {
	return &Producer{storage: storage, producer: cfg.Desa.Producer, now: time.Now}
}

// Export writes a SIP folder per root and zips it to <uuid>.zip. The zip is
// the result target; the folder is removed once the zip is complete.
func (p *Producer) Export(ctx context.Context, req export.Request) ([]export.Result, error) {
	folder, err := export.CreateFolder(req.OutputDir, "desa")
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
	mctx := mets.NewContext(p.storage, mets.Options{OutputPath: folder})
	root, err := mets.GetElement(ctx, pid, "", mctx, true)
	if err != nil {
		return export.Failed(pid, folder, err)
	}
	if v := validate(root); v != nil {
		return export.Invalid(pid, folder, v)
	}
	sip := filepath.Join(folder, fedora.UUID(pid))
	if err := p.writeSIP(ctx, root, sip); err != nil {
		return export.Failed(pid, folder, err)
	}
	zipPath := sip + ".zip"
	if err := export.ZipFolder(sip, zipPath, false); err != nil {
		return export.Failed(pid, folder, exception.NewExportError(pid, "", "cannot create SIP archive", err))
	}
	if err := os.RemoveAll(sip); err != nil {
		logger.Warnf("Cannot remove SIP folder %s: %v", sip, err)
	}
	return export.Success(pid, folder, zipPath, 0)
}

func validate(root *mets.Element) *export.ValidationError {
	v := &export.ValidationError{}
	_ = root.Walk(func(e *mets.Element) error {
		if !model.IsDesaModel(e.Model) {
			v.Add(e.PID, fmt.Sprintf("Model %s cannot be exported to DESA", e.Model), false)
			return nil
		}
		if e.Type == mets.TypeDesFile && !e.HasStream(fedora.Raw) {
			v.Add(e.PID, fmt.Sprintf("Missing datastream %s", fedora.Raw), false)
		}
		return nil
	})
	if len(v.Issues) == 0 {
		return nil
	}
	return v
}

func (p *Producer) writeSIP(ctx context.Context, root *mets.Element, dir string) error {
	files, err := export.NewFileSet(dir)
	if err != nil {
		return exception.NewExportError(root.PID, "", "cannot create SIP folder", err)
	}
	doc := mets.NewDocument(root, p.producer, "", p.now())
	doc.Type = "DESA_SIP"
	dmd := map[string]string{}
	fptrs := map[string][]string{}
	err = root.Walk(func(e *mets.Element) error {
		uuid := fedora.UUID(e.PID)
		if len(e.Mods) > 0 {
			dmd[e.PID] = "MODS_" + uuid
			doc.AddDmd(dmd[e.PID], "MODS", e.Mods)
		}
		if len(e.DC) > 0 {
			doc.AddDmd("DC_"+uuid, "DC", e.DC)
		}
		if e.Type != mets.TypeDesFile {
			return nil
		}
		data, profile, err := e.Stream(ctx, fedora.Raw)
		if err != nil {
			return exception.NewExportError(e.PID, fedora.Raw, "cannot read datastream", err)
		}
		rel := "content/" + uuid + "." + fedora.ExtensionFor(profile.MimeType)
		wf, err := files.Write(rel, data)
		if err != nil {
			return exception.NewExportError(e.PID, fedora.Raw, "cannot write "+rel, err)
		}
		g := doc.FileGroup("ORIGINAL", "original")
		g.Files = append(g.Files, mets.File{
			ID: "FILE_" + uuid, MimeType: profile.MimeType, Size: wf.Size,
			Checksum: wf.MD5, ChecksumType: "MD5",
			FLocat: mets.FLocat{LocType: "URL", Href: "./" + wf.Path},
		})
		fptrs[e.PID] = []string{"FILE_" + uuid}
		return nil
	})
	if err != nil {
		return err
	}
	doc.StructMaps = mets.BuildStructMaps(root, mets.StructMapHooks{
		DmdID:   func(e *mets.Element) string { return dmd[e.PID] },
		FileIDs: func(e *mets.Element) []string { return fptrs[e.PID] },
	})
	// DESA has no pages; files hang off the logical divs.
	doc.StructMaps = doc.StructMaps[:1]
	attachFiles(&doc.StructMaps[0].Div, root, fptrs)
	data, err := doc.Marshal()
	if err != nil {
		return exception.NewExportError(root.PID, "", "cannot serialize METS", err)
	}
	if _, err := files.Write("mets.xml", data); err != nil {
		return exception.NewExportError(root.PID, "", "cannot write METS", err)
	}
	return nil
}

// attachFiles adds fptrs to the logical divs; the div tree mirrors the
// element tree.
func attachFiles(d *mets.Div, e *mets.Element, fptrs map[string][]string) {
	for _, id := range fptrs[e.PID] {
		d.Fptrs = append(d.Fptrs, mets.Fptr{FileID: id})
	}
	children := e.ChildElements()
	for i := range d.Divs {
		if i < len(children) {
			attachFiles(&d.Divs[i], children[i], fptrs)
		}
	}
}
