// Package archive produces self-contained archival packages: the FOXML of
// every object, all binary content and a METS document tying them together.
package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/mets"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// metadataStreams are carried inside the FOXML and not copied as files.
var metadataStreams = map[string]bool{
	fedora.DC:         true,
	fedora.RelsExt:    true,
	fedora.BiblioMods: true,
}

// Producer serves the ARCHIVE profile.
type Producer struct {
	storage fedora.Storage
	creator string
	now     func() time.Time
}

// NewProducer creates the producer; creator is recorded in the METS header.
func NewProducer(storage fedora.Storage, creator string) *Producer {
	return &Producer{storage: storage, creator: creator, now: time.Now}
}

// Export writes one package per requested PID into archive_<n>. With
// ArchiveOldPrint the roots must be old prints.
func (p *Producer) Export(ctx context.Context, req export.Request) ([]export.Result, error) {
	prefix := "archive"
	if req.Params.ArchiveOldPrint {
		prefix = "archive_oldprint"
	}
	folder, err := export.CreateFolder(req.OutputDir, prefix)
	if err != nil {
		return nil, err
	}
	results := make([]export.Result, 0, len(req.PIDs))
	for _, pid := range req.PIDs {
		results = append(results, p.exportRoot(ctx, pid, folder, req.Params.ArchiveOldPrint))
	}
	return results, nil
}

func (p *Producer) exportRoot(ctx context.Context, pid, folder string, oldPrint bool) export.Result {
	elem, err := export.LoadTree(ctx, p.storage, pid, mets.Options{OutputPath: folder})
	if err != nil {
		return export.Failed(pid, folder, err)
	}
	if v := validate(elem, oldPrint); v != nil {
		return export.Invalid(pid, folder, v)
	}
	target := filepath.Join(folder, fedora.UUID(pid))
	pages, err := p.write(ctx, elem, target)
	if err != nil {
		logger.WithField("pid", pid).Errorf("Archive export failed: %v", err)
		return export.Failed(pid, folder, err)
	}
	return export.Success(pid, folder, target, pages)
}

func validate(elem *mets.Element, oldPrint bool) *export.ValidationError {
	v := &export.ValidationError{}
	root := elem.Root()
	if oldPrint && !model.IsOldPrintModel(root.Model) {
		v.Add(root.PID, fmt.Sprintf("Model %s is not an old print", root.Model), false)
	}
	_ = root.Walk(func(e *mets.Element) error {
		if e.Type == mets.TypeUnknown {
			v.Add(e.PID, fmt.Sprintf("Unsupported model %s", e.Model), false)
		}
		return nil
	})
	if len(v.Issues) == 0 {
		return nil
	}
	return v
}

func (p *Producer) write(ctx context.Context, elem *mets.Element, target string) (int, error) {
	files, err := export.NewFileSet(target)
	if err != nil {
		return 0, exception.NewExportError(elem.PID, "", "cannot create package folder", err)
	}
	root := elem.Root()
	created := p.now()
	doc := mets.NewDocument(root, p.creator, p.creator, created)
	dmd := map[string]string{}
	fptrs := map[string][]string{}
	pages := 0

	err = root.Walk(func(e *mets.Element) error {
		uuid := fedora.UUID(e.PID)
		if _, err := files.Write("foxml/"+uuid+".xml", e.FOXML); err != nil {
			return exception.NewExportError(e.PID, "", "cannot write FOXML", err)
		}
		if len(e.Mods) > 0 {
			id := "MODSMD_" + uuid
			doc.AddDmd(id, "MODS", e.Mods)
			dmd[e.PID] = id
		}
		if e.Type.IsPage() {
			pages++
		}
		for _, profile := range e.Datastreams {
			if metadataStreams[profile.ID] || profile.ControlGroup == fedora.ControlInline {
				continue
			}
			data, pr, err := e.Stream(ctx, profile.ID)
			if err != nil {
				return exception.NewExportError(e.PID, profile.ID, "cannot read datastream", err)
			}
			rel := profile.ID + "/" + uuid + "." + fedora.ExtensionFor(pr.MimeType)
			wf, err := files.Write(rel, data)
			if err != nil {
				return exception.NewExportError(e.PID, profile.ID, "cannot write "+rel, err)
			}
			fileID := profile.ID + "_" + uuid
			g := doc.FileGroup(profile.ID+"GRP", profile.ID)
			g.Files = append(g.Files, mets.File{
				ID: fileID, MimeType: pr.MimeType, Size: wf.Size,
				Checksum: wf.MD5, ChecksumType: "MD5",
				FLocat: mets.FLocat{LocType: "URL", Href: "./" + wf.Path},
			})
			fptrs[e.PID] = append(fptrs[e.PID], fileID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	doc.StructMaps = mets.BuildStructMaps(root, mets.StructMapHooks{
		DmdID:     func(e *mets.Element) string { return dmd[e.PID] },
		FileIDs:   func(e *mets.Element) []string { return fptrs[e.PID] },
		PageLabel: func(e *mets.Element) string { return e.Label },
	})
	data, err := doc.Marshal()
	if err != nil {
		return 0, exception.NewExportError(elem.PID, "", "cannot serialize METS", err)
	}
	if _, err := files.Write("mets.xml", data); err != nil {
		return 0, exception.NewExportError(elem.PID, "", "cannot write METS", err)
	}
	if _, err := files.Write("manifest-md5.txt", export.MD5Manifest(files.Files(), "")); err != nil {
		return 0, exception.NewExportError(elem.PID, "", "cannot write manifest", err)
	}
	return pages, nil
}
