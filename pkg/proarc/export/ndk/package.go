package ndk

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
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

// packageWriter writes one NDK package for one requested element.
type packageWriter struct {
	engine  *transform.Engine
	cfg     config.NdkConfig
	variant Variant
	created time.Time

	id    string
	files *export.FileSet
	doc   *mets.Mets
	dmd   map[string]string
	fptrs map[string][]string
	pages int
	page  string
}

func (w *packageWriter) write(ctx context.Context, elem *mets.Element, dir string) error {
	root := elem.Root()
	w.id = fedora.UUID(elem.PID)
	w.dmd = map[string]string{}
	w.fptrs = map[string][]string{}
	files, err := export.NewFileSet(dir)
	if err != nil {
		return exception.NewExportError(elem.PID, "", "cannot create package folder", err)
	}
	w.files = files
	w.doc = mets.NewDocument(root, w.cfg.Creator, w.cfg.Archivist, w.created)

	if err := w.writeDescriptive(root); err != nil {
		return err
	}
	for _, page := range export.Pages(elem) {
		if err := w.writePage(ctx, page); err != nil {
			return err
		}
	}
	w.doc.StructMaps = mets.BuildStructMaps(root, mets.StructMapHooks{
		DmdID:     func(e *mets.Element) string { return w.dmd[e.PID] },
		FileIDs:   func(e *mets.Element) []string { return w.fptrs[e.PID] },
		PageLabel: pageLabel,
	})
	data, err := w.doc.Marshal()
	if err != nil {
		return exception.NewExportError(elem.PID, "", "cannot serialize METS", err)
	}
	mainMets := "mets_" + w.id + ".xml"
	if _, err := w.files.Write(mainMets, data); err != nil {
		return exception.NewExportError(elem.PID, "", "cannot write "+mainMets, err)
	}
	return w.writeInfo(elem, mainMets)
}

func (w *packageWriter) writeDescriptive(root *mets.Element) error {
	counters := map[mets.ElementType]int{}
	return root.Walk(func(e *mets.Element) error {
		if e.Type.IsPage() || len(e.Mods) == 0 {
			return nil
		}
		counters[e.Type]++
		suffix := fmt.Sprintf("%s_%04d", e.Type, counters[e.Type])
		modsID, dcID := "MODSMD_"+suffix, "DCMD_"+suffix
		dc := e.DC
		if len(dc) == 0 {
			var err error
			dc, err = w.engine.Transform(e.Mods, transform.ModsAsDublinCore, transform.Params{
				transform.ParamPID: e.PID, transform.ParamModel: e.Model,
			})
			if err != nil {
				return exception.NewMetsExportError(e.PID, "cannot derive DC", err)
			}
		}
		w.doc.AddDmd(modsID, "MODS", e.Mods)
		w.doc.AddDmd(dcID, "DC", dc)
		w.dmd[e.PID] = modsID + " " + dcID
		return nil
	})
}

func (w *packageWriter) writePage(ctx context.Context, page *mets.Element) error {
	w.pages++
	w.page = page.PID
	seq := fmt.Sprintf("%04d", w.pages)
	var master *export.WrittenFile
	var masterMime string
	for _, spec := range w.variant.Files {
		dsID := findSource(page, spec)
		if dsID == "" {
			continue
		}
		data, profile, err := page.Stream(ctx, dsID)
		if err != nil {
			if exception.IsNotFound(err) {
				continue
			}
			return exception.NewExportError(page.PID, dsID, "cannot read datastream", err)
		}
		ext := spec.Ext
		if ext == "" {
			ext = fedora.ExtensionFor(profile.MimeType)
		}
		fileID := fmt.Sprintf("%s_%s_%s", spec.Prefix, w.id, seq)
		rel := spec.Dir + "/" + fileID + "." + ext
		wf, err := w.files.Write(rel, data)
		if err != nil {
			return exception.NewExportError(page.PID, dsID, "cannot write "+rel, err)
		}
		w.addFile(spec.Group, spec.Use, fileID, profile.MimeType, wf)
		if spec.Prefix == masterCopy.Prefix {
			master, masterMime = &wf, profile.MimeType
		}
	}
	if w.variant.TechMD && master != nil {
		return w.writeTechMD(page, seq, master, masterMime)
	}
	return nil
}

func (w *packageWriter) addFile(group, use, fileID, mimeType string, wf export.WrittenFile) {
	g := w.doc.FileGroup(group, use)
	g.Files = append(g.Files, mets.File{
		ID:           fileID,
		Seq:          w.pages,
		MimeType:     mimeType,
		Size:         wf.Size,
		Created:      w.created.UTC().Format("2006-01-02T15:04:05"),
		Checksum:     wf.MD5,
		ChecksumType: "MD5",
		FLocat:       mets.FLocat{LocType: "URL", Href: "./" + wf.Path},
	})
	w.fptrs[w.page] = append(w.fptrs[w.page], fileID)
}

func (w *packageWriter) writeTechMD(page *mets.Element, seq string, master *export.WrittenFile, mimeType string) error {
	premis := mets.Premis(mets.PremisFile{
		ID:           master.Path,
		MD5:          master.MD5,
		Size:         master.Size,
		MimeType:     mimeType,
		OriginalName: filepath.Base(master.Path),
	})
	amd := &mets.Mets{
		ObjID: "PAGE_" + seq,
		AmdSecs: []mets.AmdSec{{
			ID: "PAGE_" + seq,
			TechMD: []mets.MdSec{{
				ID:     "OBJ_" + seq,
				MdWrap: mets.MdWrap{MimeType: "text/xml", MdType: "PREMIS", XMLData: mets.XMLData{Inner: premis}},
			}},
		}},
	}
	data, err := amd.Marshal()
	if err != nil {
		return exception.NewExportError(page.PID, "", "cannot serialize technical metadata", err)
	}
	fileID := fmt.Sprintf("amd_mets_%s_%s", w.id, seq)
	wf, err := w.files.Write("amdsec/"+fileID+".xml", data)
	if err != nil {
		return exception.NewExportError(page.PID, "", "cannot write technical metadata", err)
	}
	w.addFile("TECHMDGRP", "Technical Metadata", fileID, "text/xml", wf)
	return nil
}

func (w *packageWriter) writeInfo(elem *mets.Element, mainMets string) error {
	md5Name := "md5_" + w.id + ".md5"
	manifest := export.MD5Manifest(w.files.Files(), "./")
	if _, err := w.files.Write(md5Name, manifest); err != nil {
		return exception.NewExportError(elem.PID, "", "cannot write "+md5Name, err)
	}
	sum := md5.Sum(manifest)

	in := info{
		Created:         w.created.UTC().Format("2006-01-02T15:04:05"),
		MetadataVersion: "1.2",
		PackageID:       w.id,
		MainMets:        "./" + mainMets,
		Creator:         w.cfg.Creator,
		Size:            (w.files.TotalSize() + 1023) / 1024,
		Checksum:        infoChecksum{Type: "MD5", Checksum: hex.EncodeToString(sum[:]), Path: "./" + md5Name},
	}
	if m, err := elem.ParsedMods(); err == nil {
		for _, typ := range []string{"urnnbn", "issn", "isbn", "ccnb"} {
			for _, v := range m.Identifiers(typ) {
				in.TitleIDs = append(in.TitleIDs, titleID{Type: typ, Value: v})
			}
		}
	}
	for _, f := range w.files.Files() {
		in.ItemList.Items = append(in.ItemList.Items, "./"+f.Path)
	}
	in.ItemList.Total = len(in.ItemList.Items)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(in); err != nil {
		return exception.NewExportError(elem.PID, "", "cannot serialize info", err)
	}
	name := "info_" + w.id + ".xml"
	if _, err := w.files.Write(name, buf.Bytes()); err != nil {
		return exception.NewExportError(elem.PID, "", "cannot write "+name, err)
	}
	return nil
}

func pageLabel(e *mets.Element) string {
	m, err := e.ParsedMods()
	if err != nil {
		return ""
	}
	if n := strings.TrimSpace(m.PageNumber()); n != "" {
		return n
	}
	return e.Label
}
