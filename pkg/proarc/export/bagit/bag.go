// Package bagit wraps finished export packages into zipped BagIt bags and
// uploads them to long-term preservation storage.
package bagit

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// Version of the BagIt layout written by Wrap.
const Version = "0.97"

// Prefix is prepended to the name of a wrapped package.
const Prefix = "bagit_"

// Bag describes a wrapped package.
type Bag struct {
	// Name is bagit_<package name>.
	Name string
	// Dir holds bagit.txt, the manifests and data/.
	Dir string
	// Zip is the stored (uncompressed) archive of Dir.
	Zip string
	// Checksum is the MD5 of Zip, also written to Zip + ".md5".
	Checksum    string
	ExternalID  string
	PayloadOxum string
}

// ChecksumFile is the path of the MD5 sidecar of the archive.
func (b *Bag) ChecksumFile() string { return b.Zip + ".md5" }

// Wrapper restructures package folders into bags.
type Wrapper struct {
	cfg   config.BagitConfig
	now   func() time.Time
	newID func() string
}

// NewWrapper creates a wrapper filling bag-info.txt from cfg.
func NewWrapper(cfg *config.ExportConfig) *Wrapper {
	return &Wrapper{cfg: cfg.Bagit, now: time.Now, newID: func() string { return uuid.New().String() }}
}

// Wrap moves folder to bagit_<name>/data next to it, writes the tag files and
// zips the bag. The original folder is only touched by the final move, so a
// failure before it leaves the package as it was.
func (w *Wrapper) Wrap(ctx context.Context, folder string) (*Bag, error) {
	folder = filepath.Clean(folder)
	name := Prefix + filepath.Base(folder)
	bagDir := filepath.Join(filepath.Dir(folder), name)
	if _, err := os.Stat(bagDir); err == nil {
		return nil, exception.NewExportError("", "", fmt.Sprintf("bag %s already exists", bagDir), nil)
	}

	payload, err := digest(folder)
	if err != nil {
		return nil, exception.NewExportError("", "", "cannot checksum "+folder, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(bagDir, 0o755); err != nil {
		return nil, exception.NewExportError("", "", "cannot create "+bagDir, err)
	}
	if err := os.Rename(folder, filepath.Join(bagDir, "data")); err != nil {
		var result *multierror.Error
		result = multierror.Append(result, err)
		if rmErr := os.RemoveAll(bagDir); rmErr != nil {
			result = multierror.Append(result, rmErr)
		}
		return nil, exception.NewExportError("", "", "cannot move package into "+bagDir, result.ErrorOrNil())
	}

	bag := &Bag{Name: name, Dir: bagDir, Zip: bagDir + ".zip", ExternalID: w.newID()}
	var size int64
	for _, f := range payload {
		size += f.Size
	}
	bag.PayloadOxum = fmt.Sprintf("%d.%d", size, len(payload))

	tags, err := export.NewFileSet(bagDir)
	if err != nil {
		return nil, err
	}
	writes := []struct {
		name string
		data []byte
	}{
		{"bagit.txt", []byte("BagIt-Version: " + Version + "\nTag-File-Character-Encoding: UTF-8\n")},
		{"bag-info.txt", w.bagInfo(bag)},
		{"manifest-md5.txt", export.MD5Manifest(payload, "data/")},
	}
	for _, t := range writes {
		if _, err := tags.Write(t.name, t.data); err != nil {
			return nil, exception.NewExportError("", "", "cannot write "+t.name, err)
		}
	}
	if _, err := tags.Write("tagmanifest-md5.txt", export.MD5Manifest(tags.Files(), "")); err != nil {
		return nil, exception.NewExportError("", "", "cannot write tagmanifest-md5.txt", err)
	}

	if err := export.ZipFolder(bagDir, bag.Zip, true); err != nil {
		return nil, exception.NewExportError("", "", "cannot zip "+bagDir, err)
	}
	sum, err := fileMD5(bag.Zip)
	if err != nil {
		return nil, exception.NewExportError("", "", "cannot checksum "+bag.Zip, err)
	}
	bag.Checksum = sum
	sidecar := fmt.Sprintf("%s  %s\n", sum, filepath.Base(bag.Zip))
	if err := os.WriteFile(bag.ChecksumFile(), []byte(sidecar), 0o644); err != nil {
		return nil, exception.NewExportError("", "", "cannot write "+bag.ChecksumFile(), err)
	}
	logger.Infof("Wrapped %s into %s (%s).", folder, bag.Zip, bag.PayloadOxum)
	return bag, nil
}

func (w *Wrapper) bagInfo(b *Bag) []byte {
	var s strings.Builder
	if w.cfg.SourceOrganization != "" {
		fmt.Fprintf(&s, "Source-Organization: %s\n", w.cfg.SourceOrganization)
	}
	if w.cfg.ContactEmail != "" {
		fmt.Fprintf(&s, "Contact-Email: %s\n", w.cfg.ContactEmail)
	}
	fmt.Fprintf(&s, "External-Identifier: %s\n", b.ExternalID)
	fmt.Fprintf(&s, "Bagging-Date: %s\n", w.now().Format("2006-01-02"))
	fmt.Fprintf(&s, "Payload-Oxum: %s\n", b.PayloadOxum)
	return []byte(s.String())
}

// digest checksums every file below root.
func digest(root string) ([]export.WrittenFile, error) {
	var out []export.WrittenFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sum, err := fileMD5(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, export.WrittenFile{Path: filepath.ToSlash(rel), MD5: sum, Size: info.Size()})
		return nil
	})
	return out, err
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
