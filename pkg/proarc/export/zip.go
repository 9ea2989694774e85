package export

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ZipFolder writes the tree below src into the zip file dst. Entry names
// start with the base name of src. store disables compression.
func ZipFolder(src, dst string, store bool) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	zw := zip.NewWriter(out)
	method := zip.Deflate
	if store {
		method = zip.Store
	}
	base := filepath.Dir(filepath.Clean(src))
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.ToSlash(rel), Method: method})
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("cannot zip %s: %w", src, err)
	}
	return zw.Close()
}
