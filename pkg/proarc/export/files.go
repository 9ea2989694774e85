package export

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WrittenFile describes a file of a package.
type WrittenFile struct {
	// Path is relative to the package folder, with forward slashes.
	Path string
	MD5  string
	Size int64
}

// FileSet writes files below a package folder and remembers their checksums.
type FileSet struct {
	Root  string
	files map[string]WrittenFile
}

// NewFileSet creates root and an empty set.
func NewFileSet(root string) (*FileSet, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", root, err)
	}
	return &FileSet{Root: root, files: map[string]WrittenFile{}}, nil
}

// Write stores data at rel and returns its description.
func (s *FileSet) Write(rel string, data []byte) (WrittenFile, error) {
	rel = filepath.ToSlash(rel)
	full := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return WrittenFile{}, err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return WrittenFile{}, err
	}
	sum := md5.Sum(data)
	f := WrittenFile{Path: rel, MD5: hex.EncodeToString(sum[:]), Size: int64(len(data))}
	s.files[rel] = f
	return f, nil
}

// Files lists the written files sorted by path.
func (s *FileSet) Files() []WrittenFile {
	out := make([]WrittenFile, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// TotalSize sums the sizes of the written files.
func (s *FileSet) TotalSize() int64 {
	var n int64
	for _, f := range s.files {
		n += f.Size
	}
	return n
}

// MD5Manifest renders "<md5> <path>" lines for files, optionally prefixing
// every path.
func MD5Manifest(files []WrittenFile, pathPrefix string) []byte {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "%s %s%s\n", f.MD5, pathPrefix, f.Path)
	}
	return []byte(b.String())
}
