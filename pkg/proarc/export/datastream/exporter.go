// Package datastream copies selected datastreams of objects into a folder,
// one file per object and stream.
package datastream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// FolderPrefix names the target folders of datastream exports.
const FolderPrefix = "datastream"

// Exporter runs one datastream export. It remembers every object it has
// visited, so an object reachable through several parents is exported once.
type Exporter struct {
	storage fedora.Storage
	visited map[string]bool
	written int
}

// NewExporter creates an exporter for a single run.
func NewExporter(storage fedora.Storage) *Exporter {
	return &Exporter{storage: storage, visited: map[string]bool{}}
}

// Visited returns the PIDs touched by the run, sorted.
func (e *Exporter) Visited() []string {
	out := make([]string, 0, len(e.visited))
	for pid := range e.visited {
		out = append(out, pid)
	}
	sort.Strings(out)
	return out
}

// Written is the number of files written.
func (e *Exporter) Written() int { return e.written }

// Export writes the dsIDs of pids (and their descendants with hierarchy)
// into a new folder below outputDir and returns that folder. Objects
// without any of the streams are skipped. Output already written is left in
// place when an error is returned.
func (e *Exporter) Export(ctx context.Context, outputDir string, hierarchy bool, pids, dsIDs []string) (string, error) {
	target, err := export.CreateFolder(outputDir, FolderPrefix)
	if err != nil {
		return "", exception.NewExportError("", "", "cannot create target folder", err)
	}
	queue := append([]string(nil), pids...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return target, err
		}
		pid := queue[0]
		queue = queue[1:]
		if e.visited[pid] {
			continue
		}
		e.visited[pid] = true
		children, err := e.exportObject(ctx, target, pid, dsIDs, hierarchy)
		if err != nil {
			return target, err
		}
		queue = append(queue, children...)
	}
	logger.WithField("folder", target).Infof("Datastream export wrote %d files for %d objects.", e.written, len(e.visited))
	return target, nil
}

func (e *Exporter) exportObject(ctx context.Context, target, pid string, dsIDs []string, hierarchy bool) ([]string, error) {
	obj, err := e.storage.Find(ctx, pid)
	if err != nil {
		return nil, exception.NewExportError(pid, "", "cannot read object", err)
	}
	profiles, err := obj.Datastreams(ctx)
	if err != nil {
		return nil, exception.NewExportError(pid, "", "cannot list datastreams", err)
	}
	var matched []fedora.DatastreamProfile
	for _, id := range dsIDs {
		if p, ok := fedora.FindProfile(profiles, id); ok {
			matched = append(matched, p)
		}
	}
	if len(matched) > 0 {
		ext := fedora.ExtensionFor(matched[0].MimeType)
		for _, p := range matched {
			data, err := obj.Editor(p).Read(ctx)
			if err != nil {
				if exception.IsNotFound(err) {
					continue
				}
				return nil, exception.NewExportError(pid, p.ID, "cannot read datastream", err)
			}
			name := fileName(pid, p.ID, ext, len(dsIDs) > 1)
			if err := os.WriteFile(filepath.Join(target, name), data, 0o644); err != nil {
				return nil, exception.NewExportError(pid, p.ID, "cannot write "+name, err)
			}
			e.written++
		}
	}
	if !hierarchy {
		return nil, nil
	}
	members, err := fedora.NewRelationEditor(obj).Members(ctx)
	if err != nil {
		return nil, exception.NewExportError(pid, fedora.RelsExt, "cannot read members", err)
	}
	return members, nil
}

// fileName is <uuid>.<ext>; a stream id is inserted when several streams
// were requested so that the files do not collide.
func fileName(pid, dsID, ext string, multi bool) string {
	if multi {
		return fmt.Sprintf("%s.%s.%s", fedora.UUID(pid), dsID, ext)
	}
	return fedora.UUID(pid) + "." + ext
}
