package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

const (
	// RootFile is the staged batch root inside a batch folder.
	RootFile = "batch.foxml"
	// BatchModel is the model of a batch root object.
	BatchModel = "proarc:batch"
)

// BatchRootPID names the staged root object of a batch.
func BatchRootPID(batchID int64) string {
	return fmt.Sprintf("proarc:batch_%d", batchID)
}

// Staging reads staged FOXML below the import staging root.
type Staging struct {
	root string
}

// NewStaging creates a staging area rooted at root.
func NewStaging(root string) *Staging {
	return &Staging{root: root}
}

// Dir is the folder of batch b.
func (s *Staging) Dir(b *model.Batch) string {
	return filepath.Join(s.root, filepath.FromSlash(b.Folder))
}

// Read returns the staged FOXML of file and its parsed form.
func (s *Staging) Read(b *model.Batch, file string) ([]byte, *fedora.DigitalObject, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(b), filepath.FromSlash(file)))
	if err != nil {
		return nil, nil, exception.NewDigitalObjectError("", "cannot read staged object "+file, err)
	}
	obj, err := fedora.ParseFOXML(data)
	if err != nil {
		return nil, nil, exception.NewDigitalObjectError("", "cannot parse staged object "+file, err)
	}
	return data, obj, nil
}

// RootMembers returns the ordered members of the batch root.
func (s *Staging) RootMembers(b *model.Batch) ([]string, error) {
	_, obj, err := s.Read(b, RootFile)
	if err != nil {
		return nil, err
	}
	return stagedMembers(obj)
}

// stagedMembers reads hasMember statements from the inline RELS-EXT.
func stagedMembers(obj *fedora.DigitalObject) ([]string, error) {
	ds := obj.Datastream(fedora.RelsExt)
	if ds == nil || ds.Latest() == nil {
		return nil, nil
	}
	data, ok, err := ds.Latest().InlineContent()
	if err != nil || !ok {
		return nil, exception.NewDigitalObjectError(obj.PID, "RELS-EXT is not inline", err)
	}
	rels, err := fedora.ParseRelations(obj.PID, data)
	if err != nil {
		return nil, err
	}
	return rels.Members(), nil
}

// Loader registers a folder of FOXML files as an import batch.
type Loader struct {
	repo    repository.BatchRepository
	staging *Staging
}

// NewLoader creates a loader.
func NewLoader(repo repository.BatchRepository, staging *Staging) *Loader {
	return &Loader{repo: repo, staging: staging}
}

// Load creates a batch for folder (relative to the staging root). Every
// *.foxml file except the batch root becomes an item. When the folder has
// no batch root, one listing the objects in file name order is written.
func (l *Loader) Load(ctx context.Context, folder string, params model.BatchParams, userID int64) (*model.Batch, error) {
	b := &model.Batch{
		Profile: model.ProfileImport,
		Params:  params,
		State:   model.BatchLoading,
		Folder:  filepath.ToSlash(folder),
		UserID:  userID,
		Title:   filepath.Base(folder),
	}
	if err := l.repo.CreateBatch(ctx, b); err != nil {
		return nil, err
	}
	dir := l.staging.Dir(b)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return l.fail(ctx, b, exception.NewDigitalObjectError("", "cannot list "+dir, err))
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".foxml") || e.Name() == RootFile {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var pids []string
	failed := false
	for _, name := range names {
		item := &model.BatchItem{BatchID: b.ID, File: name, Type: model.ItemTypeObject, State: model.ItemLoaded}
		if _, obj, err := l.staging.Read(b, name); err != nil {
			item.State = model.ItemLoadingFailed
			item.Log = exception.FromError(err).String()
			failed = true
		} else {
			item.PID = obj.PID
			pids = append(pids, obj.PID)
		}
		if err := l.repo.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	}
	if failed {
		return l.fail(ctx, b, exception.NewDigitalObjectError("", "some staged objects cannot be read", nil))
	}
	if _, err := os.Stat(filepath.Join(dir, RootFile)); os.IsNotExist(err) {
		root, err := fedora.NewObjectBuilder(BatchRootPID(b.ID), BatchModel, b.Title).Members(pids...).FOXML()
		if err != nil {
			return l.fail(ctx, b, err)
		}
		if err := os.WriteFile(filepath.Join(dir, RootFile), root, 0o644); err != nil {
			return l.fail(ctx, b, exception.NewDigitalObjectError(BatchRootPID(b.ID), "cannot write batch root", err))
		}
	}
	if err := b.TransitionTo(model.BatchLoaded); err != nil {
		return nil, err
	}
	if err := l.repo.UpdateBatch(ctx, b); err != nil {
		return nil, err
	}
	logger.Infof("Import batch %d loaded %d object(s) from %s.", b.ID, len(pids), dir)
	return b, nil
}

func (l *Loader) fail(ctx context.Context, b *model.Batch, cause error) (*model.Batch, error) {
	if err := b.TransitionTo(model.BatchLoadingFailed); err != nil {
		return nil, err
	}
	b.Log = exception.FromError(cause).String()
	if err := l.repo.UpdateBatch(ctx, b); err != nil {
		return nil, err
	}
	logger.Warnf("Import batch %d failed to load: %v", b.ID, cause)
	return b, nil
}
