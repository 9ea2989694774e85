// Package ingest moves staged import batches into the repository in the
// member order of their batch root, and repairs batches a failure or a
// restart left half done.
package ingest

import (
	"context"
	"fmt"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/metrics"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

const ingestMessage = "Ingested with ProArc"

// Importer ingests import batches.
type Importer struct {
	repo     repository.BatchRepository
	storage  fedora.Storage
	staging  *Staging
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
}

// NewImporter creates an importer. recorder and tracer may be nil.
func NewImporter(repo repository.BatchRepository, storage fedora.Storage, staging *Staging, recorder metrics.MetricRecorder, tracer metrics.Tracer) *Importer {
	if recorder == nil {
		recorder = metrics.NewPrometheusRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewOpenTelemetryTracer()
	}
	return &Importer{repo: repo, storage: storage, staging: staging, recorder: recorder, tracer: tracer}
}

// Ingest claims a LOADED batch and ingests its items.
func (im *Importer) Ingest(ctx context.Context, batchID int64) error {
	return im.run(ctx, batchID, []model.BatchState{model.BatchLoaded}, false)
}

// Repair claims an interrupted or failed batch and finishes it. Items are
// re-examined by their last known state.
func (im *Importer) Repair(ctx context.Context, batchID int64) error {
	return im.run(ctx, batchID, []model.BatchState{model.BatchIngestingFailed, model.BatchIngesting}, true)
}

func (im *Importer) run(ctx context.Context, batchID int64, from []model.BatchState, repair bool) error {
	b, ok, err := im.repo.ClaimBatch(ctx, batchID, from, model.BatchIngesting)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debugf("Import batch %d not claimed.", batchID)
		return nil
	}
	ctx, end := im.tracer.StartBatchSpan(ctx, b)
	logger.Infof("Import batch %d started (repair: %t).", b.ID, repair)

	next := model.BatchIngested
	b.Log = ""
	if err := im.ingestAll(ctx, b, repair); err != nil {
		next = model.BatchIngestingFailed
		b.Log = exception.FromError(err).String()
		logger.Warnf("Import batch %d failed: %v", b.ID, err)
	}
	if err := b.TransitionTo(next); err != nil {
		end(err)
		return err
	}
	if err := im.repo.UpdateBatch(ctx, b); err != nil {
		end(err)
		return err
	}
	logger.Infof("Import batch %d finished in %s.", b.ID, b.State)
	end(nil)
	return nil
}

func (im *Importer) ingestAll(ctx context.Context, b *model.Batch, repair bool) error {
	members, err := im.staging.RootMembers(b)
	if err != nil {
		return err
	}
	items, err := im.repo.FindItems(ctx, b.ID)
	if err != nil {
		return err
	}
	var objects []*model.BatchItem
	for _, it := range items {
		if it.Type == model.ItemTypeObject && it.State != model.ItemExcluded {
			objects = append(objects, it)
		}
	}
	sorted, err := SortItems(members, objects)
	if err != nil {
		return err
	}

	children := map[string]bool{}
	linked := map[string]bool{}
	for _, it := range sorted {
		st, err := im.ingestItem(ctx, b, it, repair)
		if err != nil {
			return err
		}
		for _, c := range st.members {
			children[c] = true
		}
		linked[it.PID] = st.linked
	}
	if b.Params.ParentPID == "" {
		return nil
	}
	var roots []string
	for _, it := range sorted {
		if !children[it.PID] && !linked[it.PID] {
			roots = append(roots, it.PID)
		}
	}
	if len(roots) == 0 {
		return nil
	}
	return im.link(ctx, b.Params.ParentPID, roots)
}

// itemStatus is what ingesting an item learned about the hierarchy.
type itemStatus struct {
	// members of the staged object.
	members []string
	// linked is set when a stored object already refers to the item.
	linked bool
}

// ingestItem brings one item to INGESTED.
func (im *Importer) ingestItem(ctx context.Context, b *model.Batch, it *model.BatchItem, repair bool) (itemStatus, error) {
	var st itemStatus
	if it.State == model.ItemIngestingFailed && repair {
		it.State = model.ItemLoaded
		it.Log = ""
		if err := im.repo.UpdateItem(ctx, it); err != nil {
			return st, err
		}
	}
	if it.State != model.ItemLoaded && it.State != model.ItemIngested {
		return st, exception.NewDigitalObjectError(it.PID, fmt.Sprintf("item in state %s cannot be ingested", it.State), nil)
	}

	data, obj, err := im.staging.Read(b, it.File)
	if err != nil {
		return st, im.failItem(ctx, it, err)
	}
	if st.members, err = stagedMembers(obj); err != nil {
		return st, im.failItem(ctx, it, err)
	}
	if it.State == model.ItemIngested && !repair {
		st.linked = true
		return st, nil
	}
	exists, err := im.storage.Exists(ctx, it.PID)
	if err != nil {
		return st, im.failItem(ctx, it, err)
	}
	if exists {
		if !repair {
			return st, im.failItem(ctx, it, exception.NewDigitalObjectError(it.PID, "object already exists", nil))
		}
		if err := im.reconcile(ctx, obj, st.members); err != nil {
			return st, im.failItem(ctx, it, err)
		}
		refs, err := im.storage.Referrers(ctx, it.PID)
		if err != nil {
			return st, im.failItem(ctx, it, err)
		}
		st.linked = len(refs) > 0
	} else if err := im.storage.Ingest(ctx, data, b.Params.Owner, ingestMessage); err != nil {
		return st, im.failItem(ctx, it, err)
	}

	if it.State != model.ItemIngested {
		it.State = model.ItemIngested
		it.Log = ""
		if err := im.repo.UpdateItem(ctx, it); err != nil {
			return st, err
		}
		im.recorder.RecordIngestItem(ctx, it.State)
	}
	return st, nil
}

// reconcile extends the member list of a stored object with members only
// the staged copy knows.
func (im *Importer) reconcile(ctx context.Context, staged *fedora.DigitalObject, local []string) error {
	obj, err := im.storage.Find(ctx, staged.PID)
	if err != nil {
		return err
	}
	editor := fedora.NewRelationEditor(obj)
	remote, err := editor.Members(ctx)
	if err != nil {
		return err
	}
	if sameMembers(local, remote) {
		return nil
	}
	merged, err := MergeMembers(staged.PID, local, remote)
	if err != nil {
		return err
	}
	if sameMembers(merged, remote) {
		return nil
	}
	if err := editor.SetMembers(ctx, merged); err != nil {
		return err
	}
	return editor.Write(ctx, "Repaired members")
}

// link appends roots missing from the parent's members.
func (im *Importer) link(ctx context.Context, parentPID string, roots []string) error {
	obj, err := im.storage.Find(ctx, parentPID)
	if err != nil {
		return err
	}
	editor := fedora.NewRelationEditor(obj)
	members, err := editor.Members(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(members))
	for _, m := range members {
		present[m] = true
	}
	added := 0
	for _, r := range roots {
		if !present[r] {
			members = append(members, r)
			present[r] = true
			added++
		}
	}
	if added == 0 {
		return nil
	}
	if err := editor.SetMembers(ctx, members); err != nil {
		return err
	}
	if err := editor.Write(ctx, "Added imported objects"); err != nil {
		return exception.NewLinkageError(parentPID, "cannot link imported objects", err)
	}
	logger.Infof("Linked %d imported object(s) to %s.", added, parentPID)
	return nil
}

func (im *Importer) failItem(ctx context.Context, it *model.BatchItem, cause error) error {
	it.State = model.ItemIngestingFailed
	it.Log = exception.FromError(cause).String()
	if err := im.repo.UpdateItem(ctx, it); err != nil {
		logger.Errorf("Cannot record failure of item %s: %v", it.PID, err)
	}
	im.recorder.RecordIngestItem(ctx, it.State)
	return cause
}
