package process

import (
	"context"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// Importer is the import side a Router dispatches to.
type Importer interface {
	Ingest(ctx context.Context, batchID int64) error
	Repair(ctx context.Context, batchID int64) error
}

// Router picks the export or import path from the persisted batch state.
type Router struct {
	repo     repository.BatchRepository
	export   *Process
	importer Importer
}

// NewRouter creates a router. importer may be nil when only exports run.
func NewRouter(repo repository.BatchRepository, export *Process, importer Importer) *Router {
	return &Router{repo: repo, export: export, importer: importer}
}

// Handle runs batchID according to its state. Terminal batches are ignored.
func (r *Router) Handle(ctx context.Context, batchID int64) error {
	b, err := r.repo.FindBatch(ctx, batchID)
	if err != nil {
		return err
	}
	switch b.State {
	case model.BatchWaitingExport:
		return r.export.Run(ctx, batchID)
	case model.BatchLoaded:
		if r.importer == nil {
			return nil
		}
		return r.importer.Ingest(ctx, batchID)
	case model.BatchIngesting, model.BatchIngestingFailed:
		if r.importer == nil {
			return nil
		}
		return r.importer.Repair(ctx, batchID)
	}
	logger.Debugf("Batch %d in state %s needs no work.", batchID, b.State)
	return nil
}

// Queue accepts batch ids for asynchronous processing.
type Queue interface {
	Submit(batchID int64) error
}

// InterruptedMessage is logged on exports a restart found running.
const InterruptedMessage = "Export interrupted"

// ResumeAll is run once at worker start. Waiting exports are queued and
// interrupted imports go to repair. Exports left in EXPORTING belonged to a
// worker that died; they are failed because their output is incomplete.
func (r *Router) ResumeAll(ctx context.Context, queue Queue) error {
	waiting, err := r.repo.FindBatchesByState(ctx, model.BatchWaitingExport, model.BatchIngesting)
	if err != nil {
		return err
	}
	for _, b := range waiting {
		if b.State == model.BatchIngesting && r.importer == nil {
			continue
		}
		if err := queue.Submit(b.ID); err != nil {
			logger.Warnf("Cannot resume batch %d: %v", b.ID, err)
		}
	}

	running, err := r.repo.FindBatchesByState(ctx, model.BatchExporting)
	if err != nil {
		return err
	}
	for _, b := range running {
		claimed, ok, err := r.repo.ClaimBatch(ctx, b.ID, []model.BatchState{model.BatchExporting}, model.BatchExportFailed)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		claimed.Log = exception.LogRecord{Kind: exception.KindExport, Message: InterruptedMessage}.String()
		if err := r.repo.UpdateBatch(ctx, claimed); err != nil {
			return err
		}
		logger.Warnf("Export batch %d was interrupted and is marked failed.", b.ID)
	}
	logger.Infof("Resumed %d batch(es).", len(waiting))
	return nil
}
