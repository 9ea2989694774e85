package process

import (
	"context"
	"fmt"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// Submitter records new export batches and hands them to a queue.
type Submitter struct {
	repo  repository.BatchRepository
	queue Queue
}

// NewSubmitter creates a submitter. With a nil queue batches only wait for
// the next poll of a worker.
func NewSubmitter(repo repository.BatchRepository, queue Queue) *Submitter {
	return &Submitter{repo: repo, queue: queue}
}

// SubmitExport creates a WAITING_EXPORT batch.
func (s *Submitter) SubmitExport(ctx context.Context, profile model.Profile, params model.BatchParams, userID int64) (*model.Batch, error) {
	if !profile.IsExport() {
		return nil, exception.NewConfigurationError("export", fmt.Sprintf("Unknown export profile '%s'", profile), nil)
	}
	if len(params.PIDs) == 0 {
		return nil, exception.NewProArcError(exception.KindValidation, "export", "", "no PID to export", nil)
	}
	b := model.NewExportBatch(profile, params, userID)
	if err := s.repo.CreateBatch(ctx, b); err != nil {
		return nil, err
	}
	logger.Infof("Export batch %d (%s) submitted by user %d.", b.ID, profile, userID)
	if s.queue != nil {
		if err := s.queue.Submit(b.ID); err != nil {
			logger.Warnf("Batch %d stays waiting: %v", b.ID, err)
		}
	}
	return b, nil
}
