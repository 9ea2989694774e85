// Package repository declares the persistence contract for batches.
package repository

import (
	"context"
	"errors"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
)

// ErrBatchNotFound is returned when a batch id does not exist.
var ErrBatchNotFound = errors.New("batch not found")

// BatchRepository persists batches and their items.
//
// UpdateBatch and ClaimBatch are optimistic: they only succeed when the
// stored version equals the version the caller read. This is what keeps a
// batch from being processed by two workers at once, across processes and
// restarts.
type BatchRepository interface {
	CreateBatch(ctx context.Context, batch *model.Batch) error
	FindBatch(ctx context.Context, id int64) (*model.Batch, error)
	// UpdateBatch writes all mutable columns and increments Version.
	UpdateBatch(ctx context.Context, batch *model.Batch) error
	// ClaimBatch atomically moves the batch from one of the from states to
	// to. It returns the claimed batch and true, or false when another
	// worker won or the batch is not in a claimable state.
	ClaimBatch(ctx context.Context, id int64, from []model.BatchState, to model.BatchState) (*model.Batch, bool, error)
	FindBatchesByState(ctx context.Context, states ...model.BatchState) ([]*model.Batch, error)
	ListBatches(ctx context.Context, limit int) ([]*model.Batch, error)

	CreateItem(ctx context.Context, item *model.BatchItem) error
	FindItems(ctx context.Context, batchID int64) ([]*model.BatchItem, error)
	UpdateItem(ctx context.Context, item *model.BatchItem) error
}
