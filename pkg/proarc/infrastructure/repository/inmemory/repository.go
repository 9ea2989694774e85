// Package inmemory is a process-local BatchRepository used by tests and the
// single-node "worker --ephemeral" mode.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

// BatchRepository keeps clones of all records behind a mutex so callers can
// never mutate stored state without going through the optimistic checks.
type BatchRepository struct {
	mu      sync.Mutex
	batches map[int64]*model.Batch
	items   map[int64]*model.BatchItem
	nextID  int64
	nextIID int64
}

// NewBatchRepository creates an empty repository.
func NewBatchRepository() *BatchRepository {
	return &BatchRepository{batches: map[int64]*model.Batch{}, items: map[int64]*model.BatchItem{}}
}

var _ repository.BatchRepository = (*BatchRepository)(nil)

func (r *BatchRepository) CreateBatch(_ context.Context, b *model.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = r.nextID
	if b.Created.IsZero() {
		b.Created = time.Now().UTC()
		b.Timestamp = b.Created
	}
	r.batches[b.ID] = b.Clone()
	return nil
}

func (r *BatchRepository) FindBatch(_ context.Context, id int64) (*model.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %d: %w", id, repository.ErrBatchNotFound)
	}
	return b.Clone(), nil
}

func (r *BatchRepository) UpdateBatch(_ context.Context, b *model.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.batches[b.ID]
	if !ok {
		return fmt.Errorf("batch %d: %w", b.ID, repository.ErrBatchNotFound)
	}
	if stored.Version != b.Version {
		return exception.NewOptimisticLockingFailure("repository.inmemory",
			fmt.Sprintf("batch %d with version %d not found for update", b.ID, b.Version), nil)
	}
	b.Version++
	r.batches[b.ID] = b.Clone()
	return nil
}

func (r *BatchRepository) ClaimBatch(_ context.Context, id int64, from []model.BatchState, to model.BatchState) (*model.Batch, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.batches[id]
	if !ok {
		return nil, false, fmt.Errorf("batch %d: %w", id, repository.ErrBatchNotFound)
	}
	for _, s := range from {
		if stored.State == s {
			stored.State = to
			stored.Timestamp = time.Now().UTC()
			stored.Version++
			return stored.Clone(), true, nil
		}
	}
	return stored.Clone(), false, nil
}

func (r *BatchRepository) FindBatchesByState(_ context.Context, states ...model.BatchState) ([]*model.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Batch
	for _, b := range r.batches {
		for _, s := range states {
			if b.State == s {
				out = append(out, b.Clone())
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *BatchRepository) ListBatches(_ context.Context, limit int) ([]*model.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Batch, 0, len(r.batches))
	for _, b := range r.batches {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BatchRepository) CreateItem(_ context.Context, item *model.BatchItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextIID++
	item.ID = r.nextIID
	c := *item
	r.items[item.ID] = &c
	return nil
}

func (r *BatchRepository) FindItems(_ context.Context, batchID int64) ([]*model.BatchItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.BatchItem
	for _, it := range r.items {
		if it.BatchID == batchID {
			c := *it
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *BatchRepository) UpdateItem(_ context.Context, item *model.BatchItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return exception.NewProArcError(exception.KindNotFound, "repository.inmemory", item.PID, fmt.Sprintf("batch item %d not found", item.ID), nil)
	}
	c := *item
	r.items[item.ID] = &c
	return nil
}
