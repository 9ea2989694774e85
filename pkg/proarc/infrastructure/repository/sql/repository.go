// Package sql is the database-backed BatchRepository.
package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

const module = "repository.sql"

// SQLBatchRepository stores batches through a named DBConnection.
type SQLBatchRepository struct {
	resolver database.DBConnectionResolver
	dbName   string
}

// NewSQLBatchRepository creates the repository for connection dbName.
func NewSQLBatchRepository(resolver database.DBConnectionResolver, dbName string) *SQLBatchRepository {
	return &SQLBatchRepository{resolver: resolver, dbName: dbName}
}

var _ repository.BatchRepository = (*SQLBatchRepository)(nil)

func (r *SQLBatchRepository) conn(ctx context.Context) (database.DBConnection, error) {
	c, err := r.resolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewProArcError(exception.KindInternal, module, "", fmt.Sprintf("failed to resolve connection '%s'", r.dbName), err)
	}
	return c, nil
}

func (r *SQLBatchRepository) CreateBatch(ctx context.Context, b *model.Batch) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if b.Created.IsZero() {
		b.Created = now
	}
	if b.Timestamp.IsZero() {
		b.Timestamp = now
	}
	e := fromDomainBatch(b)
	if _, err := c.ExecuteUpdate(ctx, e, "CREATE", e.TableName(), nil); err != nil {
		return exception.NewProArcError(exception.KindInternal, module, "", "failed to create batch", err)
	}
	b.ID = e.ID
	return nil
}

func (r *SQLBatchRepository) FindBatch(ctx context.Context, id int64) (*model.Batch, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rows []BatchEntity
	if err := c.ExecuteQueryAdvanced(ctx, &rows, map[string]interface{}{"id": id}, "", 1); err != nil {
		return nil, exception.NewProArcError(exception.KindInternal, module, "", fmt.Sprintf("failed to load batch %d", id), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("batch %d: %w", id, repository.ErrBatchNotFound)
	}
	return rows[0].toDomain(), nil
}

func (r *SQLBatchRepository) UpdateBatch(ctx context.Context, b *model.Batch) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	original := b.Version
	b.Version++
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now().UTC()
	}
	params, err := b.Params.Value()
	if err != nil {
		b.Version = original
		return exception.NewProArcError(exception.KindInternal, module, "", "failed to encode batch parameters", err)
	}
	rows, err := c.ExecuteUpdateColumns(ctx, BatchEntity{}.TableName(),
		map[string]interface{}{
			"profile":    string(b.Profile),
			"params":     params,
			"state":      string(b.State),
			"log":        b.Log,
			"folder":     b.Folder,
			"title":      b.Title,
			"updated_at": b.Timestamp,
			"version":    b.Version,
		},
		map[string]interface{}{"id": b.ID, "version": original},
	)
	if err != nil {
		b.Version = original
		return exception.NewProArcError(exception.KindInternal, module, "", fmt.Sprintf("failed to update batch %d", b.ID), err)
	}
	if rows == 0 {
		b.Version = original
		return exception.NewOptimisticLockingFailure(module, fmt.Sprintf("batch %d with version %d not found for update", b.ID, original), nil)
	}
	return nil
}

func (r *SQLBatchRepository) ClaimBatch(ctx context.Context, id int64, from []model.BatchState, to model.BatchState) (*model.Batch, bool, error) {
	b, err := r.FindBatch(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !inStates(b.State, from) {
		logger.Debugf("Batch %d is %s, not claimable for %s.", id, b.State, to)
		return b, false, nil
	}
	c, err := r.conn(ctx)
	if err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	rows, err := c.ExecuteUpdateColumns(ctx, BatchEntity{}.TableName(),
		map[string]interface{}{"state": string(to), "updated_at": now, "version": b.Version + 1},
		map[string]interface{}{"id": id, "version": b.Version, "state": string(b.State)},
	)
	if err != nil {
		return nil, false, exception.NewProArcError(exception.KindInternal, module, "", fmt.Sprintf("failed to claim batch %d", id), err)
	}
	if rows == 0 {
		logger.Infof("Batch %d was claimed by another worker.", id)
		return b, false, nil
	}
	b.State = to
	b.Timestamp = now
	b.Version++
	return b, true, nil
}

func inStates(s model.BatchState, states []model.BatchState) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}

func (r *SQLBatchRepository) FindBatchesByState(ctx context.Context, states ...model.BatchState) ([]*model.Batch, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	var rows []BatchEntity
	if err := c.ExecuteQueryAdvanced(ctx, &rows, map[string]interface{}{"state": names}, "id asc", 0); err != nil {
		if c.IsTableNotExistError(err) {
			logger.Warnf("Batch table does not exist yet; no batches to resume.")
			return nil, nil
		}
		return nil, exception.NewProArcError(exception.KindInternal, module, "", "failed to query batches by state", err)
	}
	return toDomainBatches(rows), nil
}

func (r *SQLBatchRepository) ListBatches(ctx context.Context, limit int) ([]*model.Batch, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rows []BatchEntity
	if err := c.ExecuteQueryAdvanced(ctx, &rows, nil, "id desc", limit); err != nil {
		return nil, exception.NewProArcError(exception.KindInternal, module, "", "failed to list batches", err)
	}
	return toDomainBatches(rows), nil
}

func toDomainBatches(rows []BatchEntity) []*model.Batch {
	out := make([]*model.Batch, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out
}

func (r *SQLBatchRepository) CreateItem(ctx context.Context, item *model.BatchItem) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	e := fromDomainItem(item)
	if _, err := c.ExecuteUpdate(ctx, e, "CREATE", e.TableName(), nil); err != nil {
		return exception.NewProArcError(exception.KindInternal, module, item.PID, "failed to create batch item", err)
	}
	item.ID = e.ID
	return nil
}

func (r *SQLBatchRepository) FindItems(ctx context.Context, batchID int64) ([]*model.BatchItem, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rows []BatchItemEntity
	if err := c.ExecuteQueryAdvanced(ctx, &rows, map[string]interface{}{"batch_id": batchID}, "id asc", 0); err != nil {
		return nil, exception.NewProArcError(exception.KindInternal, module, "", fmt.Sprintf("failed to load items of batch %d", batchID), err)
	}
	out := make([]*model.BatchItem, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *SQLBatchRepository) UpdateItem(ctx context.Context, item *model.BatchItem) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	rows, err := c.ExecuteUpdateColumns(ctx, BatchItemEntity{}.TableName(),
		map[string]interface{}{"pid": item.PID, "file": item.File, "state": string(item.State), "log": item.Log},
		map[string]interface{}{"id": item.ID},
	)
	if err != nil {
		return exception.NewProArcError(exception.KindInternal, module, item.PID, "failed to update batch item", err)
	}
	if rows == 0 {
		return exception.NewProArcError(exception.KindNotFound, module, item.PID, fmt.Sprintf("batch item %d not found", item.ID), nil)
	}
	return nil
}
