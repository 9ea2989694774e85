package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

func TestBatchRepository_CloneOnRead(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository()
	b := model.NewExportBatch(model.ProfileArchive, model.BatchParams{PIDs: []string{"uuid:a"}}, 1)
	require.NoError(t, repo.CreateBatch(ctx, b))

	got, err := repo.FindBatch(ctx, b.ID)
	require.NoError(t, err)
	got.Params.PIDs[0] = "changed"

	again, err := repo.FindBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "uuid:a", again.Params.PIDs[0])
}

func TestBatchRepository_OptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository()
	b := model.NewExportBatch(model.ProfileArchive, model.BatchParams{}, 1)
	require.NoError(t, repo.CreateBatch(ctx, b))

	first, _ := repo.FindBatch(ctx, b.ID)
	second, _ := repo.FindBatch(ctx, b.ID)
	require.NoError(t, repo.UpdateBatch(ctx, first))
	err := repo.UpdateBatch(ctx, second)
	assert.True(t, exception.IsConcurrentModification(err))
}

func TestBatchRepository_Claim(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository()
	b := model.NewExportBatch(model.ProfileArchive, model.BatchParams{}, 1)
	require.NoError(t, repo.CreateBatch(ctx, b))

	claimed, ok, err := repo.ClaimBatch(ctx, b.ID, []model.BatchState{model.BatchWaitingExport}, model.BatchExporting)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, claimed.Version)

	_, ok, err = repo.ClaimBatch(ctx, b.ID, []model.BatchState{model.BatchWaitingExport}, model.BatchExporting)
	require.NoError(t, err)
	assert.False(t, ok)

	byState, err := repo.FindBatchesByState(ctx, model.BatchExporting)
	require.NoError(t, err)
	assert.Len(t, byState, 1)
}
