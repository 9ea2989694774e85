package sql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	gormadapter "github.com/proarc/proarc/pkg/proarc/adapter/database/gorm"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
)

func newMockRepository(t *testing.T) (*SQLBatchRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(gdb, database.DatabaseConfig{Type: "mysql"}, "metadata")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewSQLBatchRepository(staticResolver{conn: conn}, "metadata"), mock
}

func batchRows(state string, version int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "profile", "params", "state", "log", "folder", "user_id", "title", "created_at", "updated_at", "version"}).
		AddRow(int64(5), "NDK", `{"pids":["uuid:x"],"hierarchy":true}`, state, "", "", int64(1), "", now, now, version)
}

func TestClaimBatch_LostRace(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT \\* FROM `proarc_batch` WHERE `proarc_batch`.`id` = \\? LIMIT \\?").
		WillReturnRows(batchRows("WAITING_EXPORT", 4))
	mock.ExpectExec("UPDATE `proarc_batch` SET .*`version`=\\?.* WHERE .*`version` = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))

	b, ok, err := repo.ClaimBatch(context.Background(), 5, []model.BatchState{model.BatchWaitingExport}, model.BatchExporting)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, model.BatchWaitingExport, b.State)
	assert.Equal(t, 4, b.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimBatch_Won(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT \\* FROM `proarc_batch`").
		WillReturnRows(batchRows("WAITING_EXPORT", 4))
	mock.ExpectExec("UPDATE `proarc_batch` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	b, ok, err := repo.ClaimBatch(context.Background(), 5, []model.BatchState{model.BatchWaitingExport}, model.BatchExporting)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.BatchExporting, b.State)
	assert.Equal(t, 5, b.Version)
	assert.Equal(t, []string{"uuid:x"}, b.Params.PIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimBatch_NotClaimableState(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT \\* FROM `proarc_batch`").
		WillReturnRows(batchRows("EXPORT_DONE", 2))

	_, ok, err := repo.ClaimBatch(context.Background(), 5, []model.BatchState{model.BatchWaitingExport}, model.BatchExporting)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
