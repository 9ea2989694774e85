// Package gorm implements the database ports on top of gorm.io/gorm.
package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// TableNamer is implemented by entities with an explicit table.
type TableNamer interface {
	TableName() string
}

// applyTableName selects the table of model, looking through pointers and
// slices for a TableNamer element type.
func applyTableName(db *gorm.DB, model interface{}) *gorm.DB {
	if namer, ok := model.(TableNamer); ok {
		return db.Table(namer.TableName())
	}
	t := reflect.TypeOf(model)
	for t != nil && (t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		t = t.Elem()
	}
	if t != nil {
		if namer, ok := reflect.New(t).Interface().(TableNamer); ok {
			return db.Table(namer.TableName())
		}
	}
	return db.Model(model)
}

// executor implements database.DBExecutor on a *gorm.DB (plain or transactional).
type executor struct {
	db *gorm.DB
}

func (e *executor) session(ctx context.Context) *gorm.DB {
	return e.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true})
}

func (e *executor) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	db := e.session(ctx)
	if tableName != "" {
		db = db.Table(tableName)
	}
	var res *gorm.DB
	switch operation {
	case "CREATE":
		res = db.Create(model)
	case "DELETE":
		if len(query) == 0 {
			return 0, fmt.Errorf("refusing DELETE without a condition on %s", tableName)
		}
		res = db.Where(query).Delete(model)
	default:
		return 0, fmt.Errorf("unsupported update operation: %s", operation)
	}
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (e *executor) ExecuteUpdateColumns(ctx context.Context, tableName string, columns map[string]interface{}, query map[string]interface{}) (int64, error) {
	if len(query) == 0 {
		return 0, fmt.Errorf("refusing UPDATE without a condition on %s", tableName)
	}
	res := e.session(ctx).Table(tableName).Where(query).Updates(columns)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (e *executor) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	return e.ExecuteQueryAdvanced(ctx, target, query, "", 0)
}

func (e *executor) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	db := applyTableName(e.db.WithContext(ctx), target)
	if len(query) > 0 {
		db = db.Where(query)
	}
	if orderBy != "" {
		db = db.Order(orderBy)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db.Find(target).Error
}

func (e *executor) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	db := applyTableName(e.db.WithContext(ctx), model)
	if len(query) > 0 {
		db = db.Where(query)
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// GormDBAdapter is a named connection backed by gorm.
type GormDBAdapter struct {
	executor
	sqlDB *sql.DB
	cfg   database.DatabaseConfig
	name  string
}

// NewGormDBAdapter wraps an opened gorm handle.
func NewGormDBAdapter(db *gorm.DB, cfg database.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB for '%s': %w", name, err)
	}
	return &GormDBAdapter{executor: executor{db: db}, sqlDB: sqlDB, cfg: cfg, name: name}, nil
}

// GormDB exposes the handle for migrations and tests.
func (a *GormDBAdapter) GormDB() *gorm.DB { return a.db }

func (a *GormDBAdapter) Name() string                    { return a.name }
func (a *GormDBAdapter) Type() string                    { return a.cfg.Type }
func (a *GormDBAdapter) Config() database.DatabaseConfig { return a.cfg }

func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("connection '%s' is not initialized", a.name)
	}
	return a.sqlDB, nil
}

func (a *GormDBAdapter) Close() error {
	if a.sqlDB == nil {
		return nil
	}
	logger.Infof("Closing database connection '%s'.", a.name)
	return a.sqlDB.Close()
}

func (a *GormDBAdapter) Transaction(ctx context.Context, fn func(tx database.DBExecutor) error) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&executor{db: tx})
	})
}

// IsTableNotExistError matches the missing-table errors of sqlite, postgres and mysql.
func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		(strings.Contains(msg, "table") && strings.Contains(msg, "doesn't exist"))
}
