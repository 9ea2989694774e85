// Package database defines the persistence ports used by the ProArc
// repositories. Implementations live in sub-packages (gorm).
package database

import (
	"context"
	"database/sql"
)

// DBExecutor runs queries expressed as column maps so that repositories stay
// independent of the ORM.
type DBExecutor interface {
	// ExecuteUpdate performs "CREATE" or "DELETE" of model in tableName.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)
	// ExecuteUpdateColumns sets columns on rows matching query. It is the
	// building block of optimistic updates (query includes the old version).
	ExecuteUpdateColumns(ctx context.Context, tableName string, columns map[string]interface{}, query map[string]interface{}) (rowsAffected int64, err error)
	// ExecuteQuery loads all rows matching query into target (a slice pointer).
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error
	// ExecuteQueryAdvanced adds ordering and a limit (<= 0 means none).
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection is one open, named database connection.
type DBConnection interface {
	DBExecutor
	Name() string
	Type() string
	Close() error
	Config() DatabaseConfig
	GetSQLDB() (*sql.DB, error)
	// Transaction runs fn inside a transaction; fn receives an executor bound to it.
	Transaction(ctx context.Context, fn func(tx DBExecutor) error) error
	IsTableNotExistError(err error) bool
}

// DBProvider opens connections of one database type.
type DBProvider interface {
	Type() string
	GetConnection(name string) (DBConnection, error)
	ForceReconnect(name string) (DBConnection, error)
	CloseAll() error
}

// DBConnectionResolver finds the connection for a logical name such as "metadata".
type DBConnectionResolver interface {
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProviderGroup is the fx value group collecting DBProviders.
const DBProviderGroup = "db_providers"
