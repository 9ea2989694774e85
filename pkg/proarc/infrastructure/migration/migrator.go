// Package migration applies the embedded ProArc schema with golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

//go:embed resources
var resources embed.FS

// MigrationsTable records the applied schema version.
const MigrationsTable = "proarc_schema_migrations"

// Migrator upgrades or downgrades the schema of one connection.
type Migrator struct {
	conn database.DBConnection
}

// NewMigrator creates a migrator for conn.
func NewMigrator(conn database.DBConnection) *Migrator {
	return &Migrator{conn: conn}
}

func driverFor(dbType string, db *sql.DB) (migratedb.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(db, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: MigrationsTable})
	}
	return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
}

func (m *Migrator) instance() (*migrate.Migrate, error) {
	db, err := m.conn.GetSQLDB()
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(resources, "resources/"+m.conn.Type())
	if err != nil {
		return nil, fmt.Errorf("no migrations for database type %s: %w", m.conn.Type(), err)
	}
	drv, err := driverFor(m.conn.Type(), db)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, m.conn.Type(), drv)
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	inst, err := m.instance()
	if err != nil {
		return err
	}
	logger.Infof("Applying schema migrations on '%s' (%s).", m.conn.Name(), m.conn.Type())
	if err := inst.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration of '%s' failed: %w", m.conn.Name(), err)
	}
	v, dirty, _ := inst.Version()
	logger.Infof("Schema of '%s' at version %d (dirty=%t).", m.conn.Name(), v, dirty)
	return nil
}

// Down rolls back the given number of steps.
func (m *Migrator) Down(ctx context.Context, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	inst, err := m.instance()
	if err != nil {
		return err
	}
	if err := inst.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback of '%s' failed: %w", m.conn.Name(), err)
	}
	return nil
}

// Version reports the applied schema version.
func (m *Migrator) Version() (uint, bool, error) {
	inst, err := m.instance()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := inst.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
