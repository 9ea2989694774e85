// Package sqlite registers the SQLite dialector and provider.
package sqlite

import (
	"errors"

	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	gormadapter "github.com/proarc/proarc/pkg/proarc/adapter/database/gorm"
	"github.com/proarc/proarc/pkg/proarc/core/config"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("sqlite database path cannot be empty")
		}
		return sqlite.Open(DSN(cfg)), nil
	})
}

// DSN enables foreign keys and a busy timeout so concurrent workers wait on
// the write lock instead of failing.
func DSN(cfg database.DatabaseConfig) string {
	if cfg.Database == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=on"
	}
	return cfg.Database + "?_foreign_keys=on&_busy_timeout=5000"
}

// NewProvider creates the sqlite DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, "sqlite")
}

// Module contributes the provider to the db_providers group.
var Module = fx.Provide(fx.Annotate(
	NewProvider,
	fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
))
