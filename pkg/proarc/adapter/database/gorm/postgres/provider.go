// Package postgres registers the PostgreSQL dialector and provider.
package postgres

import (
	"fmt"

	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	gormadapter "github.com/proarc/proarc/pkg/proarc/adapter/database/gorm"
	"github.com/proarc/proarc/pkg/proarc/core/config"
)

func init() {
	gormadapter.RegisterDialector("postgres", func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(DSN(cfg)), nil
	})
}

// DSN renders a libpq keyword/value connection string.
func DSN(c database.DatabaseConfig) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
}

// URL renders the connection as a postgres:// URL for golang-migrate.
func URL(c database.DatabaseConfig) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Database, sslmode)
}

// NewProvider creates the postgres DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, "postgres")
}

// Module contributes the provider to the db_providers group.
var Module = fx.Provide(fx.Annotate(
	NewProvider,
	fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
))
