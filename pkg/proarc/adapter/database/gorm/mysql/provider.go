// Package mysql registers the MySQL dialector and provider.
package mysql

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	gormadapter "github.com/proarc/proarc/pkg/proarc/adapter/database/gorm"
	"github.com/proarc/proarc/pkg/proarc/core/config"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(DSN(cfg)), nil
	})
}

// DSN renders the go-sql-driver DSN with time parsing enabled.
func DSN(c database.DatabaseConfig) string {
	dc := mysqldriver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.MultiStatements = true
	return dc.FormatDSN()
}

// NewProvider creates the mysql DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, "mysql")
}

// Module contributes the provider to the db_providers group.
var Module = fx.Provide(fx.Annotate(
	NewProvider,
	fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
))
