package gorm

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// ConnectionResolver picks the provider by the configured type of a
// connection and re-opens connections that fail a ping.
type ConnectionResolver struct {
	providers map[string]database.DBProvider
	cfg       *config.Config
}

// ResolverParams are the fx inputs of NewConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []database.DBProvider `group:"db_providers"`
	Cfg       *config.Config
}

// NewConnectionResolver indexes the providers by type.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	m := make(map[string]database.DBProvider, len(p.Providers))
	for _, pr := range p.Providers {
		m[pr.Type()] = pr
	}
	return &ConnectionResolver{providers: m, cfg: p.Cfg}
}

// ResolveDBConnection implements database.DBConnectionResolver.
func (r *ConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	dbc, err := DecodeDatabaseConfig(r.cfg, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[dbc.Type]
	if !ok {
		return nil, fmt.Errorf("no database provider for type '%s' (connection '%s')", dbc.Type, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.GetSQLDB()
	if err != nil {
		return nil, err
	}
	if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		logger.Warnf("Connection '%s' failed ping (%v); reconnecting.", name, pingErr)
		return provider.ForceReconnect(name)
	}
	return conn, nil
}
