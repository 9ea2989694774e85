package sql

import (
	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
)

// Module provides the SQL BatchRepository on the configured batch connection.
var Module = fx.Provide(
	fx.Annotate(
		func(resolver database.DBConnectionResolver, cfg *config.Config) *SQLBatchRepository {
			return NewSQLBatchRepository(resolver, cfg.ProArc.Infrastructure.BatchDBRef)
		},
		fx.As(new(repository.BatchRepository)),
	),
)
