package gorm

import (
	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
)

// Module provides the connection resolver. Driver sub-packages contribute
// providers to the db_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
	)),
	fx.Invoke(func(lc fx.Lifecycle, p ResolverParams) {
		lc.Append(fx.StopHook(func() error {
			var last error
			for _, pr := range p.Providers {
				if err := pr.CloseAll(); err != nil {
					last = err
				}
			}
			return last
		}))
	}),
)
