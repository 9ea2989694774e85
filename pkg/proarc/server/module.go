package server

import (
	"context"

	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/metrics"
)

// Module runs the ops server for the lifetime of the application.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, repo repository.BatchRepository, rec *metrics.PrometheusRecorder) *Server {
		return New(cfg.ProArc.Server.Address, repo, rec.Handler())
	}),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				s.Start()
				return nil
			},
			OnStop: s.Shutdown,
		})
	}),
)
