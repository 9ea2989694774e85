package main

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/adapter/database/gorm"
	"github.com/proarc/proarc/pkg/proarc/adapter/database/gorm/mysql"
	"github.com/proarc/proarc/pkg/proarc/adapter/database/gorm/postgres"
	"github.com/proarc/proarc/pkg/proarc/adapter/database/gorm/sqlite"
	"github.com/proarc/proarc/pkg/proarc/adapter/storage"
	"github.com/proarc/proarc/pkg/proarc/adapter/storage/gcs"
	"github.com/proarc/proarc/pkg/proarc/adapter/storage/local"
	"github.com/proarc/proarc/pkg/proarc/adapter/storage/s3"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/export/process"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/metrics"
	sqlrepo "github.com/proarc/proarc/pkg/proarc/infrastructure/repository/sql"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/telemetry"
	"github.com/proarc/proarc/pkg/proarc/ingest"
	"github.com/proarc/proarc/pkg/proarc/report"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
	"github.com/proarc/proarc/pkg/proarc/transform"
	"github.com/proarc/proarc/pkg/proarc/workflow"
)

const stopTimeout = 30 * time.Second

// appOptions assembles every module of the application. Commands add their
// own invokes on top.
func appOptions(envFilePath string) fx.Option {
	return fx.Options(
		logger.Module,
		fx.Supply(config.EmbeddedConfig(embeddedConfig)),
		fx.Supply(fx.Annotated{Name: "envFilePath", Target: envFilePath}),
		config.Module,

		gorm.Module,
		sqlite.Module,
		postgres.Module,
		mysql.Module,
		storage.Module,
		local.Module,
		gcs.Module,
		s3.Module,

		telemetry.Module,
		fx.Invoke(func(*telemetry.Providers) {}),
		metrics.Module,

		sqlrepo.Module,
		fedora.Module,
		transform.Module,
		workflow.Module,
		process.Module,
		ingest.Module,
		report.Module,
	)
}

// withApp builds the application, fills targets (pointers to components),
// starts it, calls run and stops it again.
func withApp(ctx context.Context, envFilePath string, run func(context.Context) error, targets ...interface{}) error {
	app := fx.New(appOptions(envFilePath), fx.Populate(targets...))
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			logger.Warnf("Shutdown: %v", err)
		}
	}()
	return run(ctx)
}
