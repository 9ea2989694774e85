package ingest

import (
	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/export/process"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/metrics"
)

// ImporterParams are the dependencies of the importer.
type ImporterParams struct {
	fx.In
	Repo     repository.BatchRepository
	Storage  fedora.Storage
	Config   *config.Config
	Recorder metrics.MetricRecorder `optional:"true"`
	Tracer   metrics.Tracer         `optional:"true"`
}

// Module provides the staging area, the loader and the importer, which also
// serves as the import side of the batch router.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config) *Staging { return NewStaging(cfg.ProArc.Import.StagingRoot) }),
	fx.Provide(NewLoader),
	fx.Provide(func(p ImporterParams, staging *Staging) *Importer {
		return NewImporter(p.Repo, p.Storage, staging, p.Recorder, p.Tracer)
	}),
	fx.Provide(func(im *Importer) process.Importer { return im }),
)
