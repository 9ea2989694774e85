package process

import (
	"context"

	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/adapter/storage"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/export/archive"
	"github.com/proarc/proarc/pkg/proarc/export/bagit"
	"github.com/proarc/proarc/pkg/proarc/export/cejsh"
	"github.com/proarc/proarc/pkg/proarc/export/crossref"
	"github.com/proarc/proarc/pkg/proarc/export/datastream"
	"github.com/proarc/proarc/pkg/proarc/export/desa"
	"github.com/proarc/proarc/pkg/proarc/export/kramerius"
	"github.com/proarc/proarc/pkg/proarc/export/ndk"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/metrics"
	"github.com/proarc/proarc/pkg/proarc/transform"
	"github.com/proarc/proarc/pkg/proarc/workflow"
)

// NewProducerRegistry maps every export profile to its producer.
func NewProducerRegistry(st fedora.Storage, engine *transform.Engine, cfg *config.ExportConfig) (*export.Registry, error) {
	return export.NewRegistry(map[model.Profile]export.Producer{
		model.ProfileDatastream: datastream.NewProducer(st),
		model.ProfileNDK:        ndk.NewProducer(st, engine, cfg),
		model.ProfileArchive:    archive.NewProducer(st, cfg.NDK.Creator),
		model.ProfileDESA:       desa.NewProducer(st, cfg),
		model.ProfileKramerius:  kramerius.NewProducer(st, engine, cfg),
		model.ProfileKWIS:       kramerius.NewKwisProducer(st, engine, cfg),
		model.ProfileCEJSH:      cejsh.NewProducer(st, cfg),
		model.ProfileCrossref:   crossref.NewProducer(st, cfg),
	})
}

// ProcessParams are the dependencies of the export process.
type ProcessParams struct {
	fx.In
	Repo     repository.BatchRepository
	Registry *export.Registry
	Config   *config.ExportConfig
	Storage  storage.StorageConnectionResolver
	Finisher workflow.TaskFinisher  `optional:"true"`
	Recorder metrics.MetricRecorder `optional:"true"`
	Tracer   metrics.Tracer         `optional:"true"`
}

// NewProcessFromParams builds the process for fx.
func NewProcessFromParams(p ProcessParams) *Process {
	return New(p.Repo, p.Registry, p.Config, Options{
		Uploader: bagit.NewUploader(p.Storage, p.Config),
		Finisher: p.Finisher,
		Recorder: p.Recorder,
		Tracer:   p.Tracer,
	})
}

// RouterParams are the dependencies of the router.
type RouterParams struct {
	fx.In
	Repo     repository.BatchRepository
	Process  *Process
	Importer Importer `optional:"true"`
}

// Module provides the registry, the process, the router and the submitter.
var Module = fx.Options(
	fx.Provide(NewProducerRegistry),
	fx.Provide(NewProcessFromParams),
	fx.Provide(func(p RouterParams) *Router { return NewRouter(p.Repo, p.Process, p.Importer) }),
	fx.Provide(func(r *Router, repo repository.BatchRepository, cfg *config.WorkerConfig) *Dispatcher {
		return NewDispatcher(r, repo, *cfg)
	}),
	fx.Provide(func(repo repository.BatchRepository, d *Dispatcher) *Submitter { return NewSubmitter(repo, d) }),
)

// WorkerModule starts the dispatcher with the application and resumes
// unfinished batches.
var WorkerModule = fx.Invoke(func(lc fx.Lifecycle, d *Dispatcher, r *Router) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			d.Start(context.Background())
			return r.ResumeAll(ctx, d)
		},
		OnStop: func(ctx context.Context) error {
			d.Stop()
			return nil
		},
	})
})
