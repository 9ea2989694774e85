package config

import "go.uber.org/fx"

// Module exposes the configuration and frequently used sub-trees to fx.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(func(cfg *Config) *ExportConfig { return &cfg.ProArc.Export }),
	fx.Provide(func(cfg *Config) *RepositoryConfig { return &cfg.ProArc.Repository }),
	fx.Provide(func(cfg *Config) *WorkerConfig { return &cfg.ProArc.Workers }),
)
