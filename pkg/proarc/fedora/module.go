package fedora

import (
	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// Module provides the configured Storage.
var Module = fx.Options(
	fx.Provide(func(cfg *config.RepositoryConfig) (Storage, error) {
		st, err := NewStorage(cfg)
		if err != nil {
			return nil, err
		}
		logger.Infof("Digital object storage initialized (type: %s).", cfg.Type)
		return st, nil
	}),
)
