// Package ndk produces packages for the national digital library: PSP for
// digitized documents, SIP for born-digital ones and STT for old prints.
package ndk

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/mets"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
	"github.com/proarc/proarc/pkg/proarc/transform"
)

// Producer serves the NDK profile.
type Producer struct {
	storage fedora.Storage
	engine  *transform.Engine
	cfg     config.NdkConfig
	now     func() time.Time
}

// NewProducer creates the producer.
func NewProducer(storage fedora.Storage, engine *transform.Engine, cfg *config.ExportConfig) *Producer {
	return &Producer{storage: storage, engine: engine, cfg: cfg.NDK, now: time.Now}
}

// Export writes one package per requested PID into a new ndk_<variant>_<n>
// folder.
func (p *Producer) Export(ctx context.Context, req export.Request) ([]export.Result, error) {
	variant, ok := VariantOf(req.Params.NdkVariant)
	if !ok {
		return nil, exception.NewConfigurationError("export.ndk", fmt.Sprintf("unknown NDK variant '%s'", req.Params.NdkVariant), nil)
	}
	folder, err := export.CreateFolder(req.OutputDir, "ndk_"+variant.Name)
	if err != nil {
		return nil, err
	}
	r := rules{
		variant:             variant,
		allowMissingURNNBN:  p.cfg.AllowMissingURNNBN || req.Params.IgnoreMissingURNNBN,
		allowMissingStreams: p.cfg.AllowMissingStreams,
	}
	results := make([]export.Result, 0, len(req.PIDs))
	for _, pid := range req.PIDs {
		results = append(results, p.exportRoot(ctx, pid, folder, r))
	}
	return results, nil
}

func (p *Producer) exportRoot(ctx context.Context, pid, folder string, r rules) export.Result {
	log := logger.WithFields(map[string]interface{}{"pid": pid, "variant": r.variant.Name})
	elem, err := export.LoadTree(ctx, p.storage, pid, mets.Options{
		OutputPath:          folder,
		AllowMissingURNNBN:  r.allowMissingURNNBN,
		AllowMissingStreams: r.allowMissingStreams,
	})
	if err != nil {
		log.Errorf("Cannot resolve package tree: %v", err)
		return export.Failed(pid, folder, err)
	}
	invalid, err := r.validate(elem)
	if err != nil {
		return export.Failed(pid, folder, err)
	}
	if invalid.Failed() {
		log.Warnf("Package is not valid: %v", invalid)
		return export.Invalid(pid, folder, invalid)
	}
	w := &packageWriter{engine: p.engine, cfg: p.cfg, variant: r.variant, created: p.now()}
	target := filepath.Join(folder, fedora.UUID(pid))
	if err := w.write(ctx, elem, target); err != nil {
		log.Errorf("Package export failed: %v", err)
		return export.Failed(pid, folder, err)
	}
	log.Infof("Exported %d pages to %s.", w.pages, target)
	return export.Success(pid, folder, target, w.pages)
}
