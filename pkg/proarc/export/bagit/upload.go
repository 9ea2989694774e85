package bagit

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/proarc/proarc/pkg/proarc/adapter/storage"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// Uploader sends bags to the configured long-term preservation storage.
type Uploader struct {
	resolver storage.StorageConnectionResolver
	cfg      config.LTPConfig
}

// NewUploader creates an uploader for the LTP settings of cfg.
func NewUploader(resolver storage.StorageConnectionResolver, cfg *config.ExportConfig) *Uploader {
	return &Uploader{resolver: resolver, cfg: cfg.LTP}
}

// Enabled reports whether uploads are configured.
func (u *Uploader) Enabled() bool { return u != nil && u.cfg.Enabled && u.cfg.StorageRef != "" }

// Upload stores the archive and its checksum sidecar under the configured
// prefix. A failed sidecar upload removes the already uploaded archive.
func (u *Uploader) Upload(ctx context.Context, bag *Bag) error {
	conn, err := u.resolver.ResolveStorageConnection(ctx, u.cfg.StorageRef)
	if err != nil {
		return exception.NewExportError("", "", "cannot resolve LTP storage", err)
	}
	zipKey := path.Join(u.cfg.Prefix, filepath.Base(bag.Zip))
	if err := u.put(ctx, conn, bag.Zip, zipKey, "application/zip"); err != nil {
		return exception.NewExportError("", "", "cannot upload "+zipKey, err)
	}
	sumKey := path.Join(u.cfg.Prefix, filepath.Base(bag.ChecksumFile()))
	if err := u.put(ctx, conn, bag.ChecksumFile(), sumKey, "text/plain"); err != nil {
		var result *multierror.Error
		result = multierror.Append(result, err)
		if delErr := conn.DeleteObject(ctx, u.cfg.Bucket, zipKey); delErr != nil {
			result = multierror.Append(result, delErr)
		}
		return exception.NewExportError("", "", "cannot upload "+sumKey, result.ErrorOrNil())
	}
	logger.Infof("Uploaded bag %s to '%s' (%s).", bag.Name, u.cfg.StorageRef, zipKey)
	return nil
}

func (u *Uploader) put(ctx context.Context, conn storage.StorageConnection, file, key, contentType string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return conn.Upload(ctx, u.cfg.Bucket, key, f, contentType)
}
