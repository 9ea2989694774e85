// Package gcs stores objects in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/fx"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/proarc/proarc/pkg/proarc/adapter/storage"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// ProviderType identifies the GCS backend in configuration.
const ProviderType = "gcs"

type gcsAdapter struct {
	client *gcs.Client
	cfg    storage.StorageConfig
	name   string
}

var _ storage.StorageConnection = (*gcsAdapter)(nil)

// ClientOptions derives client options from cfg. An endpoint without a
// credentials file is treated as an emulator and skips authentication.
func ClientOptions(cfg storage.StorageConfig) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
		if cfg.CredentialsFile == "" {
			opts = append(opts, option.WithoutAuthentication())
		}
	}
	return opts
}

// NewGCSAdapter opens a client for cfg.
func NewGCSAdapter(ctx context.Context, cfg storage.StorageConfig, name string) (storage.StorageConnection, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("gcs storage adapter '%s': bucket_name must be specified", name)
	}
	client, err := gcs.NewClient(ctx, ClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': %w", name, err)
	}
	return &gcsAdapter{client: client, cfg: cfg, name: name}, nil
}

func (a *gcsAdapter) Close() error                  { return a.client.Close() }
func (a *gcsAdapter) Type() string                  { return ProviderType }
func (a *gcsAdapter) Name() string                  { return a.name }
func (a *gcsAdapter) Config() storage.StorageConfig { return a.cfg }

func (a *gcsAdapter) bucket(name string) *gcs.BucketHandle {
	if name == "" {
		name = a.cfg.BucketName
	}
	return a.client.Bucket(name)
}

func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := a.bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload '%s' to gcs: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish upload of '%s' to gcs: %w", objectName, err)
	}
	logger.Debugf("Uploaded '%s' (gcs adapter '%s').", objectName, a.name)
	return nil
}

func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := a.bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s' in gcs: %w", objectName, err)
	}
	return r, nil
}

func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	it := a.bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gcs objects with prefix '%s': %w", prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := a.bucket(bucket).Object(objectName).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		logger.Warnf("Attempted to delete non-existent object '%s' (gcs adapter '%s').", objectName, a.name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete '%s' from gcs: %w", objectName, err)
	}
	return nil
}

// NewGCSProvider creates the provider for "gcs" connections.
func NewGCSProvider(cfg *config.Config) *storage.BaseProvider {
	return storage.NewBaseProvider(cfg, ProviderType, NewGCSAdapter)
}

// Module contributes the GCS provider to the storage_providers group.
var Module = fx.Provide(fx.Annotate(
	NewGCSProvider,
	fx.As(new(storage.StorageProvider)),
	fx.ResultTags(`group:"storage_providers"`),
))
