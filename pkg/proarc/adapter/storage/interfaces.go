// Package storage defines the object storage ports used for long-term
// preservation uploads and batch reports. Backends live in sub-packages
// (local, gcs, s3) and register providers in the storage_providers group.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic object operations.
type StorageExecutor interface {
	// Upload stores data under bucket/objectName. An empty bucket selects the
	// configured default.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download returns a reader the caller must close.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object name under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is one open, named storage connection.
type StorageConnection interface {
	StorageExecutor
	Name() string
	Type() string
	Close() error
	Config() StorageConfig
}

// StorageProvider opens connections of one storage type.
type StorageProvider interface {
	Type() string
	GetConnection(name string) (StorageConnection, error)
	ForceReconnect(name string) (StorageConnection, error)
	CloseAll() error
}

// StorageConnectionResolver finds the connection for a logical name such as
// "ltp" or "reports".
type StorageConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// StorageProviderGroup is the fx value group collecting StorageProviders.
const StorageProviderGroup = "storage_providers"
