package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/adapter/storage"
)

func TestClientOptions(t *testing.T) {
	assert.Empty(t, ClientOptions(storage.StorageConfig{}))
	assert.Len(t, ClientOptions(storage.StorageConfig{Endpoint: "http://localhost:4443/storage/v1/"}), 2)
	assert.Len(t, ClientOptions(storage.StorageConfig{Endpoint: "http://x", CredentialsFile: "key.json"}), 2)
}

func TestNewGCSAdapterRequiresBucket(t *testing.T) {
	_, err := NewGCSAdapter(context.Background(), storage.StorageConfig{Type: ProviderType}, "ltp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket_name")
}

func TestNewGCSAdapterAgainstEmulator(t *testing.T) {
	conn, err := NewGCSAdapter(context.Background(), storage.StorageConfig{
		Type: ProviderType, BucketName: "ltp", Endpoint: "http://127.0.0.1:1/storage/v1/",
	}, "ltp")
	require.NoError(t, err)
	assert.Equal(t, ProviderType, conn.Type())
	assert.Equal(t, "ltp", conn.Config().BucketName)
	assert.NoError(t, conn.Close())
}
