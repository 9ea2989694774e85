package storage

import (
	"fmt"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/configbinder"
)

// StorageConfig describes one named connection under proarc.storage.
type StorageConfig struct {
	// Type is "local", "gcs" or "s3".
	Type       string `yaml:"type"`
	BucketName string `yaml:"bucket_name"`
	// BaseDir is the root directory of the local adapter.
	BaseDir string `yaml:"base_dir"`
	// CredentialsFile is a GCS service account key.
	CredentialsFile string `yaml:"credentials_file"`
	Region          string `yaml:"region"`
	// Endpoint overrides the service URL (MinIO, fake GCS servers).
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// DecodeStorageConfig reads the named entry of proarc.storage.
func DecodeStorageConfig(cfg *config.Config, name string) (StorageConfig, error) {
	var sc StorageConfig
	raw, ok := cfg.ProArc.Storage[name]
	if !ok {
		return sc, fmt.Errorf("storage configuration '%s' not found", name)
	}
	props, ok := raw.(map[string]interface{})
	if !ok {
		return sc, fmt.Errorf("storage configuration '%s' must be a mapping, got %T", name, raw)
	}
	if err := configbinder.BindProperties(props, &sc); err != nil {
		return sc, fmt.Errorf("storage configuration '%s': %w", name, err)
	}
	return sc, nil
}
