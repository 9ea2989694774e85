package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

const moduleName = "config"

// ExternalConfigEnv names an optional YAML file layered over the embedded one.
const ExternalConfigEnv = "PROARC_CONFIG"

// ConfigParams are the fx inputs of NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig builds the configuration: defaults, embedded YAML, the file
// named by PROARC_CONFIG, then PROARC_* environment overrides.
func LoadConfig(envFilePath string, embedded EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}

	cfg := NewConfig()
	if err := overlayYAML(cfg, embedded); err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to parse embedded configuration", err)
	}
	if path := os.Getenv(ExternalConfigEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, exception.NewConfigurationError(moduleName, fmt.Sprintf("failed to read %s", path), err)
		}
		if err := overlayYAML(cfg, data); err != nil {
			return nil, exception.NewConfigurationError(moduleName, fmt.Sprintf("failed to parse %s", path), err)
		}
	}
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to apply environment overrides", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigProvider loads the configuration for fx and applies the log level.
func NewConfigProvider(p ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(p.EnvFilePath, p.EmbeddedConfig)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.ProArc.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.ProArc.System.Logging.Level)
	return cfg, nil
}

// overlayYAML unmarshals data over cfg. yaml.v3 keeps fields that the
// document does not mention, so defaults survive; adapter maps are merged
// key by key instead of being replaced.
func overlayYAML(cfg *Config, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	db := cfg.ProArc.Database
	st := cfg.ProArc.Storage
	if err := yaml.Unmarshal(ExpandEnvironment(data), cfg); err != nil {
		return err
	}
	cfg.ProArc.Database = mergeMaps(db, cfg.ProArc.Database)
	cfg.ProArc.Storage = mergeMaps(st, cfg.ProArc.Storage)
	return nil
}

func mergeMaps(dest, src map[string]interface{}) map[string]interface{} {
	if dest == nil {
		dest = map[string]interface{}{}
	}
	for k, v := range src {
		dest[k] = v
	}
	return dest
}

func validate(cfg *Config) error {
	switch cfg.ProArc.Repository.Type {
	case "fedora":
		if cfg.ProArc.Repository.Fedora.URL == "" {
			return exception.NewConfigurationError(moduleName, "repository.fedora.url is required for the fedora repository type", nil)
		}
	case "akubra":
		if cfg.ProArc.Repository.Akubra.Root == "" {
			return exception.NewConfigurationError(moduleName, "repository.akubra.root is required for the akubra repository type", nil)
		}
	default:
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("unknown repository type '%s'", cfg.ProArc.Repository.Type), nil)
	}
	if cfg.ProArc.Workers.PoolSize < 1 {
		return exception.NewConfigurationError(moduleName, "workers.pool_size must be at least 1", nil)
	}
	if cfg.ProArc.Export.LTP.Enabled && cfg.ProArc.Export.LTP.StorageRef == "" {
		return exception.NewConfigurationError(moduleName, "export.ltp.storage_ref is required when LTP upload is enabled", nil)
	}
	return nil
}

// loadStructFromEnv walks val and sets every field whose upper-cased yaml path
// (joined by "_") is present in the environment, e.g.
// PROARC_EXPORT_NDK_DELETE_PACKAGE_ON_MISSING_URNNBN=true.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		tag := strings.Split(typ.Field(i).Tag.Get("yaml"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.ToUpper(prefix + tag)
		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, name+"_"); err != nil {
				return err
			}
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("failed to set %s from %s: %w", typ.Field(i).Name, name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(value, ",")
		s := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				s = reflect.Append(s, reflect.ValueOf(p))
			}
		}
		field.Set(s)
	}
	return nil
}
