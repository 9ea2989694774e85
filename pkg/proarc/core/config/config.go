// Package config holds the ProArc configuration tree and its loader.
package config

// EmbeddedConfig is the raw application.yaml compiled into the binary.
type EmbeddedConfig []byte

// LoggingConfig selects the logger threshold.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// FedoraConfig points at a remote Fedora 3 REST endpoint.
type FedoraConfig struct {
	URL            string `yaml:"url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AkubraConfig locates a local content-addressable object store.
type AkubraConfig struct {
	Root string `yaml:"root"`
	// Depth is the number of hash-path directory levels.
	Depth int `yaml:"depth"`
}

// RepositoryConfig selects the digital object backend.
type RepositoryConfig struct {
	// Type is "fedora" or "akubra".
	Type   string       `yaml:"type"`
	Fedora FedoraConfig `yaml:"fedora"`
	Akubra AkubraConfig `yaml:"akubra"`
}

// NdkConfig controls NDK (PSP/SIP/STT) packaging.
type NdkConfig struct {
	DeletePackageOnMissingURNNBN bool   `yaml:"delete_package_on_missing_urnnbn"`
	AllowMissingURNNBN           bool   `yaml:"allow_missing_urnnbn"`
	AllowMissingStreams          bool   `yaml:"allow_missing_streams"`
	Creator                      string `yaml:"creator"`
	Archivist                    string `yaml:"archivist"`
}

// ArchiveConfig controls archive packaging.
type ArchiveConfig struct {
	Bagit bool `yaml:"bagit"`
}

// KrameriusConfig controls Kramerius 4 FOXML export.
type KrameriusConfig struct {
	Policy             string   `yaml:"policy"`
	ExcludeDatastreams []string `yaml:"exclude_datastreams"`
}

// KwisConfig controls the Kramerius-with-image-server variant.
type KwisConfig struct {
	// ImageURLTemplate receives the object uuid via {uuid}.
	ImageURLTemplate string `yaml:"image_url_template"`
}

// CrossrefConfig identifies the depositor of DOI batches.
type CrossrefConfig struct {
	Depositor  string `yaml:"depositor"`
	Email      string `yaml:"email"`
	Registrant string `yaml:"registrant"`
	// ResourceURLTemplate builds the landing page of an article via {uuid}.
	ResourceURLTemplate string `yaml:"resource_url_template"`
}

// CejshConfig controls CEJSH bwmeta export.
type CejshConfig struct {
	Zip bool `yaml:"zip"`
}

// DesaConfig controls DESA SIP packaging.
type DesaConfig struct {
	Producer string `yaml:"producer"`
}

// BagitConfig fills bag-info.txt.
type BagitConfig struct {
	SourceOrganization string `yaml:"source_organization"`
	ContactEmail       string `yaml:"contact_email"`
}

// LTPConfig configures the long-term-preservation upload of NDK bags.
type LTPConfig struct {
	Enabled    bool   `yaml:"enabled"`
	StorageRef string `yaml:"storage_ref"`
	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
}

// ExportConfig groups all producer settings.
type ExportConfig struct {
	// Root is the per-user export root; user folders are created below it.
	Root      string          `yaml:"root"`
	NDK       NdkConfig       `yaml:"ndk"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Kramerius KrameriusConfig `yaml:"kramerius"`
	Kwis      KwisConfig      `yaml:"kwis"`
	Crossref  CrossrefConfig  `yaml:"crossref"`
	Cejsh     CejshConfig     `yaml:"cejsh"`
	Desa      DesaConfig      `yaml:"desa"`
	Bagit     BagitConfig     `yaml:"bagit"`
	LTP       LTPConfig       `yaml:"ltp"`
}

// ImportConfig controls the staging area for FedoraImport.
type ImportConfig struct {
	StagingRoot string `yaml:"staging_root"`
}

// WorkerConfig sizes the batch dispatcher.
type WorkerConfig struct {
	PoolSize            int `yaml:"pool_size"`
	QueueSize           int `yaml:"queue_size"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

// InfrastructureConfig names the database connections used by each repository.
type InfrastructureConfig struct {
	BatchDBRef    string `yaml:"batch_db_ref"`
	WorkflowDBRef string `yaml:"workflow_db_ref"`
	// ReportStorageRef names the storage adapter for batch reports.
	ReportStorageRef string `yaml:"report_storage_ref"`
}

// ReportConfig places the batch history report.
type ReportConfig struct {
	OutputBaseDir   string `yaml:"output_base_dir"`
	CompressionType string `yaml:"compression_type"`
}

// SecurityConfig lists batch parameter keys that are masked when persisted.
type SecurityConfig struct {
	MaskedParameterKeys []string `yaml:"masked_parameter_keys"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	// Exporter is "none", "otlp-grpc" or "otlp-http".
	Exporter              string `yaml:"exporter"`
	Endpoint              string `yaml:"endpoint"`
	Insecure              bool   `yaml:"insecure"`
	ServiceName           string `yaml:"service_name"`
	MetricIntervalSeconds int    `yaml:"metric_interval_seconds"`
	Prometheus            bool   `yaml:"prometheus"`
}

// ServerConfig configures the operations HTTP endpoint.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// ProArcConfig is everything under the top-level "proarc" key.
type ProArcConfig struct {
	System         SystemConfig         `yaml:"system"`
	Repository     RepositoryConfig     `yaml:"repository"`
	Export         ExportConfig         `yaml:"export"`
	Import         ImportConfig         `yaml:"import"`
	Workers        WorkerConfig         `yaml:"workers"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Report         ReportConfig         `yaml:"report"`
	Security       SecurityConfig       `yaml:"security"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	Server         ServerConfig         `yaml:"server"`
	// Database maps connection names to adapter property maps.
	Database map[string]interface{} `yaml:"database"`
	// Storage maps storage adapter names to adapter property maps.
	Storage map[string]interface{} `yaml:"storage"`
}

// Config is the root of the configuration tree.
type Config struct {
	ProArc ProArcConfig `yaml:"proarc"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		ProArc: ProArcConfig{
			System: SystemConfig{
				Timezone: "Europe/Prague",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Repository: RepositoryConfig{
				Type:   "akubra",
				Fedora: FedoraConfig{TimeoutSeconds: 60},
				Akubra: AkubraConfig{Root: "data/akubra", Depth: 2},
			},
			Export: ExportConfig{
				Root:      "data/export",
				NDK:       NdkConfig{Creator: "ProArc", Archivist: "ProArc"},
				Archive:   ArchiveConfig{Bagit: true},
				Kramerius: KrameriusConfig{Policy: "policy:private", ExcludeDatastreams: []string{"NDK_ARCHIVAL", "NDK_USER", "RAW", "ALTO"}},
				Kwis:      KwisConfig{ImageURLTemplate: "http://localhost/imageserver/{uuid}/full.jpg"},
				Crossref:  CrossrefConfig{ResourceURLTemplate: "http://localhost/search/uuid/{uuid}"},
				Cejsh:     CejshConfig{Zip: true},
				Desa:      DesaConfig{Producer: "ProArc"},
				Bagit:     BagitConfig{SourceOrganization: "ProArc"},
			},
			Import:         ImportConfig{StagingRoot: "data/import"},
			Workers:        WorkerConfig{PoolSize: 2, QueueSize: 64, PollIntervalSeconds: 30},
			Infrastructure: InfrastructureConfig{BatchDBRef: "metadata", WorkflowDBRef: "metadata", ReportStorageRef: "reports"},
			Report:         ReportConfig{OutputBaseDir: "batches", CompressionType: "SNAPPY"},
			Security:       SecurityConfig{MaskedParameterKeys: []string{"password", "token", "secret"}},
			Telemetry:      TelemetryConfig{Exporter: "none", ServiceName: "proarc", MetricIntervalSeconds: 60, Prometheus: true},
			Server:         ServerConfig{Address: ":8090"},
			Database:       map[string]interface{}{},
			Storage:        map[string]interface{}{},
		},
	}
}
