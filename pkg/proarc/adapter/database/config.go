package database

// PoolConfig sizes the sql.DB connection pool.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig describes one named connection under proarc.database.
type DatabaseConfig struct {
	// Type is "sqlite", "postgres" or "mysql".
	Type     string     `yaml:"type"`
	Host     string     `yaml:"host"`
	Port     int        `yaml:"port"`
	Database string     `yaml:"database"`
	User     string     `yaml:"user"`
	Password string     `yaml:"password"`
	Sslmode  string     `yaml:"sslmode"`
	LogLevel string     `yaml:"log_level"`
	Pool     PoolConfig `yaml:"pool"`
}
