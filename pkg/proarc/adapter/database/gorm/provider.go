package gorm

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/configbinder"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// DialectorFactory builds a gorm dialector for a connection config.
type DialectorFactory func(cfg database.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectors  = map[string]DialectorFactory{}
	dialectorMu sync.RWMutex
)

// RegisterDialector is called from the init of each driver sub-package.
func RegisterDialector(dbType string, f DialectorFactory) {
	dialectorMu.Lock()
	defer dialectorMu.Unlock()
	if _, ok := dialectors[dbType]; ok {
		logger.Warnf("Dialector for '%s' registered twice; keeping the last one.", dbType)
	}
	dialectors[dbType] = f
}

func dialectorFor(dbType string) (DialectorFactory, error) {
	dialectorMu.RLock()
	defer dialectorMu.RUnlock()
	f, ok := dialectors[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type '%s'", dbType)
	}
	return f, nil
}

// DecodeDatabaseConfig reads the named entry of proarc.database.
func DecodeDatabaseConfig(cfg *config.Config, name string) (database.DatabaseConfig, error) {
	var dbc database.DatabaseConfig
	raw, ok := cfg.ProArc.Database[name]
	if !ok {
		return dbc, fmt.Errorf("database configuration '%s' not found", name)
	}
	props, ok := raw.(map[string]interface{})
	if !ok {
		return dbc, fmt.Errorf("database configuration '%s' must be a mapping, got %T", name, raw)
	}
	if err := configbinder.BindProperties(props, &dbc); err != nil {
		return dbc, fmt.Errorf("database configuration '%s': %w", name, err)
	}
	return dbc, nil
}

// BaseProvider caches connections of one database type.
type BaseProvider struct {
	cfg         *config.Config
	dbType      string
	connections map[string]database.DBConnection
	mu          sync.Mutex
}

// NewBaseProvider creates a provider for dbType.
func NewBaseProvider(cfg *config.Config, dbType string) *BaseProvider {
	return &BaseProvider{cfg: cfg, dbType: dbType, connections: map[string]database.DBConnection{}}
}

func (p *BaseProvider) Type() string { return p.dbType }

// GetConnection returns the cached connection or opens it.
func (p *BaseProvider) GetConnection(name string) (database.DBConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.connections[name]; ok {
		return c, nil
	}
	return p.open(name)
}

// ForceReconnect closes and reopens a connection.
func (p *BaseProvider) ForceReconnect(name string) (database.DBConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.connections[name]; ok {
		if err := c.Close(); err != nil {
			logger.Warnf("Failed to close connection '%s' before reconnect: %v", name, err)
		}
		delete(p.connections, name)
	}
	return p.open(name)
}

func (p *BaseProvider) open(name string) (database.DBConnection, error) {
	dbc, err := DecodeDatabaseConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if dbc.Type != p.dbType {
		return nil, fmt.Errorf("provider type mismatch: expected '%s', got '%s' for connection '%s'", p.dbType, dbc.Type, name)
	}
	db, err := Open(dbc)
	if err != nil {
		return nil, err
	}
	conn, err := NewGormDBAdapter(db, dbc, name)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Infof("Opened database connection '%s' (%s).", name, p.dbType)
	return conn, nil
}

// Open creates a gorm handle for dbc using the registered dialector.
func Open(dbc database.DatabaseConfig) (*gorm.DB, error) {
	factory, err := dialectorFor(dbc.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(dbc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s dialector: %w", dbc.Type, err)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(dbc.LogLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dbc.Type, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dbc.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbc.Pool.MaxOpenConns)
	}
	if dbc.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbc.Pool.MaxIdleConns)
	}
	if dbc.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbc.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

// CloseAll closes every cached connection.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var last error
	for name, c := range p.connections {
		if err := c.Close(); err != nil {
			logger.Errorf("Failed to close connection '%s': %v", name, err)
			last = err
		}
		delete(p.connections, name)
	}
	return last
}
