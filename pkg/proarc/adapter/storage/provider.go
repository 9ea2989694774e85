package storage

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// ConnectionFactory opens a connection for a decoded config.
type ConnectionFactory func(ctx context.Context, cfg StorageConfig, name string) (StorageConnection, error)

// BaseProvider caches connections of one storage type.
type BaseProvider struct {
	cfg         *config.Config
	storageType string
	factory     ConnectionFactory
	connections map[string]StorageConnection
	mu          sync.Mutex
}

// NewBaseProvider creates a provider for storageType.
func NewBaseProvider(cfg *config.Config, storageType string, factory ConnectionFactory) *BaseProvider {
	return &BaseProvider{
		cfg:         cfg,
		storageType: storageType,
		factory:     factory,
		connections: map[string]StorageConnection{},
	}
}

func (p *BaseProvider) Type() string { return p.storageType }

// GetConnection returns the cached connection or opens it.
func (p *BaseProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.connections[name]; ok {
		return c, nil
	}
	return p.open(name)
}

// ForceReconnect closes and reopens a connection.
func (p *BaseProvider) ForceReconnect(name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.connections[name]; ok {
		if err := c.Close(); err != nil {
			logger.Warnf("Failed to close storage connection '%s' before reconnect: %v", name, err)
		}
		delete(p.connections, name)
	}
	return p.open(name)
}

func (p *BaseProvider) open(name string) (StorageConnection, error) {
	sc, err := DecodeStorageConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if sc.Type != p.storageType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.storageType, sc.Type)
	}
	conn, err := p.factory(context.Background(), sc, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter for '%s': %w", p.storageType, name, err)
	}
	p.connections[name] = conn
	logger.Debugf("Created new %s storage connection '%s'.", p.storageType, name)
	return conn, nil
}

// CloseAll closes every cached connection.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var last error
	for name, c := range p.connections {
		if err := c.Close(); err != nil {
			logger.Errorf("Failed to close storage connection '%s': %v", name, err)
			last = err
		}
		delete(p.connections, name)
	}
	return last
}

// ConnectionResolver picks the provider by the configured type of a
// connection.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *config.Config
}

// ResolverParams are the fx inputs of NewConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *config.Config
}

// NewConnectionResolver indexes the providers by type.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	m := make(map[string]StorageProvider, len(p.Providers))
	for _, pr := range p.Providers {
		m[pr.Type()] = pr
	}
	return &ConnectionResolver{providers: m, cfg: p.Cfg}
}

// ResolveStorageConnection implements StorageConnectionResolver.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	sc, err := DecodeStorageConfig(r.cfg, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[sc.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", sc.Type, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, sc.Type, err)
	}
	return conn, nil
}

// Module provides the resolver and closes all providers on stop. Backend
// sub-packages contribute their providers to the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewConnectionResolver,
		fx.As(new(StorageConnectionResolver)),
	)),
	fx.Invoke(func(lc fx.Lifecycle, p ResolverParams) {
		lc.Append(fx.StopHook(func() error {
			var last error
			for _, pr := range p.Providers {
				if err := pr.CloseAll(); err != nil {
					last = err
				}
			}
			return last
		}))
	}),
)
