package adapter

import (
	"context"
	"sort"
	"sync"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
)

// OpenFunc opens a connection for one configured store.
type OpenFunc func(ctx context.Context, config ConnectionConfig, log *logger.Logger) (Connection, error)

// Registry maps database types to the function that opens them.
type Registry struct {
	openers map[dbcapabilities.DatabaseType]OpenFunc
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		openers: make(map[dbcapabilities.DatabaseType]OpenFunc),
	}
}

// Register registers the opener for a database type, replacing any
// previous one.
func (r *Registry) Register(dbType dbcapabilities.DatabaseType, open OpenFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.openers[dbType] = open
}

// Get retrieves the opener for a database type.
func (r *Registry) Get(dbType dbcapabilities.DatabaseType) (OpenFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	open, exists := r.openers[dbType]
	if !exists {
		return nil, &UnsupportedTypeError{Type: string(dbType)}
	}
	return open, nil
}

// GetByName retrieves an opener by database name or alias.
func (r *Registry) GetByName(name string) (OpenFunc, error) {
	dbType, ok := dbcapabilities.ParseID(name)
	if !ok {
		return nil, &UnsupportedTypeError{Type: name}
	}
	return r.Get(dbType)
}

// IsRegistered checks if an opener is registered for the given type.
func (r *Registry) IsRegistered(dbType dbcapabilities.DatabaseType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.openers[dbType]
	return exists
}

// ListRegistered returns the registered database types, sorted.
func (r *Registry) ListRegistered() []dbcapabilities.DatabaseType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]dbcapabilities.DatabaseType, 0, len(r.openers))
	for dbType := range r.openers {
		types = append(types, dbType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Open opens a connection with the opener registered for config's type.
// Errors that are not already classified become connection errors.
func (r *Registry) Open(ctx context.Context, config ConnectionConfig, log *logger.Logger) (Connection, error) {
	open, err := r.Get(config.DatabaseType)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	conn, err := open(ctx, config, log)
	if err != nil {
		return nil, WrapError(KindConnection, config.DatabaseType, "connect", err)
	}
	return conn, nil
}
