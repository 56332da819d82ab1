package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/logger"
)

// connectTimeout bounds each store's initial connect.
const connectTimeout = 15 * time.Second

// Registry holds the live connection of every store that opened. It is
// read-only after Build.
type Registry struct {
	conns map[string]adapter.Connection
	names []string
}

// Build opens every store in order. A store that fails to open is logged
// and left out.
func Build(ctx context.Context, configs []adapter.ConnectionConfig, adapters *adapter.Registry, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	if adapters == nil {
		adapters = DefaultAdapters()
	}

	r := &Registry{conns: make(map[string]adapter.Connection, len(configs))}
	for _, config := range configs {
		if _, dup := r.conns[config.Name]; dup {
			log.Warnf("store %s configured twice, keeping the first", config.Name)
			continue
		}

		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		conn, err := adapters.Open(connectCtx, config, log)
		cancel()
		if err != nil {
			log.WithFields(map[string]string{
				"store": config.Name,
				"type":  string(config.DatabaseType),
			}).Error(fmt.Sprintf("failed to connect: %v", err))
			continue
		}

		log.Infof("connected store %s (%s)", config.Name, config.DatabaseType)
		r.conns[config.Name] = conn
		r.names = append(r.names, config.Name)
	}
	return r
}

// Lookup returns the connection for a store name.
func (r *Registry) Lookup(name string) (adapter.Connection, bool) {
	conn, ok := r.conns[name]
	return conn, ok
}

// Names returns the connected store names in configuration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Len returns the number of connected stores.
func (r *Registry) Len() int {
	return len(r.names)
}

// Close closes every connection and returns the first error.
func (r *Registry) Close() error {
	var first error
	for _, name := range r.names {
		if err := r.conns[name].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
