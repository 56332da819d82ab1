// Package dbtest provides an in-memory adapter.Connection for tests.
package dbtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// Connection is a scripted connection. Zero-valued hooks fall back to
// serving Relations and Schemas.
type Connection struct {
	StoreName string
	Kind      dbcapabilities.DatabaseType

	Relations []unifiedmodel.RelationDescriptor
	Schemas   map[string]*unifiedmodel.RelationSchema
	ListErr   error
	// IntrospectErr fails introspection of the named relations.
	IntrospectErr map[string]error
	// Delay is slept at the start of ListRelations.
	Delay time.Duration

	SanitizeFunc func(raw string, limit int) (string, error)
	ExecuteFunc  func(raw string, limit *int) (*unifiedmodel.QueryResult, error)

	ListCalls atomic.Int32
	closed    atomic.Bool

	mu       sync.Mutex
	Executed []string
}

var _ adapter.Connection = (*Connection)(nil)

// Name returns the store name.
func (c *Connection) Name() string { return c.StoreName }

// Type returns the store kind, postgres when unset.
func (c *Connection) Type() dbcapabilities.DatabaseType {
	if c.Kind == "" {
		return dbcapabilities.PostgreSQL
	}
	return c.Kind
}

// Ping fails once the connection is closed.
func (c *Connection) Ping(context.Context) error {
	if c.closed.Load() {
		return adapter.ErrConnectionClosed
	}
	return nil
}

// Close marks the connection closed.
func (c *Connection) Close() error {
	c.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (c *Connection) Closed() bool { return c.closed.Load() }

// ListRelations returns Relations or ListErr.
func (c *Connection) ListRelations(ctx context.Context) ([]unifiedmodel.RelationDescriptor, error) {
	c.ListCalls.Add(1)
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	return c.Relations, nil
}

// Introspect returns the scripted schema for relation.
func (c *Connection) Introspect(_ context.Context, relation string) (*unifiedmodel.RelationSchema, error) {
	if err, ok := c.IntrospectErr[relation]; ok {
		return nil, err
	}
	if s, ok := c.Schemas[relation]; ok {
		return s, nil
	}
	return nil, adapter.NewNotFoundError("table", relation)
}

// Sanitize defers to SanitizeFunc or returns raw.
func (c *Connection) Sanitize(_ context.Context, raw string, limit int) (string, error) {
	if c.SanitizeFunc != nil {
		return c.SanitizeFunc(raw, limit)
	}
	return raw, nil
}

// Execute records raw and defers to ExecuteFunc, or returns null data.
func (c *Connection) Execute(_ context.Context, raw string, limit *int) (*unifiedmodel.QueryResult, error) {
	c.mu.Lock()
	c.Executed = append(c.Executed, raw)
	c.mu.Unlock()

	if c.ExecuteFunc != nil {
		return c.ExecuteFunc(raw, limit)
	}
	return &unifiedmodel.QueryResult{Data: unifiedmodel.NullJSON}, nil
}

// Registry builds an adapter registry that serves conns by store name for
// every kind and fails for any other name.
func Registry(conns ...*Connection) *adapter.Registry {
	byName := make(map[string]*Connection, len(conns))
	for _, c := range conns {
		byName[c.StoreName] = c
	}
	r := adapter.NewRegistry()
	for _, id := range dbcapabilities.IDs() {
		r.Register(id, func(_ context.Context, config adapter.ConnectionConfig, _ *logger.Logger) (adapter.Connection, error) {
			c, ok := byName[config.Name]
			if !ok {
				return nil, adapter.NewConnectionError(config.DatabaseType, config.Host(), config.Port(), adapter.ErrConnectionFailed)
			}
			return c, nil
		})
	}
	return r
}
