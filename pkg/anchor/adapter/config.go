package adapter

import (
	"time"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

const (
	// DefaultLimit bounds a query when the caller gives no limit.
	DefaultLimit = 500

	// MaxLimit is the ceiling no query may exceed.
	MaxLimit = 5000

	// DefaultPoolSize is the connection cap for pooled drivers.
	DefaultPoolSize = 5

	// DefaultQueryTimeout bounds a single execute call.
	DefaultQueryTimeout = 30 * time.Second
)

// ConnectionConfig contains the configuration for one store connection.
// This is a unified configuration that works across all store kinds.
type ConnectionConfig struct {
	// Store name as configured
	Name string `json:"name"`

	// Canonical store kind
	DatabaseType dbcapabilities.DatabaseType `json:"databaseType"`

	// Connection string in the kind's native format
	ConnectionString string `json:"connectionString"`

	// Parsed endpoint, used for error reporting; may be nil
	Details *dbcapabilities.ConnectionDetails `json:"-"`

	// Bounds
	MaxConnections int           `json:"maxConnections,omitempty"`
	QueryTimeout   time.Duration `json:"queryTimeout,omitempty"`
	DefaultLimit   int           `json:"defaultLimit,omitempty"`
	MaxLimit       int           `json:"maxLimit,omitempty"`

	// Key-value stores accept only read commands when set
	ReadOnly bool `json:"readOnly,omitempty"`
}

// Host returns the first configured host, or empty when unparsed.
func (c ConnectionConfig) Host() string {
	if c.Details == nil {
		return ""
	}
	return c.Details.Host
}

// Port returns the first configured port, or zero when unparsed.
func (c ConnectionConfig) Port() int {
	if c.Details == nil {
		return 0
	}
	return c.Details.Port
}

// PoolSize returns the configured pool cap or DefaultPoolSize.
func (c ConnectionConfig) PoolSize() int {
	if c.MaxConnections > 0 {
		return c.MaxConnections
	}
	return DefaultPoolSize
}

// Timeout returns the per-execute bound or DefaultQueryTimeout.
func (c ConnectionConfig) Timeout() time.Duration {
	if c.QueryTimeout > 0 {
		return c.QueryTimeout
	}
	return DefaultQueryTimeout
}

// EffectiveLimit resolves a requested limit against the configured default
// and ceiling: min(limit or default, max).
func (c ConnectionConfig) EffectiveLimit(limit *int) int {
	def, max := c.DefaultLimit, c.MaxLimit
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	return EffectiveLimit(limit, def, max)
}

// EffectiveLimit returns min(limit or def, max). Non-positive requested
// limits fall back to def.
func EffectiveLimit(limit *int, def, max int) int {
	n := def
	if limit != nil && *limit > 0 {
		n = *limit
	}
	if n > max {
		n = max
	}
	return n
}
