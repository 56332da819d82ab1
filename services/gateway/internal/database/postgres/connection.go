package postgres

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
	"github.com/redbco/redb-gateway/services/gateway/internal/sanitizer"
)

// Connection implements adapter.Connection for PostgreSQL.
type Connection struct {
	pool      *pgxpool.Pool
	config    adapter.ConnectionConfig
	sanitizer *sanitizer.Sanitizer
	logger    *logger.Logger
	connected int32
}

// Connect opens a bounded pool and verifies it with a ping.
func Connect(ctx context.Context, config adapter.ConnectionConfig, log *logger.Logger) (*Connection, error) {
	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.PostgreSQL,
			config.Host(),
			config.Port(),
			fmt.Errorf("invalid connection string: %w", err),
		)
	}
	poolConfig.MaxConns = int32(config.PoolSize())

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.PostgreSQL,
			config.Host(),
			config.Port(),
			fmt.Errorf("error connecting to database: %w", err),
		)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, adapter.NewConnectionError(
			dbcapabilities.PostgreSQL,
			config.Host(),
			config.Port(),
			fmt.Errorf("error pinging database: %w", err),
		)
	}

	return &Connection{
		pool:      pool,
		config:    config,
		sanitizer: sanitizer.New(config.MaxLimit),
		logger:    log,
		connected: 1,
	}, nil
}

// Name returns the configured store name.
func (c *Connection) Name() string {
	return c.config.Name
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.PostgreSQL
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks if the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	return c.pool.Ping(ctx)
}

// Close closes the pool.
func (c *Connection) Close() error {
	if atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		c.pool.Close()
	}
	return nil
}
