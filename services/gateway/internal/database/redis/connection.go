package redis

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
)

// Connection implements adapter.Connection for Redis. The keyspace has no
// relations; Execute runs one raw command.
type Connection struct {
	client    *redis.Client
	config    adapter.ConnectionConfig
	logger    *logger.Logger
	connected int32
}

// Connect opens a pooled client from a redis:// or rediss:// URL.
func Connect(ctx context.Context, config adapter.ConnectionConfig, log *logger.Logger) (*Connection, error) {
	options, err := redis.ParseURL(config.ConnectionString)
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.Redis,
			config.Host(),
			config.Port(),
			fmt.Errorf("invalid connection string: %w", err),
		)
	}
	options.PoolSize = config.PoolSize()

	client := redis.NewClient(options)

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, adapter.NewConnectionError(
			dbcapabilities.Redis,
			config.Host(),
			config.Port(),
			fmt.Errorf("error pinging database: %w", err),
		)
	}

	return &Connection{
		client:    client,
		config:    config,
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
	return dbcapabilities.Redis
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
	return c.client.Ping(ctx).Err()
}

// Close closes the client pool.
func (c *Connection) Close() error {
	if atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return c.client.Close()
	}
	return nil
}
