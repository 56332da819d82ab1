package mongodb

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
)

// Connection implements adapter.Connection for MongoDB. Each collection of
// the configured database is a relation.
type Connection struct {
	client    *mongo.Client
	db        *mongo.Database
	config    adapter.ConnectionConfig
	logger    *logger.Logger
	connected int32
}

// Connect opens a client for a mongodb:// URI whose path names the database.
func Connect(ctx context.Context, config adapter.ConnectionConfig, log *logger.Logger) (*Connection, error) {
	details := config.Details
	if details == nil {
		var err error
		details, err = dbcapabilities.ParseConnectionString(dbcapabilities.MongoDB, config.ConnectionString)
		if err != nil {
			return nil, adapter.NewConnectionError(dbcapabilities.MongoDB, config.Host(), config.Port(),
				fmt.Errorf("invalid connection string: %w", err))
		}
	}
	if details.DatabaseName == "" {
		return nil, adapter.NewConnectionError(dbcapabilities.MongoDB, details.Host, details.Port,
			fmt.Errorf("connection string must name a database"))
	}

	clientOptions := options.Client().
		ApplyURI(config.ConnectionString).
		SetMaxPoolSize(uint64(config.PoolSize()))

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.MongoDB, details.Host, details.Port,
			fmt.Errorf("error connecting to database: %w", err))
	}

	// Test the connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, adapter.NewConnectionError(dbcapabilities.MongoDB, details.Host, details.Port,
			fmt.Errorf("error pinging database: %w", err))
	}

	return &Connection{
		client:    client,
		db:        client.Database(details.DatabaseName),
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
	return dbcapabilities.MongoDB
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
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (c *Connection) Close() error {
	if atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return c.client.Disconnect(context.Background())
	}
	return nil
}
