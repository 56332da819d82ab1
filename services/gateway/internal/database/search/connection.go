package search

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
)

// Connection implements adapter.Connection for OpenSearch and Elasticsearch.
// The two differ only in the SDK behind client.
type Connection struct {
	client    client
	kind      dbcapabilities.DatabaseType
	config    adapter.ConnectionConfig
	logger    *logger.Logger
	connected int32
}

// ConnectOpenSearch connects to an OpenSearch cluster.
func ConnectOpenSearch(ctx context.Context, config adapter.ConnectionConfig, log *logger.Logger) (*Connection, error) {
	return connect(ctx, dbcapabilities.OpenSearch, newOpenSearchClient, config, log)
}

// ConnectElasticsearch connects to an Elasticsearch cluster.
func ConnectElasticsearch(ctx context.Context, config adapter.ConnectionConfig, log *logger.Logger) (*Connection, error) {
	return connect(ctx, dbcapabilities.Elasticsearch, newElasticClient, config, log)
}

func connect(
	ctx context.Context,
	kind dbcapabilities.DatabaseType,
	newClient func(endpoint) (client, error),
	config adapter.ConnectionConfig,
	log *logger.Logger,
) (*Connection, error) {
	details := config.Details
	if details == nil {
		var err error
		details, err = dbcapabilities.ParseConnectionString(kind, config.ConnectionString)
		if err != nil {
			return nil, adapter.NewConnectionError(kind, config.Host(), config.Port(),
				fmt.Errorf("invalid connection string: %w", err))
		}
	}

	c, err := newClient(newEndpoint(details))
	if err != nil {
		return nil, adapter.NewConnectionError(kind, details.Host, details.Port, err)
	}

	conn := newConnection(c, kind, config, log)
	if err := conn.Ping(ctx); err != nil {
		return nil, adapter.NewConnectionError(kind, details.Host, details.Port, err)
	}
	return conn, nil
}

func newConnection(c client, kind dbcapabilities.DatabaseType, config adapter.ConnectionConfig, log *logger.Logger) *Connection {
	if log == nil {
		log = logger.NewNop()
	}
	return &Connection{
		client:    c,
		kind:      kind,
		config:    config,
		logger:    log,
		connected: 1,
	}
}

// Name returns the configured store name.
func (c *Connection) Name() string {
	return c.config.Name
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseType {
	return c.kind
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks if the cluster answers its info endpoint.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	res, err := c.client.info(ctx)
	if err != nil {
		return err
	}
	if res.isError() {
		return fmt.Errorf("connection test failed: status %d", res.status)
	}
	return nil
}

// Close marks the connection closed. The SDK clients hold no resources
// beyond idle HTTP connections.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	return nil
}
