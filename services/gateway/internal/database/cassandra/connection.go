package cassandra

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
)

// Connection implements adapter.Connection for Cassandra and ScyllaDB.
type Connection struct {
	session   *gocql.Session
	keyspace  string
	config    adapter.ConnectionConfig
	logger    *logger.Logger
	connected int32
}

// Connect opens a session from a host[:port][,host2...]/keyspace string. The
// keyspace is optional; without it relations are qualified ks.table.
func Connect(ctx context.Context, config adapter.ConnectionConfig, log *logger.Logger) (*Connection, error) {
	details := config.Details
	if details == nil {
		var err error
		details, err = dbcapabilities.ParseConnectionString(dbcapabilities.Cassandra, config.ConnectionString)
		if err != nil {
			return nil, adapter.NewConnectionError(dbcapabilities.Cassandra, config.Host(), config.Port(),
				fmt.Errorf("invalid connection string: %w", err))
		}
	}

	cluster := gocql.NewCluster(clusterHosts(details)...)
	if details.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: details.Username,
			Password: details.Password,
		}
	}

	// Set keyspace if provided
	if details.DatabaseName != "" {
		cluster.Keyspace = details.DatabaseName
	}
	if details.SSL {
		cluster.SslOpts = &gocql.SslOptions{EnableHostVerification: true}
	}

	cluster.Consistency = gocql.Quorum
	cluster.NumConns = 1
	cluster.Timeout = config.Timeout()
	cluster.ConnectTimeout = 10 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Cassandra, details.Host, details.Port,
			fmt.Errorf("error connecting to Cassandra: %w", err))
	}

	// Test the connection
	if err := session.Query("SELECT release_version FROM system.local").WithContext(ctx).Scan(new(string)); err != nil {
		session.Close()
		return nil, adapter.NewConnectionError(dbcapabilities.Cassandra, details.Host, details.Port,
			fmt.Errorf("error testing Cassandra connection: %w", err))
	}

	return &Connection{
		session:   session,
		keyspace:  details.DatabaseName,
		config:    config,
		logger:    log,
		connected: 1,
	}, nil
}

func clusterHosts(details *dbcapabilities.ConnectionDetails) []string {
	if len(details.Hosts) > 0 {
		return details.Hosts
	}
	return []string{net.JoinHostPort(details.Host, strconv.Itoa(details.Port))}
}

// Name returns the configured store name.
func (c *Connection) Name() string {
	return c.config.Name
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.Cassandra
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
	return c.session.Query("SELECT release_version FROM system.local").WithContext(ctx).Scan(new(string))
}

// Close closes the session.
func (c *Connection) Close() error {
	if atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		c.session.Close()
	}
	return nil
}
