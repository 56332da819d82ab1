package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
	"github.com/redbco/redb-gateway/services/gateway/internal/sanitizer"
)

// Connection implements adapter.Connection for MySQL and MariaDB.
type Connection struct {
	db        *sql.DB
	config    adapter.ConnectionConfig
	sanitizer *sanitizer.Sanitizer
	logger    *logger.Logger
	connected int32
}

// Connect opens a bounded pool and verifies it with a ping.
func Connect(ctx context.Context, config adapter.ConnectionConfig, log *logger.Logger) (*Connection, error) {
	dsn, err := buildDSN(config)
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.MySQL,
			config.Host(),
			config.Port(),
			fmt.Errorf("invalid connection string: %w", err),
		)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.MySQL,
			config.Host(),
			config.Port(),
			fmt.Errorf("error opening database: %w", err),
		)
	}
	db.SetMaxOpenConns(config.PoolSize())
	db.SetMaxIdleConns(config.PoolSize())
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, adapter.NewConnectionError(
			dbcapabilities.MySQL,
			config.Host(),
			config.Port(),
			fmt.Errorf("error pinging database: %w", err),
		)
	}

	return &Connection{
		db:        db,
		config:    config,
		sanitizer: sanitizer.New(config.MaxLimit),
		logger:    log,
		connected: 1,
	}, nil
}

// buildDSN accepts either a driver DSN or a mysql:// URL. The result always
// parses times and keeps multi-statements disabled.
func buildDSN(config adapter.ConnectionConfig) (string, error) {
	raw := strings.TrimSpace(config.ConnectionString)

	var cfg *mysql.Config
	if strings.Contains(raw, "://") {
		details := config.Details
		if details == nil {
			var err error
			details, err = dbcapabilities.ParseConnectionString(dbcapabilities.MySQL, raw)
			if err != nil {
				return "", err
			}
		}
		cfg = mysql.NewConfig()
		cfg.User = details.Username
		cfg.Passwd = details.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(details.Host, strconv.Itoa(details.Port))
		cfg.DBName = details.DatabaseName
		if details.SSL {
			cfg.TLSConfig = "true"
		}
	} else {
		var err error
		cfg, err = mysql.ParseDSN(raw)
		if err != nil {
			return "", err
		}
	}

	cfg.ParseTime = true
	cfg.MultiStatements = false
	return cfg.FormatDSN(), nil
}

// Name returns the configured store name.
func (c *Connection) Name() string {
	return c.config.Name
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MySQL
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
	return c.db.PingContext(ctx)
}

// Close closes the pool.
func (c *Connection) Close() error {
	if atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return c.db.Close()
	}
	return nil
}
