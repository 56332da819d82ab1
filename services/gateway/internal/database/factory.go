package database

import (
	"context"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
	"github.com/redbco/redb-gateway/services/gateway/internal/database/cassandra"
	"github.com/redbco/redb-gateway/services/gateway/internal/database/mongodb"
	"github.com/redbco/redb-gateway/services/gateway/internal/database/mysql"
	"github.com/redbco/redb-gateway/services/gateway/internal/database/postgres"
	"github.com/redbco/redb-gateway/services/gateway/internal/database/redis"
	"github.com/redbco/redb-gateway/services/gateway/internal/database/search"
)

// opener adapts a backend's Connect to adapter.OpenFunc without leaking a
// typed nil on failure.
func opener[C adapter.Connection](connect func(context.Context, adapter.ConnectionConfig, *logger.Logger) (C, error)) adapter.OpenFunc {
	return func(ctx context.Context, config adapter.ConnectionConfig, log *logger.Logger) (adapter.Connection, error) {
		conn, err := connect(ctx, config, log)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// DefaultAdapters returns a registry with every supported backend.
func DefaultAdapters() *adapter.Registry {
	r := adapter.NewRegistry()
	for _, id := range dbcapabilities.IDs() {
		r.Register(id, openerFor(id))
	}
	return r
}

func openerFor(id dbcapabilities.DatabaseType) adapter.OpenFunc {
	switch id {
	case dbcapabilities.PostgreSQL:
		return opener(postgres.Connect)
	case dbcapabilities.MySQL:
		return opener(mysql.Connect)
	case dbcapabilities.OpenSearch:
		return opener(search.ConnectOpenSearch)
	case dbcapabilities.Elasticsearch:
		return opener(search.ConnectElasticsearch)
	case dbcapabilities.MongoDB:
		return opener(mongodb.Connect)
	case dbcapabilities.Redis:
		return opener(redis.Connect)
	case dbcapabilities.Cassandra:
		return opener(cassandra.Connect)
	default:
		return func(context.Context, adapter.ConnectionConfig, *logger.Logger) (adapter.Connection, error) {
			return nil, &adapter.UnsupportedTypeError{Type: string(id)}
		}
	}
}

// Open connects one store with the default backends.
func Open(ctx context.Context, config adapter.ConnectionConfig, log *logger.Logger) (adapter.Connection, error) {
	return DefaultAdapters().Open(ctx, config, log)
}
