package adapter

import (
	"context"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// Connection represents an open handle to one configured store.
// Implementations are safe for concurrent use.
type Connection interface {
	// Identity
	Name() string
	Type() dbcapabilities.DatabaseType

	// Lifecycle management
	Ping(ctx context.Context) error
	Close() error

	// ListRelations returns user relations sorted by name. System namespaces
	// and names starting with "_" are excluded.
	ListRelations(ctx context.Context) ([]unifiedmodel.RelationDescriptor, error)

	// Introspect returns the normalized column layout of one relation.
	Introspect(ctx context.Context, relation string) (*unifiedmodel.RelationSchema, error)

	// Sanitize validates a raw query and bounds it to limit rows where the
	// store's query language allows it.
	Sanitize(ctx context.Context, raw string, limit int) (string, error)

	// Execute sanitizes and runs a query. A nil limit means DefaultLimit.
	Execute(ctx context.Context, raw string, limit *int) (*unifiedmodel.QueryResult, error)
}
