package redis

import (
	"context"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// ListRelations always returns an empty list.
func (c *Connection) ListRelations(context.Context) ([]unifiedmodel.RelationDescriptor, error) {
	return []unifiedmodel.RelationDescriptor{}, nil
}

// Introspect returns the fixed key/value pseudo-schema for any name.
func (c *Connection) Introspect(_ context.Context, relation string) (*unifiedmodel.RelationSchema, error) {
	return unifiedmodel.NewRelationSchema(relation, pseudoColumns()), nil
}

func pseudoColumns() []unifiedmodel.ColumnDescriptor {
	text := unifiedmodel.ToColumnType(dbcapabilities.Redis, "text")
	return []unifiedmodel.ColumnDescriptor{
		{Name: "key", DataType: text, IsPk: true, IsUnique: true},
		{Name: "value", DataType: text, IsNullable: true},
	}
}
