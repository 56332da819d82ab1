package mongodb

import (
	"context"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// sampleSize is how many documents introspection reads to infer fields.
const sampleSize = 5

const binarySubtypeUUID byte = 0x04

// ListRelations returns the user collections, sorted.
func (c *Connection) ListRelations(ctx context.Context) ([]unifiedmodel.RelationDescriptor, error) {
	names, err := c.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MongoDB, "list_relations", err)
	}
	return collectionRelations(names), nil
}

func collectionRelations(names []string) []unifiedmodel.RelationDescriptor {
	sort.Strings(names)
	relations := make([]unifiedmodel.RelationDescriptor, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "system.") || strings.HasPrefix(name, "_") {
			continue
		}
		relations = append(relations, unifiedmodel.RelationDescriptor{Name: name, Type: unifiedmodel.RelationTable})
	}
	return relations
}

// Introspect samples a few documents and infers one column per field.
func (c *Connection) Introspect(ctx context.Context, relation string) (*unifiedmodel.RelationSchema, error) {
	cursor, err := c.db.Collection(relation).Find(ctx, bson.D{}, options.Find().SetLimit(sampleSize))
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MongoDB, "introspect", err)
	}

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MongoDB, "introspect", err)
	}
	return unifiedmodel.NewRelationSchema(relation, inferColumns(docs)), nil
}

// inferColumns lists _id first, then every other field in order of first
// appearance. The first non-null sample decides a field's kind.
func inferColumns(docs []bson.D) []unifiedmodel.ColumnDescriptor {
	columns := []unifiedmodel.ColumnDescriptor{{
		Name:     "_id",
		DataType: unifiedmodel.ToColumnType(dbcapabilities.MongoDB, "objectid"),
		IsPk:     true,
		IsUnique: true,
	}}

	index := map[string]int{}
	kinds := map[string]string{}
	for _, doc := range docs {
		for _, elem := range doc {
			if elem.Key == "_id" {
				if kinds["_id"] == "" {
					if kind := bsonKind(elem.Value); kind != "null" {
						kinds["_id"] = kind
						columns[0].DataType = unifiedmodel.ToColumnType(dbcapabilities.MongoDB, kind)
					}
				}
				continue
			}
			i, seen := index[elem.Key]
			if !seen {
				i = len(columns)
				index[elem.Key] = i
				columns = append(columns, unifiedmodel.ColumnDescriptor{
					Name:       elem.Key,
					DataType:   unifiedmodel.ToColumnType(dbcapabilities.MongoDB, "null"),
					IsNullable: true,
				})
			}
			if kinds[elem.Key] != "" {
				continue
			}
			if kind := bsonKind(elem.Value); kind != "null" {
				kinds[elem.Key] = kind
				columns[i].DataType = unifiedmodel.ToColumnType(dbcapabilities.MongoDB, kind)
			}
		}
	}
	return columns
}

// bsonKind names a decoded value the way the $type operator does.
func bsonKind(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case int32:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case bson.Decimal128:
		return "decimal"
	case bool:
		return "bool"
	case bson.DateTime:
		return "date"
	case bson.ObjectID:
		return "objectId"
	case bson.D, bson.M:
		return "object"
	case bson.A:
		return "array"
	case bson.Binary:
		if val.Subtype == binarySubtypeUUID {
			return "uuid"
		}
		return "binData"
	case bson.Timestamp:
		return "timestamp"
	case bson.Regex:
		return "regex"
	default:
		return "unknown"
	}
}
