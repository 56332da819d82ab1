package mysql

import (
	"context"
	"sort"
	"strings"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

const listRelationsQuery = `
	SELECT table_schema, table_name, table_type
	FROM information_schema.tables
	WHERE table_schema NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')
	  AND table_type IN ('BASE TABLE', 'VIEW')
	ORDER BY table_schema, table_name
`

const columnsQuery = `
	SELECT column_name, data_type, is_nullable = 'YES'
	FROM information_schema.columns
	WHERE table_schema = COALESCE(?, DATABASE()) AND table_name = ?
	ORDER BY ordinal_position
`

const keysQuery = `
	SELECT k.column_name, tc.constraint_type = 'PRIMARY KEY'
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage k
	  ON k.constraint_schema = tc.constraint_schema
	 AND k.constraint_name = tc.constraint_name
	 AND k.table_name = tc.table_name
	WHERE tc.table_schema = COALESCE(?, DATABASE()) AND tc.table_name = ?
	  AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
`

const foreignKeysQuery = `
	SELECT column_name, referenced_table_schema, referenced_table_name, referenced_column_name
	FROM information_schema.key_column_usage
	WHERE table_schema = COALESCE(?, DATABASE()) AND table_name = ?
	  AND referenced_table_name IS NOT NULL
	ORDER BY ordinal_position
`

// ListRelations returns base tables and views as schema.table, sorted by
// name.
func (c *Connection) ListRelations(ctx context.Context) ([]unifiedmodel.RelationDescriptor, error) {
	rows, err := c.db.QueryContext(ctx, listRelationsQuery)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "list_relations", err)
	}
	defer rows.Close()

	relations := make([]unifiedmodel.RelationDescriptor, 0)
	for rows.Next() {
		var schema, name, kind string
		if err := rows.Scan(&schema, &name, &kind); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.MySQL, "list_relations", err)
		}
		if dbcapabilities.IsSystemNamespace(dbcapabilities.MySQL, schema) || strings.HasPrefix(name, "_") {
			continue
		}
		relations = append(relations, unifiedmodel.RelationDescriptor{
			Name: schema + "." + name,
			Type: relationType(kind),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "list_relations", err)
	}

	sort.Slice(relations, func(i, j int) bool { return relations[i].Name < relations[j].Name })
	return relations, nil
}

func relationType(tableType string) unifiedmodel.RelationType {
	if strings.EqualFold(tableType, "VIEW") {
		return unifiedmodel.RelationView
	}
	return unifiedmodel.RelationTable
}

// splitRelation splits "schema.table". An unqualified name resolves against
// the connection's current database, signalled by a nil schema.
func splitRelation(relation string) (*string, string) {
	if i := strings.Index(relation, "."); i >= 0 {
		schema := relation[:i]
		return &schema, relation[i+1:]
	}
	return nil, relation
}

// Introspect merges column, key and foreign key metadata for one relation.
func (c *Connection) Introspect(ctx context.Context, relation string) (*unifiedmodel.RelationSchema, error) {
	schema, table := splitRelation(relation)

	base, err := c.columns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	if len(base) == 0 {
		return nil, adapter.NewNotFoundError("table", relation)
	}

	keys, err := c.keys(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	fks, err := c.foreignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	return unifiedmodel.NewRelationSchema(relation, unifiedmodel.MergeColumns(base, keys, fks)), nil
}

func (c *Connection) columns(ctx context.Context, schema *string, table string) ([]unifiedmodel.ColumnDescriptor, error) {
	rows, err := c.db.QueryContext(ctx, columnsQuery, schema, table)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "introspect_columns", err)
	}
	defer rows.Close()

	var columns []unifiedmodel.ColumnDescriptor
	for rows.Next() {
		var name, dataType string
		var nullable bool
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.MySQL, "introspect_columns", err)
		}
		columns = append(columns, unifiedmodel.ColumnDescriptor{
			Name:       name,
			DataType:   unifiedmodel.ToColumnType(dbcapabilities.MySQL, dataType),
			IsNullable: nullable,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "introspect_columns", err)
	}
	return columns, nil
}

func (c *Connection) keys(ctx context.Context, schema *string, table string) ([]unifiedmodel.KeyInfo, error) {
	rows, err := c.db.QueryContext(ctx, keysQuery, schema, table)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "introspect_keys", err)
	}
	defer rows.Close()

	var keys []unifiedmodel.KeyInfo
	for rows.Next() {
		var column string
		var primary bool
		if err := rows.Scan(&column, &primary); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.MySQL, "introspect_keys", err)
		}
		keys = append(keys, unifiedmodel.KeyInfo{Column: column, Primary: primary})
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "introspect_keys", err)
	}
	return keys, nil
}

func (c *Connection) foreignKeys(ctx context.Context, schema *string, table string) ([]unifiedmodel.ForeignKeyInfo, error) {
	rows, err := c.db.QueryContext(ctx, foreignKeysQuery, schema, table)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "introspect_foreign_keys", err)
	}
	defer rows.Close()

	from := ""
	if schema != nil {
		from = *schema
	}

	var fks []unifiedmodel.ForeignKeyInfo
	for rows.Next() {
		var column, refSchema, refTable, refColumn string
		if err := rows.Scan(&column, &refSchema, &refTable, &refColumn); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.MySQL, "introspect_foreign_keys", err)
		}
		fks = append(fks, unifiedmodel.ForeignKeyInfo{
			Column:    column,
			RefTable:  qualify(from, refSchema, refTable),
			RefColumn: refColumn,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "introspect_foreign_keys", err)
	}
	return fks, nil
}

// qualify names a referenced table relative to the referencing schema. With
// an unqualified referencing relation the reference stays unqualified too.
func qualify(fromSchema, refSchema, refTable string) string {
	if fromSchema == "" || refSchema == fromSchema {
		return refTable
	}
	return refSchema + "." + refTable
}
