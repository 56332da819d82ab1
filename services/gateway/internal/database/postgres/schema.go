package postgres

import (
	"context"
	"sort"
	"strings"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

const defaultSchema = "public"

const listRelationsQuery = `
	SELECT n.nspname, c.relname, c.relkind::text
	FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'p', 'v', 'm')
	  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
	  AND n.nspname NOT LIKE 'pg\_toast%'
	  AND n.nspname NOT LIKE 'pg\_temp%'
	  AND c.relname NOT LIKE '\_%'
	ORDER BY n.nspname, c.relname
`

const columnsQuery = `
	SELECT a.attname,
	       CASE WHEN t.typcategory = 'A' THEN 'ARRAY'
	            ELSE pg_catalog.format_type(a.atttypid, NULL) END,
	       NOT a.attnotnull
	FROM pg_catalog.pg_attribute a
	JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_catalog.pg_type t ON t.oid = a.atttypid
	WHERE n.nspname = $1 AND c.relname = $2
	  AND a.attnum > 0 AND NOT a.attisdropped
	ORDER BY a.attnum
`

const keysQuery = `
	SELECT a.attname, con.contype::text
	FROM pg_catalog.pg_constraint con
	JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = ANY(con.conkey)
	WHERE n.nspname = $1 AND c.relname = $2 AND con.contype IN ('p', 'u')
`

const foreignKeysQuery = `
	SELECT a.attname, rn.nspname, rc.relname, ra.attname
	FROM pg_catalog.pg_constraint con
	JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_catalog.pg_class rc ON rc.oid = con.confrelid
	JOIN pg_catalog.pg_namespace rn ON rn.oid = rc.relnamespace
	CROSS JOIN LATERAL unnest(con.conkey, con.confkey) AS k(attnum, refnum)
	JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
	JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refnum
	WHERE n.nspname = $1 AND c.relname = $2 AND con.contype = 'f'
`

// ListRelations returns tables, views and materialized views as
// schema.relation, sorted by name.
func (c *Connection) ListRelations(ctx context.Context) ([]unifiedmodel.RelationDescriptor, error) {
	rows, err := c.pool.Query(ctx, listRelationsQuery)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "list_relations", err)
	}
	defer rows.Close()

	relations := make([]unifiedmodel.RelationDescriptor, 0)
	for rows.Next() {
		var schema, name, kind string
		if err := rows.Scan(&schema, &name, &kind); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "list_relations", err)
		}
		if dbcapabilities.IsSystemNamespace(dbcapabilities.PostgreSQL, schema) || strings.HasPrefix(name, "_") {
			continue
		}
		relations = append(relations, unifiedmodel.RelationDescriptor{
			Name: schema + "." + name,
			Type: relationType(kind),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "list_relations", err)
	}

	sort.Slice(relations, func(i, j int) bool { return relations[i].Name < relations[j].Name })
	return relations, nil
}

func relationType(relkind string) unifiedmodel.RelationType {
	switch relkind {
	case "v":
		return unifiedmodel.RelationView
	case "m":
		return unifiedmodel.RelationMaterializedView
	default:
		return unifiedmodel.RelationTable
	}
}

// splitRelation splits "schema.table"; an unqualified name is in public.
func splitRelation(relation string) (string, string) {
	if i := strings.Index(relation, "."); i >= 0 {
		return relation[:i], relation[i+1:]
	}
	return defaultSchema, relation
}

// Introspect merges column, key and foreign key metadata for one relation.
// The returned schema keeps the relation name as given.
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

func (c *Connection) columns(ctx context.Context, schema, table string) ([]unifiedmodel.ColumnDescriptor, error) {
	rows, err := c.pool.Query(ctx, columnsQuery, schema, table)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "introspect_columns", err)
	}
	defer rows.Close()

	var columns []unifiedmodel.ColumnDescriptor
	for rows.Next() {
		var name, dataType string
		var nullable bool
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "introspect_columns", err)
		}
		columns = append(columns, unifiedmodel.ColumnDescriptor{
			Name:       name,
			DataType:   unifiedmodel.ToColumnType(dbcapabilities.PostgreSQL, dataType),
			IsNullable: nullable,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "introspect_columns", err)
	}
	return columns, nil
}

func (c *Connection) keys(ctx context.Context, schema, table string) ([]unifiedmodel.KeyInfo, error) {
	rows, err := c.pool.Query(ctx, keysQuery, schema, table)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "introspect_keys", err)
	}
	defer rows.Close()

	var keys []unifiedmodel.KeyInfo
	for rows.Next() {
		var column, contype string
		if err := rows.Scan(&column, &contype); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "introspect_keys", err)
		}
		keys = append(keys, unifiedmodel.KeyInfo{Column: column, Primary: contype == "p"})
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "introspect_keys", err)
	}
	return keys, nil
}

func (c *Connection) foreignKeys(ctx context.Context, schema, table string) ([]unifiedmodel.ForeignKeyInfo, error) {
	rows, err := c.pool.Query(ctx, foreignKeysQuery, schema, table)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "introspect_foreign_keys", err)
	}
	defer rows.Close()

	var fks []unifiedmodel.ForeignKeyInfo
	for rows.Next() {
		var column, refSchema, refTable, refColumn string
		if err := rows.Scan(&column, &refSchema, &refTable, &refColumn); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "introspect_foreign_keys", err)
		}
		fks = append(fks, unifiedmodel.ForeignKeyInfo{
			Column:    column,
			RefTable:  qualify(schema, refSchema, refTable),
			RefColumn: refColumn,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "introspect_foreign_keys", err)
	}
	return fks, nil
}

// qualify names a referenced table relative to the referencing schema.
func qualify(fromSchema, refSchema, refTable string) string {
	if refSchema == fromSchema {
		return refTable
	}
	return refSchema + "." + refTable
}
