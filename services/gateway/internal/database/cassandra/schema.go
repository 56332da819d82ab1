package cassandra

import (
	"context"
	"sort"
	"strings"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

const (
	keyspaceTablesQuery = "SELECT table_name FROM system_schema.tables WHERE keyspace_name = ?"
	allTablesQuery      = "SELECT keyspace_name, table_name FROM system_schema.tables"
	columnsQuery        = "SELECT column_name, type, kind, position FROM system_schema.columns WHERE keyspace_name = ? AND table_name = ?"
)

// ListRelations returns the tables of the session keyspace, or of every
// user keyspace qualified as ks.table when the session has none.
func (c *Connection) ListRelations(ctx context.Context) ([]unifiedmodel.RelationDescriptor, error) {
	var names []string
	if c.keyspace != "" {
		iter := c.session.Query(keyspaceTablesQuery, c.keyspace).WithContext(ctx).Iter()
		var table string
		for iter.Scan(&table) {
			names = append(names, table)
		}
		if err := iter.Close(); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.Cassandra, "list_relations", err)
		}
	} else {
		iter := c.session.Query(allTablesQuery).WithContext(ctx).Iter()
		var keyspace, table string
		for iter.Scan(&keyspace, &table) {
			if dbcapabilities.IsSystemNamespace(dbcapabilities.Cassandra, keyspace) {
				continue
			}
			names = append(names, keyspace+"."+table)
		}
		if err := iter.Close(); err != nil {
			return nil, adapter.QueryFailed(dbcapabilities.Cassandra, "list_relations", err)
		}
	}
	return tableRelations(names), nil
}

func tableRelations(names []string) []unifiedmodel.RelationDescriptor {
	sort.Strings(names)
	relations := make([]unifiedmodel.RelationDescriptor, 0, len(names))
	for _, name := range names {
		table := name
		if i := strings.LastIndex(name, "."); i >= 0 {
			table = name[i+1:]
		}
		if strings.HasPrefix(table, "_") {
			continue
		}
		relations = append(relations, unifiedmodel.RelationDescriptor{Name: name, Type: unifiedmodel.RelationTable})
	}
	return relations
}

// splitRelation resolves ks.table, falling back to the session keyspace.
func (c *Connection) splitRelation(relation string) (string, string) {
	if i := strings.Index(relation, "."); i >= 0 {
		return relation[:i], relation[i+1:]
	}
	return c.keyspace, relation
}

type columnRow struct {
	name     string
	cqlType  string
	kind     string
	position int
}

// Introspect lists partition key columns first, then clustering columns,
// then the rest by name.
func (c *Connection) Introspect(ctx context.Context, relation string) (*unifiedmodel.RelationSchema, error) {
	keyspace, table := c.splitRelation(relation)
	if keyspace == "" {
		return nil, adapter.NewNotFoundError("table", relation)
	}

	iter := c.session.Query(columnsQuery, keyspace, table).WithContext(ctx).Iter()
	var rows []columnRow
	var row columnRow
	for iter.Scan(&row.name, &row.cqlType, &row.kind, &row.position) {
		rows = append(rows, row)
	}
	if err := iter.Close(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.Cassandra, "introspect", err)
	}
	if len(rows) == 0 {
		return nil, adapter.NewNotFoundError("table", relation)
	}

	return unifiedmodel.NewRelationSchema(relation, orderColumns(rows)), nil
}

func kindRank(kind string) int {
	switch kind {
	case "partition_key":
		return 0
	case "clustering":
		return 1
	default:
		return 2
	}
}

func orderColumns(rows []columnRow) []unifiedmodel.ColumnDescriptor {
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := kindRank(rows[i].kind), kindRank(rows[j].kind)
		if ri != rj {
			return ri < rj
		}
		if ri < 2 && rows[i].position != rows[j].position {
			return rows[i].position < rows[j].position
		}
		return rows[i].name < rows[j].name
	})

	columns := make([]unifiedmodel.ColumnDescriptor, 0, len(rows))
	for _, r := range rows {
		key := kindRank(r.kind) < 2
		columns = append(columns, unifiedmodel.ColumnDescriptor{
			Name:       r.name,
			DataType:   unifiedmodel.ToColumnType(dbcapabilities.Cassandra, r.cqlType),
			IsNullable: !key,
			IsPk:       key,
			IsUnique:   key,
		})
	}
	return columns
}
