package unifiedmodel

import (
	"encoding/json"
	"time"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

// RelationType classifies a listed relation.
type RelationType string

const (
	RelationTable            RelationType = "table"
	RelationView             RelationType = "view"
	RelationMaterializedView RelationType = "materialized_view"
)

// RelationDescriptor names one queryable relation of a store.
type RelationDescriptor struct {
	Name string       `json:"name"`
	Type RelationType `json:"type"`
}

// ColumnDescriptor describes one column, field or key of a relation.
type ColumnDescriptor struct {
	Name       string     `json:"name"`
	DataType   ColumnType `json:"dataType"`
	IsNullable bool       `json:"isNullable"`
	IsPk       bool       `json:"isPk"`
	IsUnique   bool       `json:"isUnique"`
	FkTable    *string    `json:"fkTable,omitempty"`
	FkColumn   *string    `json:"fkColumn,omitempty"`
}

// Normalize enforces that primary key columns are unique.
func (c *ColumnDescriptor) Normalize() {
	if c.IsPk {
		c.IsUnique = true
	}
}

// RelationSchema is the column layout of one relation.
type RelationSchema struct {
	TableName string             `json:"tableName"`
	Columns   []ColumnDescriptor `json:"columns"`
}

// NewRelationSchema builds a schema and normalizes every column.
func NewRelationSchema(table string, columns []ColumnDescriptor) *RelationSchema {
	if columns == nil {
		columns = []ColumnDescriptor{}
	}
	for i := range columns {
		columns[i].Normalize()
	}
	return &RelationSchema{TableName: table, Columns: columns}
}

// StoreSchema is the schema of every relation of one store.
type StoreSchema struct {
	Name   string                      `json:"name"`
	Type   dbcapabilities.DatabaseType `json:"type"`
	Tables []RelationSchema            `json:"tables"`
}

// FullSchemaSnapshot aggregates every reachable store, in configured order.
type FullSchemaSnapshot struct {
	Databases []StoreSchema `json:"databases"`
}

// QueryResult is what a store returns for one executed query.
type QueryResult struct {
	// Data is the JSON rendering of the result. JSON null when there are no rows.
	Data json.RawMessage
	// ExecutionTime covers dispatch to materialized result.
	ExecutionTime time.Duration
	// Plan is the execution plan, when the store produces one.
	Plan json.RawMessage
}

type queryResultWire struct {
	Data          json.RawMessage `json:"data"`
	ExecutionTime float64         `json:"executionTime"`
	Plan          json.RawMessage `json:"plan,omitempty"`
}

// MarshalJSON writes executionTime as float seconds.
func (r QueryResult) MarshalJSON() ([]byte, error) {
	data := r.Data
	if len(data) == 0 {
		data = NullJSON
	}
	return json.Marshal(queryResultWire{
		Data:          data,
		ExecutionTime: r.ExecutionTime.Seconds(),
		Plan:          r.Plan,
	})
}

// NullJSON is the JSON literal null.
var NullJSON = json.RawMessage("null")

// KeyInfo is a primary key or unique constraint membership of a column.
type KeyInfo struct {
	Column  string
	Primary bool
}

// ForeignKeyInfo is the referenced target of a column.
type ForeignKeyInfo struct {
	Column    string
	RefTable  string
	RefColumn string
}

// MergeColumns combines base column rows with key and foreign key lookups,
// matched by column name. Columns with no key or foreign key row keep every
// derived flag false and their targets absent. Base column order is kept.
func MergeColumns(base []ColumnDescriptor, keys []KeyInfo, fks []ForeignKeyInfo) []ColumnDescriptor {
	keyIndex := make(map[string]KeyInfo, len(keys))
	for _, k := range keys {
		existing, ok := keyIndex[k.Column]
		if ok && existing.Primary {
			continue
		}
		keyIndex[k.Column] = k
	}
	fkIndex := make(map[string]ForeignKeyInfo, len(fks))
	for _, fk := range fks {
		if _, ok := fkIndex[fk.Column]; !ok {
			fkIndex[fk.Column] = fk
		}
	}

	out := make([]ColumnDescriptor, 0, len(base))
	for _, col := range base {
		if k, ok := keyIndex[col.Name]; ok {
			col.IsUnique = true
			col.IsPk = col.IsPk || k.Primary
		}
		if fk, ok := fkIndex[col.Name]; ok {
			table, column := fk.RefTable, fk.RefColumn
			col.FkTable = &table
			col.FkColumn = &column
		}
		col.Normalize()
		out = append(out, col)
	}
	return out
}
