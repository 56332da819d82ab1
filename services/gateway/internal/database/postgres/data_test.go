package postgres

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

func TestQueryWrapping(t *testing.T) {
	bounded := "SELECT * FROM users LIMIT 10"
	assert.Equal(t, "EXPLAIN (FORMAT JSON) SELECT * FROM users LIMIT 10", explainQuery(bounded))
	assert.Equal(t,
		"WITH q AS (SELECT * FROM users LIMIT 10) SELECT JSON_AGG(q.*) AS data FROM q",
		aggregateQuery(bounded))
}

func TestFirstPlan(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected json.RawMessage
	}{
		{"single plan", `[{"Plan":{"Node Type":"Seq Scan"}}]`, json.RawMessage(`{"Plan":{"Node Type":"Seq Scan"}}`)},
		{"empty array", `[]`, nil},
		{"empty document", ``, nil},
		{"not an array", `{"Plan":{}}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, firstPlan([]byte(tt.doc)))
		})
	}
}

func TestNormalizeAggregate(t *testing.T) {
	assert.Equal(t, unifiedmodel.NullJSON, normalizeAggregate(nil))
	assert.Equal(t, json.RawMessage(`[{"id":1}]`), normalizeAggregate([]byte(`[{"id":1}]`)))
}

func TestSplitRelation(t *testing.T) {
	tests := []struct {
		in     string
		schema string
		table  string
	}{
		{"users", "public", "users"},
		{"sales.orders", "sales", "orders"},
		{"a.b.c", "a", "b.c"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s, tbl := splitRelation(tt.in)
			assert.Equal(t, tt.schema, s)
			assert.Equal(t, tt.table, tbl)
		})
	}
}

func TestRelationType(t *testing.T) {
	assert.Equal(t, unifiedmodel.RelationTable, relationType("r"))
	assert.Equal(t, unifiedmodel.RelationTable, relationType("p"))
	assert.Equal(t, unifiedmodel.RelationView, relationType("v"))
	assert.Equal(t, unifiedmodel.RelationMaterializedView, relationType("m"))
	assert.Equal(t, "orgs", qualify("public", "public", "orgs"))
	assert.Equal(t, "billing.orgs", qualify("public", "billing", "orgs"))
}
