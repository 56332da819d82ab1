package unifiedmodel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeColumns(t *testing.T) {
	base := []ColumnDescriptor{
		{Name: "id", DataType: Typed(TagInteger)},
		{Name: "email", DataType: Typed(TagVarchar), IsNullable: true},
		{Name: "org_id", DataType: Typed(TagInteger), IsNullable: true},
		{Name: "note", DataType: Typed(TagText), IsNullable: true},
	}
	keys := []KeyInfo{
		{Column: "id", Primary: true},
		{Column: "id", Primary: false},
		{Column: "email"},
		{Column: "missing", Primary: true},
	}
	fks := []ForeignKeyInfo{
		{Column: "org_id", RefTable: "orgs", RefColumn: "id"},
	}

	merged := MergeColumns(base, keys, fks)
	require.Len(t, merged, 4)

	assert.Equal(t, "id", merged[0].Name)
	assert.True(t, merged[0].IsPk)
	assert.True(t, merged[0].IsUnique)
	assert.Nil(t, merged[0].FkTable)

	assert.False(t, merged[1].IsPk)
	assert.True(t, merged[1].IsUnique)
	assert.True(t, merged[1].IsNullable)

	require.NotNil(t, merged[2].FkTable)
	assert.Equal(t, "orgs", *merged[2].FkTable)
	assert.Equal(t, "id", *merged[2].FkColumn)
	assert.False(t, merged[2].IsUnique)

	assert.False(t, merged[3].IsPk)
	assert.False(t, merged[3].IsUnique)
	assert.Nil(t, merged[3].FkTable)
	assert.Nil(t, merged[3].FkColumn)
}

func TestNewRelationSchemaNormalizes(t *testing.T) {
	s := NewRelationSchema("t", []ColumnDescriptor{{Name: "k", DataType: Typed(TagText), IsPk: true}})
	assert.True(t, s.Columns[0].IsUnique)

	empty := NewRelationSchema("t", nil)
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tableName":"t","columns":[]}`, string(data))
}

func TestColumnDescriptorJSON(t *testing.T) {
	table, column := "orgs", "id"
	col := ColumnDescriptor{
		Name:       "org_id",
		DataType:   Typed(TagInteger),
		IsNullable: true,
		FkTable:    &table,
		FkColumn:   &column,
	}
	data, err := json.Marshal(col)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "org_id",
		"dataType": "Integer",
		"isNullable": true,
		"isPk": false,
		"isUnique": false,
		"fkTable": "orgs",
		"fkColumn": "id"
	}`, string(data))
}

func TestQueryResultJSON(t *testing.T) {
	withPlan := QueryResult{
		Data:          json.RawMessage(`[{"a":1}]`),
		ExecutionTime: 1500 * time.Millisecond,
		Plan:          json.RawMessage(`{"Plan":{}}`),
	}
	data, err := json.Marshal(withPlan)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"a":1}],"executionTime":1.5,"plan":{"Plan":{}}}`, string(data))

	data, err = json.Marshal(QueryResult{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":null,"executionTime":0}`, string(data))
}
