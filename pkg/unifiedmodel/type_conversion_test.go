package unifiedmodel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

func TestToColumnType(t *testing.T) {
	tests := []struct {
		name     string
		db       dbcapabilities.DatabaseType
		native   string
		expected ColumnType
	}{
		{"postgres integer", dbcapabilities.PostgreSQL, "integer", Typed(TagInteger)},
		{"postgres upper case", dbcapabilities.PostgreSQL, "INTEGER", Typed(TagInteger)},
		{"postgres double precision", dbcapabilities.PostgreSQL, "double precision", Typed(TagDoublePrecision)},
		{"postgres character varying", dbcapabilities.PostgreSQL, "character varying", Typed(TagVarchar)},
		{"postgres character", dbcapabilities.PostgreSQL, "character", Typed(TagChar)},
		{"postgres timestamptz", dbcapabilities.PostgreSQL, "timestamp with time zone", Typed(TagTimestampTz)},
		{"postgres timestamp", dbcapabilities.PostgreSQL, "timestamp without time zone", Typed(TagTimestamp)},
		{"postgres time", dbcapabilities.PostgreSQL, "time without time zone", Typed(TagTime)},
		{"postgres datetime", dbcapabilities.PostgreSQL, "datetime", Typed(TagTimestamp)},
		{"postgres ARRAY", dbcapabilities.PostgreSQL, "ARRAY", Typed(TagArray)},
		{"postgres udt array", dbcapabilities.PostgreSQL, "_int4", Typed(TagArray)},
		{"postgres bit varying", dbcapabilities.PostgreSQL, "bit varying", Typed(TagVarbit)},
		{"postgres daterange", dbcapabilities.PostgreSQL, "daterange", Typed(TagDateRange)},
		{"postgres money", dbcapabilities.PostgreSQL, "money", Typed(TagMoney)},
		{"postgres unknown keeps casing", dbcapabilities.PostgreSQL, "USER-DEFINED", Other("USER-DEFINED")},

		{"mysql tinyint", dbcapabilities.MySQL, "tinyint", Typed(TagSmallInt)},
		{"mysql mediumint", dbcapabilities.MySQL, "mediumint", Typed(TagInteger)},
		{"mysql float", dbcapabilities.MySQL, "float", Typed(TagReal)},
		{"mysql longtext", dbcapabilities.MySQL, "LONGTEXT", Typed(TagText)},
		{"mysql varbinary", dbcapabilities.MySQL, "varbinary", Typed(TagBytea)},
		{"mysql datetime", dbcapabilities.MySQL, "datetime", Typed(TagTimestamp)},
		{"mysql year", dbcapabilities.MySQL, "year", Typed(TagSmallInt)},
		{"mysql enum", dbcapabilities.MySQL, "enum", Other("enum")},

		{"opensearch keyword", dbcapabilities.OpenSearch, "keyword", Typed(TagVarchar)},
		{"opensearch long", dbcapabilities.OpenSearch, "long", Typed(TagBigInt)},
		{"elasticsearch nested", dbcapabilities.Elasticsearch, "nested", Typed(TagJson)},
		{"elasticsearch geo_point", dbcapabilities.Elasticsearch, "geo_point", Typed(TagPoint)},
		{"elasticsearch scaled_float", dbcapabilities.Elasticsearch, "scaled_float", Typed(TagDecimal)},
		{"elasticsearch ip", dbcapabilities.Elasticsearch, "ip", Typed(TagInet)},
		{"elasticsearch geo_shape", dbcapabilities.Elasticsearch, "geo_shape", Other("geo_shape")},
		{"opensearch integer_range", dbcapabilities.OpenSearch, "integer_range", Other("integer_range")},

		{"mongodb objectId", dbcapabilities.MongoDB, "objectId", Typed(TagVarchar)},
		{"mongodb binData", dbcapabilities.MongoDB, "binData", Typed(TagBytea)},
		{"mongodb regex", dbcapabilities.MongoDB, "regex", Other("regex")},

		{"redis text", dbcapabilities.Redis, "text", Typed(TagText)},
		{"redis hash", dbcapabilities.Redis, "hash", Other("hash")},

		{"cassandra ascii", dbcapabilities.Cassandra, "ascii", Typed(TagText)},
		{"cassandra counter", dbcapabilities.Cassandra, "counter", Typed(TagBigInt)},
		{"cassandra varint", dbcapabilities.Cassandra, "varint", Typed(TagNumeric)},
		{"cassandra timeuuid", dbcapabilities.Cassandra, "timeuuid", Typed(TagUuid)},
		{"cassandra list generic", dbcapabilities.Cassandra, "list<text>", Typed(TagArray)},
		{"cassandra frozen set", dbcapabilities.Cassandra, "frozen<set<int>>", Typed(TagArray)},
		{"cassandra map", dbcapabilities.Cassandra, "map<text, int>", Other("map<text, int>")},
		{"cassandra duration", dbcapabilities.Cassandra, "duration", Other("duration")},

		{"unknown kind", dbcapabilities.DatabaseType("oracle"), "NUMBER", Other("NUMBER")},
		{"empty name", dbcapabilities.PostgreSQL, "", Other("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToColumnType(tt.db, tt.native))
		})
	}
}

func TestToColumnTypeIsTotal(t *testing.T) {
	inputs := []string{"", " ", "_", "frozen<", "<>", "list<", "💥", "timestamp(6)", "tuple<int, text>"}
	for _, id := range dbcapabilities.IDs() {
		for _, in := range inputs {
			assert.NotPanics(t, func() {
				ct := ToColumnType(id, in)
				if ct.IsOther() {
					assert.Equal(t, in, ct.Raw)
				}
			})
		}
	}
}

func TestColumnTypeJSON(t *testing.T) {
	data, err := json.Marshal([]ColumnType{Typed(TagDoublePrecision), Other("geo_shape")})
	require.NoError(t, err)
	assert.JSONEq(t, `["DoublePrecision","geo_shape"]`, string(data))

	var back []ColumnType
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []ColumnType{Typed(TagDoublePrecision), Other("geo_shape")}, back)

	_, err = json.Marshal(ColumnType{})
	assert.Error(t, err)
}
