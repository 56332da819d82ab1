package unifiedmodel

import (
	"strings"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

// postgresTypes covers information_schema data_type names and the common
// udt_name spellings.
var postgresTypes = map[string]ColumnTag{
	"smallint":         TagSmallInt,
	"int2":             TagSmallInt,
	"integer":          TagInteger,
	"int":              TagInteger,
	"int4":             TagInteger,
	"bigint":           TagBigInt,
	"int8":             TagBigInt,
	"decimal":          TagDecimal,
	"numeric":          TagNumeric,
	"real":             TagReal,
	"float4":           TagReal,
	"double precision": TagDoublePrecision,
	"float8":           TagDoublePrecision,
	"money":            TagMoney,

	"text":              TagText,
	"char":              TagChar,
	"character":         TagChar,
	"bpchar":            TagChar,
	"varchar":           TagVarchar,
	"character varying": TagVarchar,

	"boolean": TagBoolean,
	"bool":    TagBoolean,
	"json":    TagJson,
	"jsonb":   TagJsonb,
	"bytea":   TagBytea,
	"uuid":    TagUuid,
	"inet":    TagInet,
	"cidr":    TagCidr,
	"macaddr": TagMacAddr,

	"point":   TagPoint,
	"line":    TagLine,
	"lseg":    TagLseg,
	"box":     TagBox,
	"path":    TagPath,
	"polygon": TagPolygon,
	"circle":  TagCircle,

	"array": TagArray,

	"int4range": TagInt4Range,
	"int8range": TagInt8Range,
	"numrange":  TagNumRange,
	"tsrange":   TagTsRange,
	"tstzrange": TagTstzRange,
	"daterange": TagDateRange,

	"date":                        TagDate,
	"datetime":                    TagTimestamp,
	"time":                        TagTime,
	"time without time zone":      TagTime,
	"timestamp":                   TagTimestamp,
	"timestamp without time zone": TagTimestamp,
	"timestamp with time zone":    TagTimestampTz,
	"timestamptz":                 TagTimestampTz,
	"interval":                    TagInterval,

	"bit":         TagBit,
	"varbit":      TagVarbit,
	"bit varying": TagVarbit,
	"tsvector":    TagTsVector,
	"tsquery":     TagTsQuery,
	"xml":         TagXml,
}

var mysqlTypes = map[string]ColumnTag{
	"tinyint":   TagSmallInt,
	"smallint":  TagSmallInt,
	"year":      TagSmallInt,
	"mediumint": TagInteger,
	"int":       TagInteger,
	"integer":   TagInteger,
	"bigint":    TagBigInt,
	"decimal":   TagDecimal,
	"numeric":   TagNumeric,
	"float":     TagReal,
	"double":    TagDoublePrecision,

	"char":       TagChar,
	"varchar":    TagVarchar,
	"text":       TagText,
	"tinytext":   TagText,
	"mediumtext": TagText,
	"longtext":   TagText,

	"binary":     TagBytea,
	"varbinary":  TagBytea,
	"blob":       TagBytea,
	"tinyblob":   TagBytea,
	"mediumblob": TagBytea,
	"longblob":   TagBytea,

	"bool":      TagBoolean,
	"boolean":   TagBoolean,
	"date":      TagDate,
	"time":      TagTime,
	"datetime":  TagTimestamp,
	"timestamp": TagTimestamp,
	"json":      TagJson,
	"bit":       TagBit,
}

// searchTypes are OpenSearch/Elasticsearch mapping types. geo_shape,
// completion, murmur3 and the *_range types stay Other.
var searchTypes = map[string]ColumnTag{
	"text":         TagText,
	"keyword":      TagVarchar,
	"byte":         TagSmallInt,
	"short":        TagSmallInt,
	"integer":      TagInteger,
	"token_count":  TagInteger,
	"long":         TagBigInt,
	"float":        TagReal,
	"half_float":   TagReal,
	"double":       TagDoublePrecision,
	"scaled_float": TagDecimal,
	"boolean":      TagBoolean,
	"date":         TagTimestamp,
	"date_nanos":   TagTimestamp,
	"ip":           TagInet,
	"binary":       TagBytea,
	"object":       TagJson,
	"nested":       TagJson,
	"geo_point":    TagPoint,
}

// mongoTypes are the BSON kind names produced by document sampling.
var mongoTypes = map[string]ColumnTag{
	"string":   TagText,
	"int":      TagInteger,
	"long":     TagBigInt,
	"double":   TagDoublePrecision,
	"decimal":  TagDecimal,
	"bool":     TagBoolean,
	"date":     TagTimestamp,
	"objectid": TagVarchar,
	"object":   TagJson,
	"array":    TagArray,
	"bindata":  TagBytea,
	"uuid":     TagUuid,
}

var redisTypes = map[string]ColumnTag{
	"text": TagText,
}

// cassandraTypes are keyed by the base type name with frozen<> and type
// parameters removed. duration, map and tuple stay Other.
var cassandraTypes = map[string]ColumnTag{
	"ascii":     TagText,
	"text":      TagText,
	"varchar":   TagVarchar,
	"bigint":    TagBigInt,
	"counter":   TagBigInt,
	"int":       TagInteger,
	"smallint":  TagSmallInt,
	"tinyint":   TagSmallInt,
	"varint":    TagNumeric,
	"decimal":   TagDecimal,
	"double":    TagDoublePrecision,
	"float":     TagReal,
	"blob":      TagBytea,
	"boolean":   TagBoolean,
	"date":      TagDate,
	"time":      TagTime,
	"timestamp": TagTimestamp,
	"inet":      TagInet,
	"uuid":      TagUuid,
	"timeuuid":  TagUuid,
	"list":      TagArray,
	"set":       TagArray,
}

// ToColumnType maps a native type name reported by a store of the given kind
// to its normalized ColumnType. Lookup is case-insensitive. Unknown names and
// unknown kinds yield Other carrying the name with its original casing.
func ToColumnType(db dbcapabilities.DatabaseType, native string) ColumnType {
	key := strings.ToLower(strings.TrimSpace(native))

	var table map[string]ColumnTag
	switch db {
	case dbcapabilities.PostgreSQL:
		// udt names of array columns are the element name with a leading _.
		if strings.HasPrefix(key, "_") && len(key) > 1 {
			return Typed(TagArray)
		}
		table = postgresTypes
	case dbcapabilities.MySQL:
		table = mysqlTypes
	case dbcapabilities.OpenSearch, dbcapabilities.Elasticsearch:
		table = searchTypes
	case dbcapabilities.MongoDB:
		table = mongoTypes
	case dbcapabilities.Redis:
		table = redisTypes
	case dbcapabilities.Cassandra:
		key = cassandraBaseType(key)
		table = cassandraTypes
	default:
		return Other(native)
	}

	if tag, ok := table[key]; ok {
		return Typed(tag)
	}
	return Other(native)
}

// cassandraBaseType strips frozen<...> wrappers and type parameters, so
// "frozen<list<text>>" becomes "list".
func cassandraBaseType(t string) string {
	for {
		t = strings.TrimSpace(t)
		if strings.HasPrefix(t, "frozen<") && strings.HasSuffix(t, ">") {
			t = t[len("frozen<") : len(t)-1]
			continue
		}
		break
	}
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
