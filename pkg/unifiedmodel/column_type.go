package unifiedmodel

import (
	"encoding/json"
	"fmt"
)

// ColumnTag is one normalized column type shared by every store family.
type ColumnTag string

const (
	// Numeric types
	TagSmallInt        ColumnTag = "SmallInt"
	TagInteger         ColumnTag = "Integer"
	TagBigInt          ColumnTag = "BigInt"
	TagDecimal         ColumnTag = "Decimal"
	TagNumeric         ColumnTag = "Numeric"
	TagReal            ColumnTag = "Real"
	TagDoublePrecision ColumnTag = "DoublePrecision"
	TagMoney           ColumnTag = "Money"

	// Character types
	TagChar    ColumnTag = "Char"
	TagVarchar ColumnTag = "Varchar"
	TagText    ColumnTag = "Text"

	TagBytea   ColumnTag = "Bytea"
	TagBoolean ColumnTag = "Boolean"

	// Date/Time types
	TagDate        ColumnTag = "Date"
	TagTime        ColumnTag = "Time"
	TagTimestamp   ColumnTag = "Timestamp"
	TagTimestampTz ColumnTag = "TimestampTz"
	TagInterval    ColumnTag = "Interval"

	// JSON types
	TagJson  ColumnTag = "Json"
	TagJsonb ColumnTag = "Jsonb"

	// Network and identifier types
	TagInet    ColumnTag = "Inet"
	TagCidr    ColumnTag = "Cidr"
	TagMacAddr ColumnTag = "MacAddr"
	TagUuid    ColumnTag = "Uuid"

	// Geometric types
	TagPoint   ColumnTag = "Point"
	TagLine    ColumnTag = "Line"
	TagLseg    ColumnTag = "Lseg"
	TagBox     ColumnTag = "Box"
	TagPath    ColumnTag = "Path"
	TagPolygon ColumnTag = "Polygon"
	TagCircle  ColumnTag = "Circle"

	TagArray ColumnTag = "Array"

	// Range types
	TagInt4Range ColumnTag = "Int4Range"
	TagInt8Range ColumnTag = "Int8Range"
	TagNumRange  ColumnTag = "NumRange"
	TagTsRange   ColumnTag = "TsRange"
	TagTstzRange ColumnTag = "TstzRange"
	TagDateRange ColumnTag = "DateRange"

	// Bit string types
	TagBit    ColumnTag = "Bit"
	TagVarbit ColumnTag = "Varbit"

	// Text search types
	TagTsVector ColumnTag = "TsVector"
	TagTsQuery  ColumnTag = "TsQuery"

	TagXml ColumnTag = "Xml"

	// TagOther marks a native type with no normalized equivalent. The native
	// name is carried in ColumnType.Raw.
	TagOther ColumnTag = "Other"
)

var knownTags = map[ColumnTag]struct{}{}

func init() {
	for _, t := range []ColumnTag{
		TagSmallInt, TagInteger, TagBigInt, TagDecimal, TagNumeric, TagReal, TagDoublePrecision, TagMoney,
		TagChar, TagVarchar, TagText, TagBytea, TagBoolean,
		TagDate, TagTime, TagTimestamp, TagTimestampTz, TagInterval,
		TagJson, TagJsonb, TagInet, TagCidr, TagMacAddr, TagUuid,
		TagPoint, TagLine, TagLseg, TagBox, TagPath, TagPolygon, TagCircle,
		TagArray,
		TagInt4Range, TagInt8Range, TagNumRange, TagTsRange, TagTstzRange, TagDateRange,
		TagBit, TagVarbit, TagTsVector, TagTsQuery, TagXml,
	} {
		knownTags[t] = struct{}{}
	}
}

// ColumnType is a normalized column type. Values are comparable with ==.
type ColumnType struct {
	Tag ColumnTag
	// Raw is the native type name when Tag is TagOther.
	Raw string
}

// Typed returns the ColumnType for a normalized tag.
func Typed(tag ColumnTag) ColumnType {
	return ColumnType{Tag: tag}
}

// Other returns the escape type carrying a native name verbatim.
func Other(raw string) ColumnType {
	return ColumnType{Tag: TagOther, Raw: raw}
}

// IsOther reports whether the type has no normalized equivalent.
func (c ColumnType) IsOther() bool {
	return c.Tag == TagOther
}

// String returns the tag name, or the native name for Other.
func (c ColumnType) String() string {
	if c.Tag == TagOther {
		return c.Raw
	}
	return string(c.Tag)
}

// MarshalJSON writes the tag name, or the raw native name for Other.
func (c ColumnType) MarshalJSON() ([]byte, error) {
	if c.Tag == "" {
		return nil, fmt.Errorf("column type has no tag")
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts a tag name; anything else becomes Other.
func (c *ColumnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("column type must be a string: %w", err)
	}
	if _, ok := knownTags[ColumnTag(s)]; ok {
		*c = Typed(ColumnTag(s))
		return nil
	}
	*c = Other(s)
	return nil
}
