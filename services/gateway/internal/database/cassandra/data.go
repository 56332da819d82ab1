package cassandra

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"gopkg.in/inf.v0"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

var limitKeyword = regexp.MustCompile(`\bLIMIT\b`)

// Sanitize passes CQL through. Only an empty statement is rejected.
func (c *Connection) Sanitize(_ context.Context, raw string, _ int) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", adapter.BadRequest("Empty query")
	}
	return raw, nil
}

// boundQuery appends LIMIT n unless the statement already has one.
func boundQuery(raw string, limit *int, effective int) string {
	q := strings.TrimRight(strings.TrimSpace(raw), "; \t\n")
	if limit == nil || limitKeyword.MatchString(strings.ToUpper(q)) {
		return q
	}
	return fmt.Sprintf("%s LIMIT %d", q, effective)
}

// Execute runs one CQL statement and converts every row to a JSON object.
func (c *Connection) Execute(ctx context.Context, raw string, limit *int) (*unifiedmodel.QueryResult, error) {
	raw, err := c.Sanitize(ctx, raw, 0)
	if err != nil {
		return nil, err
	}
	q := boundQuery(raw, limit, c.config.EffectiveLimit(limit))

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout())
	defer cancel()

	start := time.Now()
	iter := c.session.Query(q).WithContext(ctx).Iter()
	rows, err := scanRows(iter)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return nil, adapter.ConversionFailed(dbcapabilities.Cassandra, "error encoding rows: %v", err)
	}

	c.logger.Debugf("cassandra %s: %d rows in %s", c.config.Name, len(rows), elapsed)

	return &unifiedmodel.QueryResult{Data: data, ExecutionTime: elapsed}, nil
}

// scanTarget is one column's destination. Tuples scan element by element.
type scanTarget struct {
	name  string
	info  gocql.TypeInfo
	elems []reflect.Value
}

func newNullable(info gocql.TypeInfo) reflect.Value {
	// **T so that NULL stays distinguishable from the zero value.
	return reflect.New(reflect.TypeOf(info.New()))
}

func scanRows(iter *gocql.Iter) ([]map[string]interface{}, error) {
	columns := iter.Columns()
	targets := make([]scanTarget, len(columns))
	var dest []interface{}
	for i, col := range columns {
		targets[i] = scanTarget{name: col.Name, info: col.TypeInfo}
		if tuple, ok := col.TypeInfo.(gocql.TupleTypeInfo); ok {
			for _, elem := range tuple.Elems {
				v := newNullable(elem)
				targets[i].elems = append(targets[i].elems, v)
				dest = append(dest, v.Interface())
			}
			continue
		}
		v := newNullable(col.TypeInfo)
		targets[i].elems = []reflect.Value{v}
		dest = append(dest, v.Interface())
	}

	rows := make([]map[string]interface{}, 0)
	for iter.Scan(dest...) {
		row := make(map[string]interface{}, len(targets))
		for _, target := range targets {
			value, err := target.value()
			if err != nil {
				iter.Close()
				return nil, err
			}
			row[target.name] = value
		}
		rows = append(rows, row)
	}
	if err := iter.Close(); err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.Cassandra, "execute", err)
	}
	return rows, nil
}

func (t scanTarget) value() (interface{}, error) {
	if tuple, ok := t.info.(gocql.TupleTypeInfo); ok {
		arr := make([]interface{}, len(t.elems))
		for i, v := range t.elems {
			converted, err := convertValue(tuple.Elems[i], deref(v))
			if err != nil {
				return nil, err
			}
			arr[i] = converted
		}
		return arr, nil
	}
	return convertValue(t.info, deref(t.elems[0]))
}

// deref unwraps a scanned **T, returning nil for NULL.
func deref(v reflect.Value) interface{} {
	ptr := v.Elem()
	if ptr.IsNil() {
		return nil
	}
	return ptr.Elem().Interface()
}

// convertValue maps a scanned CQL value to a JSON-friendly one using its
// column type.
func convertValue(info gocql.TypeInfo, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	switch info.Type() {
	case gocql.TypeBlob:
		if b, ok := v.([]byte); ok {
			return hex.EncodeToString(b), nil
		}
	case gocql.TypeTimestamp:
		if ts, ok := v.(time.Time); ok {
			return ts.UnixMilli(), nil
		}
	case gocql.TypeDate:
		if d, ok := v.(time.Time); ok {
			return d.UTC().Format("2006-01-02"), nil
		}
	case gocql.TypeTime:
		if d, ok := v.(time.Duration); ok {
			return formatTimeOfDay(d), nil
		}
	case gocql.TypeUUID, gocql.TypeTimeUUID, gocql.TypeInet, gocql.TypeDecimal, gocql.TypeVarint, gocql.TypeDuration:
		return stringify(v), nil
	case gocql.TypeList, gocql.TypeSet:
		collection, ok := info.(gocql.CollectionType)
		if !ok {
			break
		}
		return convertSlice(collection.Elem, reflect.ValueOf(v))
	case gocql.TypeMap:
		collection, ok := info.(gocql.CollectionType)
		if !ok {
			break
		}
		return convertMap(collection, reflect.ValueOf(v))
	case gocql.TypeTuple:
		tuple, ok := info.(gocql.TupleTypeInfo)
		if !ok {
			break
		}
		return convertSlice(nil, reflect.ValueOf(v), tuple.Elems...)
	case gocql.TypeUDT:
		udt, ok := info.(gocql.UDTTypeInfo)
		if !ok {
			break
		}
		fields, ok := v.(map[string]interface{})
		if !ok {
			break
		}
		obj := make(map[string]interface{}, len(udt.Elements))
		for _, field := range udt.Elements {
			converted, err := convertValue(field.Type, fields[field.Name])
			if err != nil {
				return nil, err
			}
			obj[field.Name] = converted
		}
		return obj, nil
	}
	return v, nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case gocql.UUID:
		return val.String()
	case net.IP:
		return val.String()
	case *inf.Dec:
		return val.String()
	case inf.Dec:
		return val.String()
	case *big.Int:
		return val.String()
	case big.Int:
		return val.String()
	case gocql.Duration:
		return fmt.Sprintf("%dmo%dd%dns", val.Months, val.Days, val.Nanoseconds)
	default:
		return fmt.Sprint(v)
	}
}

func formatTimeOfDay(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%09d", h, m, s, d)
}

// convertSlice converts list and set values with elem, or tuple values with
// one type per position.
func convertSlice(elem gocql.TypeInfo, v reflect.Value, positional ...gocql.TypeInfo) (interface{}, error) {
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, adapter.ConversionFailed(dbcapabilities.Cassandra, "expected a collection, got %s", v.Type())
	}
	arr := make([]interface{}, v.Len())
	for i := range arr {
		info := elem
		if positional != nil {
			if i >= len(positional) {
				break
			}
			info = positional[i]
		}
		converted, err := convertValue(info, indirect(v.Index(i)))
		if err != nil {
			return nil, err
		}
		arr[i] = converted
	}
	return arr, nil
}

func convertMap(collection gocql.CollectionType, v reflect.Value) (interface{}, error) {
	if v.Kind() != reflect.Map {
		return nil, adapter.ConversionFailed(dbcapabilities.Cassandra, "expected a map, got %s", v.Type())
	}
	obj := make(map[string]interface{}, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKey(collection.Key, indirect(iter.Key()))
		if err != nil {
			return nil, err
		}
		converted, err := convertValue(collection.Elem, indirect(iter.Value()))
		if err != nil {
			return nil, err
		}
		obj[key] = converted
	}
	return obj, nil
}

// mapKey stringifies scalar map keys. Collection and UDT keys have no JSON
// object form.
func mapKey(info gocql.TypeInfo, key interface{}) (string, error) {
	switch info.Type() {
	case gocql.TypeList, gocql.TypeSet, gocql.TypeMap, gocql.TypeTuple, gocql.TypeUDT, gocql.TypeCustom:
		return "", adapter.ConversionFailed(dbcapabilities.Cassandra, "unsupported map key type %s", info.Type())
	}
	converted, err := convertValue(info, key)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(converted), nil
}

func indirect(v reflect.Value) interface{} {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}
