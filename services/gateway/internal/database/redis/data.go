package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// readOnlyCommands may run when the store is configured read-only.
var readOnlyCommands = map[string]struct{}{
	"BITCOUNT": {}, "BITPOS": {}, "DBSIZE": {}, "DUMP": {}, "ECHO": {},
	"EXISTS": {}, "EXPIRETIME": {}, "GEODIST": {}, "GEOHASH": {}, "GEOPOS": {},
	"GEOSEARCH": {}, "GET": {}, "GETBIT": {}, "GETRANGE": {}, "HEXISTS": {},
	"HGET": {}, "HGETALL": {}, "HKEYS": {}, "HLEN": {}, "HMGET": {},
	"HRANDFIELD": {}, "HSCAN": {}, "HSTRLEN": {}, "HVALS": {}, "INFO": {},
	"KEYS": {}, "LINDEX": {}, "LLEN": {}, "LPOS": {}, "LRANGE": {},
	"MGET": {}, "PEXPIRETIME": {}, "PFCOUNT": {}, "PING": {}, "PTTL": {},
	"RANDOMKEY": {}, "SCAN": {}, "SCARD": {}, "SDIFF": {}, "SINTER": {},
	"SISMEMBER": {}, "SMEMBERS": {}, "SMISMEMBER": {}, "SRANDMEMBER": {}, "SSCAN": {},
	"STRLEN": {}, "SUNION": {}, "TIME": {}, "TTL": {}, "TYPE": {},
	"XLEN": {}, "XRANGE": {}, "XREVRANGE": {}, "ZCARD": {}, "ZCOUNT": {},
	"ZLEXCOUNT": {}, "ZMSCORE": {}, "ZRANDMEMBER": {}, "ZRANGE": {}, "ZRANGEBYLEX": {},
	"ZRANGEBYSCORE": {}, "ZRANK": {}, "ZREVRANGE": {}, "ZREVRANGEBYLEX": {}, "ZREVRANGEBYSCORE": {},
	"ZREVRANK": {}, "ZSCAN": {}, "ZSCORE": {},
}

// parseCommand splits a command line on whitespace. The command name is
// upper-cased; arguments pass through verbatim.
func parseCommand(raw string, readOnly bool) ([]interface{}, error) {
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return nil, adapter.BadRequest("Empty query")
	}

	name := strings.ToUpper(parts[0])
	if readOnly {
		if _, ok := readOnlyCommands[name]; !ok {
			return nil, adapter.BadRequest("command %s is not allowed on a read-only store", name)
		}
	}

	args := make([]interface{}, len(parts))
	args[0] = name
	for i, part := range parts[1:] {
		args[i+1] = part
	}
	return args, nil
}

// Sanitize checks the command and returns it unchanged.
func (c *Connection) Sanitize(_ context.Context, raw string, _ int) (string, error) {
	if _, err := parseCommand(raw, c.config.ReadOnly); err != nil {
		return "", err
	}
	return raw, nil
}

// Execute runs a single command. A nil reply is JSON null, not an error.
func (c *Connection) Execute(ctx context.Context, raw string, _ *int) (*unifiedmodel.QueryResult, error) {
	args, err := parseCommand(raw, c.config.ReadOnly)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout())
	defer cancel()

	start := time.Now()
	reply, err := c.client.Do(ctx, args...).Result()
	elapsed := time.Since(start)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, adapter.QueryFailed(dbcapabilities.Redis, "execute", err)
	}
	if errors.Is(err, redis.Nil) {
		reply = nil
	}

	value, err := convertReply(reply)
	if err != nil {
		return nil, adapter.ConversionFailed(dbcapabilities.Redis, "%v", err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, adapter.ConversionFailed(dbcapabilities.Redis, "error encoding reply: %v", err)
	}

	c.logger.Debugf("redis %s: %s finished in %s", c.config.Name, args[0], elapsed)

	return &unifiedmodel.QueryResult{Data: data, ExecutionTime: elapsed}, nil
}

// convertReply maps a go-redis reply to JSON-friendly values. Strings are
// made valid UTF-8; RESP3 map keys are stringified.
func convertReply(reply interface{}) (interface{}, error) {
	switch v := reply.(type) {
	case nil:
		return nil, nil
	case int64, bool, float64:
		return v, nil
	case string:
		return strings.ToValidUTF8(v, "�"), nil
	case []byte:
		return strings.ToValidUTF8(string(v), "�"), nil
	case []interface{}:
		arr := make([]interface{}, len(v))
		for i, item := range v {
			converted, err := convertReply(item)
			if err != nil {
				return nil, err
			}
			arr[i] = converted
		}
		return arr, nil
	case map[interface{}]interface{}:
		obj := make(map[string]interface{}, len(v))
		for key, item := range v {
			converted, err := convertReply(item)
			if err != nil {
				return nil, err
			}
			obj[fmt.Sprint(key)] = converted
		}
		return obj, nil
	case map[string]interface{}:
		obj := make(map[string]interface{}, len(v))
		for key, item := range v {
			converted, err := convertReply(item)
			if err != nil {
				return nil, err
			}
			obj[key] = converted
		}
		return obj, nil
	case error:
		return nil, v
	default:
		return nil, fmt.Errorf("unsupported reply type %T", reply)
	}
}
