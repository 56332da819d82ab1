package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
	"github.com/redbco/redb-gateway/services/gateway/internal/sanitizer"
)

// Sanitize bounds a statement with the MySQL grammar.
func (c *Connection) Sanitize(_ context.Context, raw string, limit int) (string, error) {
	return c.sanitizer.Sanitize(sanitizer.MySQL, raw, limit)
}

func explainQuery(bounded string) string {
	return "EXPLAIN FORMAT=JSON " + bounded
}

// Execute sanitizes the query, fetches its plan and scans every row into an
// object keyed by column name. Only the row fetch is timed.
func (c *Connection) Execute(ctx context.Context, raw string, limit *int) (*unifiedmodel.QueryResult, error) {
	bounded, err := c.Sanitize(ctx, raw, c.config.EffectiveLimit(limit))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout())
	defer cancel()

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "acquire", err)
	}
	defer conn.Close()

	plan := c.plan(ctx, conn, bounded)

	start := time.Now()
	rows, err := conn.QueryContext(ctx, bounded)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "execute", err)
	}
	result, err := scanRows(rows)
	elapsed := time.Since(start)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.MySQL, "execute", err)
	}

	data, err := encodeRows(result)
	if err != nil {
		return nil, adapter.ConversionFailed(dbcapabilities.MySQL, "error encoding rows: %v", err)
	}

	c.logger.Debugf("mysql %s: %d rows in %s", c.config.Name, len(result), elapsed)

	return &unifiedmodel.QueryResult{
		Data:          data,
		ExecutionTime: elapsed,
		Plan:          plan,
	}, nil
}

// plan is best effort: servers without JSON explain support still answer.
func (c *Connection) plan(ctx context.Context, conn *sql.Conn, bounded string) json.RawMessage {
	var doc string
	if err := conn.QueryRowContext(ctx, explainQuery(bounded)).Scan(&doc); err != nil {
		c.logger.Warnf("mysql %s: explain failed: %v", c.config.Name, err)
		return nil
	}
	if !json.Valid([]byte(doc)) {
		return nil
	}
	return json.RawMessage(doc)
}

func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		rowMap := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			rowMap[col] = sanitizeValue(values[i])
		}
		result = append(result, rowMap)
	}
	return result, rows.Err()
}

// sanitizeValue turns driver values into JSON-friendly ones.
func sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// encodeRows renders rows as a JSON array; no rows is null, matching the
// aggregate semantics of the other SQL store.
func encodeRows(rows []map[string]interface{}) (json.RawMessage, error) {
	if len(rows) == 0 {
		return unifiedmodel.NullJSON, nil
	}
	return json.Marshal(rows)
}
