package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
	"github.com/redbco/redb-gateway/services/gateway/internal/sanitizer"
)

// Sanitize bounds a statement with the PostgreSQL grammar.
func (c *Connection) Sanitize(_ context.Context, raw string, limit int) (string, error) {
	return c.sanitizer.Sanitize(sanitizer.Postgres, raw, limit)
}

// explainQuery wraps a bounded statement for a JSON plan.
func explainQuery(bounded string) string {
	return "EXPLAIN (FORMAT JSON) " + bounded
}

// aggregateQuery wraps a bounded statement so every row is folded into one
// JSON array regardless of column shape.
func aggregateQuery(bounded string) string {
	return fmt.Sprintf("WITH q AS (%s) SELECT JSON_AGG(q.*) AS data FROM q", bounded)
}

// Execute sanitizes the query, fetches its plan and runs it as a single
// JSON aggregate. Only the aggregate is timed.
func (c *Connection) Execute(ctx context.Context, raw string, limit *int) (*unifiedmodel.QueryResult, error) {
	bounded, err := c.Sanitize(ctx, raw, c.config.EffectiveLimit(limit))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout())
	defer cancel()

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "acquire", err)
	}
	defer conn.Release()

	plan, err := c.plan(ctx, conn.Conn(), bounded)
	if err != nil {
		return nil, err
	}

	var data []byte
	start := time.Now()
	err = conn.QueryRow(ctx, aggregateQuery(bounded)).Scan(&data)
	elapsed := time.Since(start)
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "execute", err)
	}

	c.logger.Debugf("postgres %s: query finished in %s", c.config.Name, elapsed)

	return &unifiedmodel.QueryResult{
		Data:          normalizeAggregate(data),
		ExecutionTime: elapsed,
		Plan:          plan,
	}, nil
}

func (c *Connection) plan(ctx context.Context, conn *pgx.Conn, bounded string) (json.RawMessage, error) {
	var doc []byte
	err := conn.QueryRow(ctx, explainQuery(bounded)).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, adapter.QueryFailed(dbcapabilities.PostgreSQL, "explain", err)
	}
	return firstPlan(doc), nil
}

// firstPlan returns the first element of an EXPLAIN (FORMAT JSON) document,
// or nil when the document is empty.
func firstPlan(doc []byte) json.RawMessage {
	var plans []json.RawMessage
	if err := json.Unmarshal(doc, &plans); err != nil || len(plans) == 0 {
		return nil
	}
	return plans[0]
}

// normalizeAggregate maps a NULL aggregate (no rows) to JSON null.
func normalizeAggregate(data []byte) json.RawMessage {
	if len(data) == 0 {
		return unifiedmodel.NullJSON
	}
	return json.RawMessage(data)
}
