// Package sanitizer bounds client SQL before it reaches a relational store.
// Statements are parsed with the store's own grammar, restricted to read-only
// query shapes, given a row limit and rendered back to text.
package sanitizer

import (
	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

// Dialect selects the SQL grammar.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

const (
	msgSingleStatement = "only single SQL statements are allowed"
	msgSelectOnly      = "Only SELECT-like queries are allowed."
)

// DialectFor returns the grammar used for a relational store kind.
func DialectFor(db dbcapabilities.DatabaseType) (Dialect, bool) {
	switch db {
	case dbcapabilities.PostgreSQL:
		return Postgres, true
	case dbcapabilities.MySQL:
		return MySQL, true
	default:
		return "", false
	}
}

// ParseDialect resolves a dialect name or any alias of its store kind.
func ParseDialect(name string) (Dialect, bool) {
	id, ok := dbcapabilities.ParseID(name)
	if !ok {
		return "", false
	}
	return DialectFor(id)
}

// Sanitizer rewrites statements against a fixed hard ceiling.
type Sanitizer struct {
	maxLimit int
}

// New returns a Sanitizer whose absolute ceiling is maxLimit. A
// non-positive value selects adapter.MaxLimit.
func New(maxLimit int) *Sanitizer {
	if maxLimit <= 0 {
		maxLimit = adapter.MaxLimit
	}
	return &Sanitizer{maxLimit: maxLimit}
}

var defaultSanitizer = New(adapter.MaxLimit)

// Sanitize bounds sql with the default ceiling.
func Sanitize(dialect Dialect, sql string, limit int) (string, error) {
	return defaultSanitizer.Sanitize(dialect, sql, limit)
}

// Sanitize parses sql as exactly one query-shaped statement, enforces the
// row limit and returns the rendered statement. A missing limit is set to
// limit verbatim; callers cap limit themselves. Every rejection is a
// BadRequest.
func (s *Sanitizer) Sanitize(dialect Dialect, sql string, limit int) (string, error) {
	if limit <= 0 {
		limit = adapter.DefaultLimit
	}

	switch dialect {
	case Postgres:
		return s.sanitizePostgres(sql, limit)
	case MySQL:
		return s.sanitizeMySQL(sql, limit)
	default:
		return "", adapter.BadRequest("unknown SQL dialect %q", string(dialect))
	}
}

// boundLimit applies the limit rule to an existing integer literal: a value
// below the requested limit is kept, anything else is capped at the ceiling.
func (s *Sanitizer) boundLimit(existing int64, limit int) int64 {
	if existing < int64(limit) {
		return existing
	}
	if existing > int64(s.maxLimit) {
		return int64(s.maxLimit)
	}
	return existing
}

func parseError(err error) error {
	return adapter.BadRequest("SQL parse error: %v", err)
}
