package sanitizer

import (
	"errors"
	"io"
	"strconv"

	"github.com/xwb1989/sqlparser"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
)

func (s *Sanitizer) sanitizeMySQL(sql string, limit int) (string, error) {
	if isBlankMySQL(sql) {
		return "", adapter.BadRequest(msgSingleStatement)
	}

	tokens := sqlparser.NewStringTokenizer(sql)

	var stmts []sqlparser.Statement
	for {
		stmt, err := sqlparser.ParseNext(tokens)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", parseError(err)
		}
		stmts = append(stmts, stmt)
	}
	if len(stmts) != 1 {
		return "", adapter.BadRequest(msgSingleStatement)
	}

	switch stmt := stmts[0].(type) {
	case *sqlparser.Select:
		if stmt.Lock != "" {
			return "", adapter.BadRequest("locking clauses are not allowed")
		}
		stmt.Limit = s.mysqlLimit(stmt.Limit, limit)
		return sqlparser.String(stmt), nil
	case *sqlparser.ParenSelect:
		if hasMySQLUnion(stmt) {
			return "", adapter.BadRequest(msgSelectOnly)
		}
		// A parenthesized select carries no limit node of its own.
		return sqlparser.String(stmt) + " limit " + strconv.Itoa(limit), nil
	default:
		return "", adapter.BadRequest(msgSelectOnly)
	}
}

func hasMySQLUnion(stmt sqlparser.SelectStatement) bool {
	switch stmt := stmt.(type) {
	case *sqlparser.Union:
		return true
	case *sqlparser.ParenSelect:
		return hasMySQLUnion(stmt.Select)
	default:
		return false
	}
}

// isBlankMySQL reports whether sql holds no statement at all: only
// whitespace, comments and semicolons.
func isBlankMySQL(sql string) bool {
	tokens := sqlparser.NewStringTokenizer(sql)
	for {
		typ, _ := tokens.Scan()
		switch typ {
		case 0:
			return true
		case sqlparser.COMMENT, ';':
			continue
		default:
			return false
		}
	}
}

func (s *Sanitizer) mysqlLimit(existing *sqlparser.Limit, limit int) *sqlparser.Limit {
	if existing == nil {
		return &sqlparser.Limit{Rowcount: intVal(int64(limit))}
	}
	if n, ok := mysqlIntLiteral(existing.Rowcount); ok {
		existing.Rowcount = intVal(s.boundLimit(n, limit))
		return existing
	}
	existing.Rowcount = intVal(int64(limit))
	return existing
}

func mysqlIntLiteral(expr sqlparser.Expr) (int64, bool) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.IntVal {
		return 0, false
	}
	n, err := strconv.ParseInt(string(val.Val), 10, 64)
	if err != nil {
		// Digits only, so the literal overflowed int64.
		if errors.Is(err, strconv.ErrRange) {
			return int64(^uint64(0) >> 1), true
		}
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	return n, true
}

func intVal(n int64) *sqlparser.SQLVal {
	return sqlparser.NewIntVal([]byte(strconv.FormatInt(n, 10)))
}
