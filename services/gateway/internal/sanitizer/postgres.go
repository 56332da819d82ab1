package sanitizer

import (
	"math"

	pg_query "github.com/pganalyze/pg_query_go/v5"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
)

func (s *Sanitizer) sanitizePostgres(sql string, limit int) (string, error) {
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return "", parseError(err)
	}
	if len(tree.GetStmts()) != 1 {
		return "", adapter.BadRequest(msgSingleStatement)
	}

	stmt := tree.GetStmts()[0].GetStmt().GetSelectStmt()
	if stmt == nil {
		return "", adapter.BadRequest(msgSelectOnly)
	}
	if stmt.GetOp() != pg_query.SetOperation_SETOP_NONE {
		return "", adapter.BadRequest(msgSelectOnly)
	}
	if err := checkPostgresSelect(stmt, true); err != nil {
		return "", err
	}

	s.applyPostgresLimit(stmt, limit)

	out, err := pg_query.Deparse(tree)
	if err != nil {
		return "", adapter.BadRequest("failed to render statement: %v", err)
	}
	return out, nil
}

// checkPostgresSelect rejects SELECT shapes that write or lock: SELECT INTO,
// FOR UPDATE/SHARE and data-modifying CTEs.
func checkPostgresSelect(stmt *pg_query.SelectStmt, top bool) error {
	if stmt == nil {
		return nil
	}
	if stmt.GetIntoClause() != nil {
		return adapter.BadRequest("SELECT INTO is not allowed")
	}
	if len(stmt.GetLockingClause()) > 0 {
		return adapter.BadRequest("locking clauses are not allowed")
	}
	if with := stmt.GetWithClause(); with != nil {
		for _, node := range with.GetCtes() {
			cte := node.GetCommonTableExpr()
			if cte == nil {
				continue
			}
			inner := cte.GetCtequery().GetSelectStmt()
			if inner == nil {
				return adapter.BadRequest("data-modifying WITH queries are not allowed")
			}
			if err := checkPostgresSelect(inner, false); err != nil {
				return err
			}
		}
	}
	if err := checkPostgresSelect(stmt.GetLarg(), false); err != nil {
		return err
	}
	return checkPostgresSelect(stmt.GetRarg(), false)
}

func (s *Sanitizer) applyPostgresLimit(stmt *pg_query.SelectStmt, limit int) {
	if count := stmt.GetLimitCount(); count != nil {
		if existing, ok := postgresIntLiteral(count); ok {
			stmt.LimitCount = pg_query.MakeAConstIntNode(s.boundLimit(existing, limit), -1)
			return
		}
	}

	// No limit, LIMIT ALL, or a non-literal expression.
	stmt.LimitCount = pg_query.MakeAConstIntNode(int64(limit), -1)
	if stmt.GetLimitOption() != pg_query.LimitOption_LIMIT_OPTION_WITH_TIES {
		stmt.LimitOption = pg_query.LimitOption_LIMIT_OPTION_COUNT
	}
}

// postgresIntLiteral returns the value of a non-negative integer constant.
func postgresIntLiteral(node *pg_query.Node) (int64, bool) {
	c := node.GetAConst()
	if c == nil || c.GetIsnull() {
		return 0, false
	}
	ival := c.GetIval()
	if ival == nil {
		// Integers beyond int32 are carried as numeric strings.
		if f := c.GetFval(); f != nil && isDigits(f.GetFval()) {
			return math.MaxInt64, true
		}
		return 0, false
	}
	if ival.GetIval() < 0 {
		return 0, false
	}
	return int64(ival.GetIval()), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
