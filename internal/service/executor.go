package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pgdash/internal/core"
)

// QueryResult is the per-submitted-SQL outcome of one execution. Rows and
// Error are mutually exclusive.
type QueryResult struct {
	SQL       string
	Columns   []string
	Rows      [][]interface{}
	Truncated bool
	Duration  time.Duration
	Error     string
}

// QueryExecutor runs one SQL statement at a time against Postgres inside an
// isolated, read-only, rollback-always transaction.
type QueryExecutor struct {
	db                 *sql.DB
	statementTimeoutMs int
}

// NewQueryExecutor wraps a Postgres connection pool. statementTimeoutMs is
// applied per transaction with SET LOCAL before any user SQL runs; zero
// disables it.
func NewQueryExecutor(db *sql.DB, statementTimeoutMs int) *QueryExecutor {
	return &QueryExecutor{db: db, statementTimeoutMs: statementTimeoutMs}
}

// GuardSingleStatement strips trailing semicolons and whitespace and rejects
// SQL that still contains a semicolon. The check happens before any database
// round-trip.
func GuardSingleStatement(sqlText string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(sqlText), "; \t\r\n")
	if strings.Contains(trimmed, ";") {
		return "", core.ErrMultiStatement
	}
	return trimmed, nil
}

// Execute runs sqlText with the bound parameter values and returns a result
// capped at rowLimit rows. Failures are captured in the result's Error field,
// never returned: one query's failure must not abort its siblings.
func (e *QueryExecutor) Execute(ctx context.Context, sqlText string, values core.BoundValues, rowLimit int) *QueryResult {
	start := time.Now()
	res := &QueryResult{SQL: sqlText}
	// Every exit path carries timing, error results included.
	defer func() { res.Duration = time.Since(start) }()

	trimmed, err := GuardSingleStatement(sqlText)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	rewritten, args := core.RewritePositional(trimmed, values)

	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	// Execution scoping only: nothing this transaction does is ever kept,
	// even if the SQL slips past read-only mode.
	defer tx.Rollback()

	if e.statementTimeoutMs > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", e.statementTimeoutMs)); err != nil {
			res.Error = err.Error()
			return res
		}
	}
	// Read-only takes effect reliably only once a statement has run, so
	// prime the transaction before touching user SQL.
	if _, err := tx.ExecContext(ctx, "SELECT 1"); err != nil {
		res.Error = err.Error()
		return res
	}

	rows, err := tx.QueryContext(ctx, rewritten, args...)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if len(columns) == 0 {
		// Statement type with no result set: report a status pseudo-row
		// instead of failing the query. database/sql never surfaces the
		// driver's command tag, so a generic message stands in for it.
		res.Columns = []string{"statusmessage"}
		res.Rows = [][]interface{}{{"statement executed, no rows returned"}}
		return res
	}

	var fetched [][]interface{}
	for len(fetched) < rowLimit+1 && rows.Next() {
		vals := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			res.Error = err.Error()
			return res
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		fetched = append(fetched, vals)
	}
	if err := rows.Err(); err != nil {
		res.Error = err.Error()
		return res
	}

	if len(fetched) == rowLimit+1 {
		res.Truncated = true
		fetched = fetched[:rowLimit]
	}
	res.Columns = columns
	res.Rows = fetched
	return res
}
