// Package livedata implements the LiveDataServer console: a
// tiered safe-query surface against the target application's live runtime
// state, wrapped in SafeContext (an unconditionally-rolled-back
// transaction), SqlValidator/ModelValidator, Confirmation, and an
// append-only AuditLogger.
package livedata

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect is the closed set of SQL dialects SafeContext knows how to apply
// a statement timeout for.
type Dialect string

// Closed set of dialects.
const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// Row is one returned record, column name -> value.
type Row = map[string]any

// Tx is the scoped handle a SafeContext block executes against. It exposes
// only Query/Exec; there is no Commit method -- the only way out is
// Rollback, which SafeContext calls on every exit path.
type Tx interface {
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	Exec(ctx context.Context, query string, args ...any) error
}

// SafeContext acquires a transaction against db and guarantees rollback on
// every exit path, with a dialect-aware statement timeout so a runaway
// query cannot hang the console. Implementers in other languages use their
// scoped-acquisition mechanism; in Go that is this type's
// Execute method plus a deferred rollback.
type SafeContext struct {
	db      *sql.DB
	dialect Dialect
}

// New constructs a SafeContext over db, tagged with its dialect for the
// statement-timeout pragma.
func New(db *sql.DB, dialect Dialect) *SafeContext {
	return &SafeContext{db: db, dialect: dialect}
}

// Execute runs fn inside a transaction that is rolled back unconditionally,
// regardless of fn's return path -- even an operation that "claims" to
// write never commits unless explicitly routed through a confirmed write
// adapter outside this type entirely. timeoutMs bounds the statement.
func (s *SafeContext) Execute(ctx context.Context, timeoutMs int, fn func(ctx context.Context, tx Tx) (any, error)) (result any, err error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("livedata: begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if timeoutMs > 0 {
		if stmt := s.timeoutStatement(timeoutMs); stmt != "" {
			if _, execErr := sqlTx.ExecContext(ctx, stmt); execErr != nil {
				return nil, fmt.Errorf("livedata: set statement timeout: %w", execErr)
			}
		}
	}

	return fn(ctx, &sqlTxAdapter{tx: sqlTx})
}

// timeoutStatement returns the dialect-specific SQL that bounds the
// remainder of the transaction to timeoutMs.
func (s *SafeContext) timeoutStatement(timeoutMs int) string {
	switch s.dialect {
	case DialectPostgres:
		return fmt.Sprintf("SET LOCAL statement_timeout = %d", timeoutMs)
	case DialectMySQL:
		return fmt.Sprintf("SET SESSION max_execution_time = %d", timeoutMs)
	default:
		return ""
	}
}

type sqlTxAdapter struct {
	tx *sql.Tx
}

func (a *sqlTxAdapter) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := a.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (a *sqlTxAdapter) Exec(ctx context.Context, query string, args ...any) error {
	_, err := a.tx.ExecContext(ctx, query, args...)
	return err
}

// normalizeValue converts driver byte-slice values (common for TEXT/VARCHAR
// columns under database/sql) to strings so JSON-encoded results read as
// plain text rather than base64.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
