package livedata

import (
	"context"
	"fmt"
	"strings"
)

// DefaultStatementTimeoutMs is the per-query timeout SafeContext applies
// when a tool does not specify its own.
const DefaultStatementTimeoutMs = 5000

var _ Adapter = (*EmbeddedAdapter)(nil)

// EmbeddedAdapter executes Tier-1 primitives directly against the target
// application's database inside a SafeContext, treating a validated model
// name as its SQL table identifier. The schema primitive and every Tier-2+
// tool return ErrUnsupported.
type EmbeddedAdapter struct {
	ctx     *SafeContext
	dialect string
	models  []string // for Status
}

// NewEmbeddedAdapter constructs an EmbeddedAdapter over ctx. models is the
// known model list surfaced by the "status" tool.
func NewEmbeddedAdapter(ctx *SafeContext, dialect string, models []string) *EmbeddedAdapter {
	return &EmbeddedAdapter{ctx: ctx, dialect: dialect, models: append([]string(nil), models...)}
}

func (a *EmbeddedAdapter) Count(ctx context.Context, model string, conditions Row) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", quoteIdent(model))
	where, args := buildWhere(conditions)
	query += where

	var count int64
	_, err := a.ctx.Execute(ctx, DefaultStatementTimeoutMs, func(ctx context.Context, tx Tx) (any, error) {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			count = toInt64(rows[0]["n"])
		}
		return nil, nil
	})
	return count, err
}

func (a *EmbeddedAdapter) Sample(ctx context.Context, model string, limit int) ([]Row, error) {
	order := "RANDOM()"
	if a.dialect == string(DialectMySQL) {
		order = "RAND()"
	}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT %d", quoteIdent(model), order, capLimit(limit, 25))
	return a.query(ctx, query)
}

func (a *EmbeddedAdapter) Find(ctx context.Context, model, column string, value any) (Row, bool, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 1", quoteIdent(model), quoteIdent(column))
	rows, err := a.query(ctx, query, value)
	if err != nil || len(rows) == 0 {
		return nil, false, err
	}
	return rows[0], true, nil
}

func (a *EmbeddedAdapter) Pluck(ctx context.Context, model string, columns []string, distinct bool, limit int) ([]Row, error) {
	selectClause := strings.Join(quoteIdents(columns), ", ")
	if distinct {
		selectClause = "DISTINCT " + selectClause
	}
	query := fmt.Sprintf("SELECT %s FROM %s LIMIT %d", selectClause, quoteIdent(model), capLimit(limit, 1000))
	return a.query(ctx, query)
}

func (a *EmbeddedAdapter) Aggregate(ctx context.Context, model, fn, column string) (float64, error) {
	sqlFn := map[string]string{"sum": "SUM", "average": "AVG", "minimum": "MIN", "maximum": "MAX"}[fn]
	if sqlFn == "" {
		return 0, fmt.Errorf("livedata: unknown aggregate function %q", fn)
	}
	query := fmt.Sprintf("SELECT %s(%s) AS v FROM %s", sqlFn, quoteIdent(column), quoteIdent(model))
	var value float64
	_, err := a.ctx.Execute(ctx, DefaultStatementTimeoutMs, func(ctx context.Context, tx Tx) (any, error) {
		rows, err := tx.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			value = toFloat64(rows[0]["v"])
		}
		return nil, nil
	})
	return value, err
}

func (a *EmbeddedAdapter) AssociationCount(ctx context.Context, model, id, association string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s WHERE %s = ?", quoteIdent(association), quoteIdent(model+"_id"))
	var count int64
	_, err := a.ctx.Execute(ctx, DefaultStatementTimeoutMs, func(ctx context.Context, tx Tx) (any, error) {
		rows, err := tx.Query(ctx, query, id)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			count = toInt64(rows[0]["n"])
		}
		return nil, nil
	})
	return count, err
}

func (a *EmbeddedAdapter) Schema(ctx context.Context, model string, withIndexes bool) (SchemaInfo, error) {
	return SchemaInfo{}, &ErrUnsupported{Tool: "schema"}
}

func (a *EmbeddedAdapter) Recent(ctx context.Context, model, orderBy, direction string, limit int) ([]Row, error) {
	if direction != "asc" && direction != "desc" {
		direction = "desc"
	}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s %s LIMIT %d",
		quoteIdent(model), quoteIdent(orderBy), strings.ToUpper(direction), capLimit(limit, 50))
	return a.query(ctx, query)
}

func (a *EmbeddedAdapter) Status(ctx context.Context) (StatusInfo, error) {
	return StatusInfo{Adapter: "embedded", Models: append([]string(nil), a.models...)}, nil
}

func (a *EmbeddedAdapter) Exec(ctx context.Context, tool string, params Row) (any, error) {
	return nil, &ErrUnsupported{Tool: tool}
}

func (a *EmbeddedAdapter) query(ctx context.Context, query string, args ...any) ([]Row, error) {
	var rows []Row
	_, err := a.ctx.Execute(ctx, DefaultStatementTimeoutMs, func(ctx context.Context, tx Tx) (any, error) {
		r, err := tx.Query(ctx, query, args...)
		rows = r
		return nil, err
	})
	return rows, err
}

func buildWhere(conditions Row) (string, []any) {
	if len(conditions) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(conditions))
	args := make([]any, 0, len(conditions))
	for col, val := range conditions {
		clauses = append(clauses, fmt.Sprintf("%s = ?", quoteIdent(col)))
		args = append(args, val)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteIdents(idents []string) []string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = quoteIdent(id)
	}
	return out
}

func capLimit(requested, max int) int {
	if requested <= 0 || requested > max {
		return max
	}
	return requested
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
