package livedata

import "context"

// SchemaInfo is the Tier-1 "schema" tool result: a model's columns and,
// optionally, its indexes.
type SchemaInfo struct {
	Model   string   `json:"model"`
	Columns []string `json:"columns"`
	Indexes []string `json:"indexes,omitempty"`
}

// StatusInfo is the Tier-1 "status" tool result.
type StatusInfo struct {
	Adapter string   `json:"adapter"`
	Models  []string `json:"models"`
}

// Adapter is the Tier-1 read-only primitive surface a LiveDataServer
// Server dispatches onto, after ModelValidator/SafeContext have already
// run. Two construction modes implement it: BridgeAdapter
// forwards each call as a toolserver wire-protocol request to an
// out-of-process target; EmbeddedAdapter executes SQL directly in-process
// inside a SafeContext.
type Adapter interface {
	Count(ctx context.Context, model string, conditions Row) (int64, error)
	Sample(ctx context.Context, model string, limit int) ([]Row, error)
	Find(ctx context.Context, model, column string, value any) (Row, bool, error)
	Pluck(ctx context.Context, model string, columns []string, distinct bool, limit int) ([]Row, error)
	Aggregate(ctx context.Context, model, fn, column string) (float64, error)
	AssociationCount(ctx context.Context, model, id, association string) (int64, error)
	Schema(ctx context.Context, model string, withIndexes bool) (SchemaInfo, error)
	Recent(ctx context.Context, model, orderBy, direction string, limit int) ([]Row, error)
	Status(ctx context.Context) (StatusInfo, error)

	// Tier2+: embedded adapters may return ErrUnsupported until ported;
	// bridge adapters forward unconditionally.
	Exec(ctx context.Context, tool string, params Row) (any, error)
}

// ErrUnsupported is the error an EmbeddedAdapter returns for the schema
// primitive and for every Tier-2+ tool.
type ErrUnsupported struct{ Tool string }

func (e *ErrUnsupported) Error() string { return "livedata: tool not supported in embedded mode: " + e.Tool }
