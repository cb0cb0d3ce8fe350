package livedata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kodexhq/kodex/domain/live"
	"github.com/kodexhq/kodex/infrastructure/persistence"
	"github.com/kodexhq/kodex/infrastructure/toolserver"
)

// Server wires the LiveDataServer console's safety pipeline -- validation,
// SafeContext (already inside Adapter), SqlValidator, Confirmation, audit
// logging, and column redaction -- around an Adapter, and registers its
// tiered tool set into a toolserver.Registry.
type Server struct {
	Validator    *live.ModelValidator
	SQL          live.SqlValidator
	Confirmation *live.Confirmation
	Audit        *persistence.AuditLogger
	Redacted     []string
	Adapter      Adapter
}

// NewServer constructs a Server over its collaborators.
func NewServer(validator *live.ModelValidator, confirmation *live.Confirmation, audit *persistence.AuditLogger, redacted []string, adapter Adapter) *Server {
	return &Server{
		Validator:    validator,
		SQL:          live.NewSqlValidator(),
		Confirmation: confirmation,
		Audit:        audit,
		Redacted:     redacted,
		Adapter:      adapter,
	}
}

// Register adds every Tier 1-4 tool name to reg, each wrapped in the
// validate -> (confirm) -> execute -> audit pipeline.
func (s *Server) Register(reg *toolserver.Registry) {
	reg.Register("count", s.wrap("count", live.Tier1ReadOnlyPrimitives, s.handleCount))
	reg.Register("sample", s.wrap("sample", live.Tier1ReadOnlyPrimitives, s.handleSample))
	reg.Register("find", s.wrap("find", live.Tier1ReadOnlyPrimitives, s.handleFind))
	reg.Register("pluck", s.wrap("pluck", live.Tier1ReadOnlyPrimitives, s.handlePluck))
	reg.Register("aggregate", s.wrap("aggregate", live.Tier1ReadOnlyPrimitives, s.handleAggregate))
	reg.Register("association_count", s.wrap("association_count", live.Tier1ReadOnlyPrimitives, s.handleAssociationCount))
	reg.Register("schema", s.wrap("schema", live.Tier1ReadOnlyPrimitives, s.handleSchema))
	reg.Register("recent", s.wrap("recent", live.Tier1ReadOnlyPrimitives, s.handleRecent))
	reg.Register("status", s.wrap("status", live.Tier1ReadOnlyPrimitives, s.handleStatus))

	for _, name := range live.Tier2Tools {
		name := name
		reg.Register(name, s.wrap(name, live.Tier2DomainComposites, s.delegate(name)))
	}
	for _, name := range live.Tier3Tools {
		name := name
		reg.Register(name, s.wrap(name, live.Tier3Operational, s.delegate(name)))
	}
	reg.Register("eval", s.wrap("eval", live.Tier4GuardedEscapeHatch, s.delegate("eval")))
	reg.Register("sql", s.wrap("sql", live.Tier4GuardedEscapeHatch, s.handleSQL))
	reg.Register("query", s.wrap("query", live.Tier4GuardedEscapeHatch, s.delegate("query")))
}

// wrap is the shared pipeline every tool routes through: Confirmation for
// Tier 4 (or any name in live.RequiresConfirmation), then the inner
// handler, then an audit log entry recording tool/params/approved/outcome.
func (s *Server) wrap(name string, tier live.Tier, inner toolserver.Handler) toolserver.Handler {
	_, requiresConfirm := live.RequiresConfirmation[name]
	gated := tier == live.Tier4GuardedEscapeHatch || requiresConfirm

	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var asMap map[string]any
		_ = json.Unmarshal(params, &asMap)

		approved := true
		var confirmErr error
		if gated && s.Confirmation != nil {
			confirmErr = s.Confirmation.Authorize(live.ConfirmationRequest{Tool: name, Params: asMap})
			approved = confirmErr == nil
		}

		var result any
		var err error
		if confirmErr != nil {
			err = toolserver.NewHandlerError(toolserver.ErrKindConfirmationDenied, confirmErr.Error())
		} else {
			result, err = inner(ctx, params)
		}

		if s.Audit != nil {
			entry := persistence.AuditEntry{Tool: name, Tier: tier, Params: asMap, Approved: approved}
			if err != nil {
				entry.Error = err.Error()
			}
			_ = s.Audit.Log(entry)
		}

		return result, err
	}
}

func (s *Server) delegate(tool string) toolserver.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var row Row
		_ = json.Unmarshal(params, &row)
		result, err := s.Adapter.Exec(ctx, tool, row)
		if err != nil {
			if _, ok := err.(*ErrUnsupported); ok {
				return nil, toolserver.NewHandlerError(toolserver.ErrKindUnsupported, err.Error())
			}
			return nil, err
		}
		return result, nil
	}
}

func (s *Server) handleCount(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Model      string `json:"model"`
		Conditions Row    `json:"conditions"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if err := s.Validator.ValidateModel(p.Model); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	for col := range p.Conditions {
		if err := s.Validator.ValidateColumn(p.Model, col); err != nil {
			return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
		}
	}
	return s.Adapter.Count(ctx, p.Model, p.Conditions)
}

func (s *Server) handleSample(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Model string `json:"model"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if err := s.Validator.ValidateModel(p.Model); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	rows, err := s.Adapter.Sample(ctx, p.Model, p.Limit)
	return Redact(rows, s.Redacted), err
}

func (s *Server) handleFind(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Model  string `json:"model"`
		Column string `json:"column"`
		Value  any    `json:"value"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if p.Column == "" {
		p.Column = "id"
	}
	if err := s.Validator.ValidateColumn(p.Model, p.Column); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	row, found, err := s.Adapter.Find(ctx, p.Model, p.Column, p.Value)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindExecution, fmt.Sprintf("no %s found with %s=%v", p.Model, p.Column, p.Value))
	}
	return Redact([]Row{row}, s.Redacted)[0], nil
}

func (s *Server) handlePluck(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Model    string   `json:"model"`
		Columns  []string `json:"columns"`
		Distinct bool     `json:"distinct"`
		Limit    int      `json:"limit"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if err := s.Validator.ValidateColumns(p.Model, p.Columns); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	rows, err := s.Adapter.Pluck(ctx, p.Model, p.Columns, p.Distinct, p.Limit)
	return Redact(rows, s.Redacted), err
}

var validAggregateFns = map[string]struct{}{"sum": {}, "average": {}, "minimum": {}, "maximum": {}}

func (s *Server) handleAggregate(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Model    string `json:"model"`
		Function string `json:"function"`
		Column   string `json:"column"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if _, ok := validAggregateFns[p.Function]; !ok {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, fmt.Sprintf("unknown aggregate function: %s", p.Function))
	}
	if err := s.Validator.ValidateColumn(p.Model, p.Column); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	return s.Adapter.Aggregate(ctx, p.Model, p.Function, p.Column)
}

func (s *Server) handleAssociationCount(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Model       string `json:"model"`
		ID          string `json:"id"`
		Association string `json:"association"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if err := s.Validator.ValidateModel(p.Model); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if err := s.Validator.ValidateModel(p.Association); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	return s.Adapter.AssociationCount(ctx, p.Model, p.ID, p.Association)
}

func (s *Server) handleSchema(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Model       string `json:"model"`
		WithIndexes bool   `json:"with_indexes"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if err := s.Validator.ValidateModel(p.Model); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	result, err := s.Adapter.Schema(ctx, p.Model, p.WithIndexes)
	if err != nil {
		if _, ok := err.(*ErrUnsupported); ok {
			return nil, toolserver.NewHandlerError(toolserver.ErrKindUnsupported, err.Error())
		}
		return nil, err
	}
	return result, nil
}

func (s *Server) handleRecent(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Model     string `json:"model"`
		OrderBy   string `json:"order_by"`
		Direction string `json:"direction"`
		Limit     int    `json:"limit"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if p.OrderBy == "" {
		p.OrderBy = "created_at"
	}
	if err := s.Validator.ValidateColumn(p.Model, p.OrderBy); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if p.Direction != "asc" && p.Direction != "desc" && p.Direction != "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "direction must be asc or desc")
	}
	rows, err := s.Adapter.Recent(ctx, p.Model, p.OrderBy, p.Direction, p.Limit)
	return Redact(rows, s.Redacted), err
}

func (s *Server) handleStatus(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.Adapter.Status(ctx)
}

func (s *Server) handleSQL(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		SQL   string `json:"sql"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, err.Error())
	}
	if err := s.SQL.Validate(p.SQL); err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindSQLRejected, err.Error())
	}
	if p.Limit <= 0 || p.Limit > 10000 {
		p.Limit = 10000
	}
	result, err := s.Adapter.Exec(ctx, "sql", Row{"sql": p.SQL, "limit": p.Limit})
	if err != nil {
		if _, ok := err.(*ErrUnsupported); ok {
			return nil, toolserver.NewHandlerError(toolserver.ErrKindUnsupported, err.Error())
		}
		return nil, err
	}
	return result, nil
}
