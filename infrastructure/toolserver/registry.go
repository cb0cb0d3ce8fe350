package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Handler is a registered tool's implementation. params is the raw JSON
// params object from the request; a handler unmarshals only the fields it
// expects and returns a HandlerError to set a specific error_type.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Tool names the read-side handlers register. pipeline_status and
// retrieval_rate/report_gap/explain/suggest are only added when their
// collaborators are configured -- see toolhandlers.Handlers.Register.
// ToolExtract, ToolEmbed, ToolDiagnose, and ToolRepair are declared here but
// no handler registers them.
const (
	ToolLookup           = "lookup"
	ToolSearch           = "search"
	ToolDependencies     = "dependencies"
	ToolDependents       = "dependents"
	ToolStructure        = "structure"
	ToolGraphAnalysis    = "graph_analysis"
	ToolPageRank         = "pagerank"
	ToolFramework        = "framework"
	ToolRecentChanges    = "recent_changes"
	ToolReload           = "reload"
	ToolCodebaseRetrieve = "codebase_retrieve"
	ToolTraceFlow        = "trace_flow"

	ToolPipelineStatus = "pipeline_status"
	ToolExtract        = "extract"
	ToolEmbed          = "embed"
	ToolDiagnose       = "diagnose"
	ToolRepair         = "repair"

	ToolRetrievalRate = "retrieval_rate"
	ToolReportGap     = "report_gap"
	ToolExplain       = "explain"
	ToolSuggest       = "suggest"
)

// Registry is the static tool_name -> Handler map. It is the ONLY dispatch
// surface: a tool name not registered here can never be reached, and no
// private method of a collaborator is callable by name.
type Registry struct {
	handlers map[string]Handler
	deadline time.Duration
}

// NewRegistry constructs an empty Registry. deadline bounds every handler
// call; zero disables the hard deadline.
func NewRegistry(deadline time.Duration) *Registry {
	return &Registry{handlers: make(map[string]Handler), deadline: deadline}
}

// Register adds a named tool. Registering the same name twice panics at
// construction time -- this is a wiring bug, not a runtime condition.
func (r *Registry) Register(name string, h Handler) {
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("toolserver: tool %q already registered", name))
	}
	r.handlers[name] = h
}

// Names returns every registered tool name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Dispatch resolves req.Tool in the static map and invokes it, framing the
// result or error as a Response. Unknown tool names and handler panics are
// both safely converted to ok:false responses -- a handler must never take
// down the dispatch loop.
func (r *Registry) Dispatch(ctx context.Context, req Request) Response {
	start := time.Now()
	resp := Response{ID: req.ID}

	handler, ok := r.handlers[req.Tool]
	if !ok {
		resp.Ok = false
		resp.ErrorType = ErrKindUnknownTool
		resp.Error = fmt.Sprintf("unknown tool: %s", req.Tool)
		resp.TimingMs = time.Since(start).Milliseconds()
		return resp
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if r.deadline > 0 {
		callCtx, cancel = context.WithTimeout(ctx, r.deadline)
		defer cancel()
	}

	result, err := r.invoke(callCtx, handler, req.Params)
	resp.TimingMs = time.Since(start).Milliseconds()
	if err != nil {
		resp.Ok = false
		resp.Error = err.Error()
		if he, ok := err.(*HandlerError); ok {
			resp.ErrorType = he.Kind
		} else if callCtx.Err() != nil {
			resp.ErrorType = ErrKindTimeout
		} else {
			resp.ErrorType = ErrKindExecution
		}
		return resp
	}

	resp.Ok = true
	resp.Result = result
	return resp
}

// invoke runs handler, recovering a panic into an execution error so one
// misbehaving tool cannot crash the dispatch loop or the process.
func (r *Registry) invoke(ctx context.Context, h Handler, params json.RawMessage) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = NewHandlerError(ErrKindExecution, fmt.Sprintf("handler panic: %v", p))
		}
	}()
	return h(ctx, params)
}
