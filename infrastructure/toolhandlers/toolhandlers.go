// Package toolhandlers wires the Retriever and its supporting collaborators
// onto a toolserver.Registry: one Handler per tool name, each unmarshaling
// only the params it needs and letting a HandlerError set a specific
// error_type instead of falling through to a generic failure.
package toolhandlers

import (
	"context"
	"encoding/json"

	"github.com/kodexhq/kodex/application/feedback"
	"github.com/kodexhq/kodex/application/invalidate"
	"github.com/kodexhq/kodex/application/retriever"
	"github.com/kodexhq/kodex/domain/pipeline"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/infrastructure/persistence"
	"github.com/kodexhq/kodex/infrastructure/toolserver"
)

// Handlers bundles every collaborator the read-side tools may call.
// Feedback, Manifest, Guard, Reporter, and Indexer are optional; see
// Register for which tools each one gates.
type Handlers struct {
	Retriever *retriever.Retriever
	Metadata  store.MetadataStore
	Graph     store.GraphStore

	Manifest *persistence.ManifestStore
	Guard    *pipeline.Guard
	Reporter *pipeline.Reporter
	Indexer  *invalidate.IncrementalIndexer
	Feedback *feedback.Service
}

// Register adds every configured tool to reg. Retriever, Metadata, and
// Graph are required for the core read-side set. pipeline_status is added
// only when Manifest and Reporter are both set; retrieval_rate, report_gap,
// suggest, and explain only when Feedback is set. recent_changes and reload
// are always registered and return an unsupported error when Manifest or
// Guard, respectively, is nil. Indexer gates no tool.
func (h *Handlers) Register(reg *toolserver.Registry) {
	reg.Register(toolserver.ToolLookup, h.handleLookup)
	reg.Register(toolserver.ToolSearch, h.handleSearch)
	reg.Register(toolserver.ToolDependencies, h.handleDependencies)
	reg.Register(toolserver.ToolDependents, h.handleDependents)
	reg.Register(toolserver.ToolStructure, h.handleStructure)
	reg.Register(toolserver.ToolGraphAnalysis, h.handleGraphAnalysis)
	reg.Register(toolserver.ToolPageRank, h.handlePageRank)
	reg.Register(toolserver.ToolFramework, h.handleFramework)
	reg.Register(toolserver.ToolRecentChanges, h.handleRecentChanges)
	reg.Register(toolserver.ToolReload, h.handleReload)
	reg.Register(toolserver.ToolCodebaseRetrieve, h.handleCodebaseRetrieve)
	reg.Register(toolserver.ToolTraceFlow, h.handleTraceFlow)

	if h.Manifest != nil && h.Reporter != nil {
		reg.Register(toolserver.ToolPipelineStatus, h.handlePipelineStatus)
	}
	if h.Feedback != nil {
		reg.Register(toolserver.ToolRetrievalRate, h.handleRetrievalRate)
		reg.Register(toolserver.ToolReportGap, h.handleReportGap)
		reg.Register(toolserver.ToolSuggest, h.handleSuggest)
		reg.Register(toolserver.ToolExplain, h.handleExplain)
	}
}

func unmarshal(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return toolserver.NewHandlerError(toolserver.ErrKindParse, err.Error())
	}
	return nil
}

func (h *Handlers) handleLookup(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Identifier string `json:"identifier"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Identifier == "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "lookup requires identifier")
	}
	u, found, err := h.Metadata.Find(ctx, p.Identifier)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "no unit with identifier "+p.Identifier)
	}
	return u, nil
}

func (h *Handlers) handleSearch(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Query  string `json:"query"`
		Budget int    `json:"budget"`
		Format string `json:"format"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Query == "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "search requires query")
	}
	formatter := retriever.FormatterFor(retriever.FormatName(p.Format))
	result, err := h.Retriever.Retrieve(ctx, p.Query, p.Budget, formatter)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *Handlers) handleDependencies(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Identifier string `json:"identifier"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Identifier == "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "dependencies requires identifier")
	}
	return h.Graph.DependenciesOf(ctx, p.Identifier)
}

func (h *Handlers) handleDependents(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Identifier string `json:"identifier"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Identifier == "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "dependents requires identifier")
	}
	return h.Graph.DependentsOf(ctx, p.Identifier)
}

func (h *Handlers) handleStructure(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Type string `json:"type"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Type == "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "structure requires type")
	}
	return h.Metadata.FindByType(ctx, p.Type)
}

func (h *Handlers) handleGraphAnalysis(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Paths []string `json:"paths"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if len(p.Paths) == 0 {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "graph_analysis requires paths")
	}
	return h.Graph.AffectedBy(ctx, p.Paths)
}

func (h *Handlers) handlePageRank(ctx context.Context, params json.RawMessage) (any, error) {
	return h.Graph.PageRank(ctx)
}

func (h *Handlers) handleFramework(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Type string `json:"type"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Type == "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "framework requires type")
	}
	ids, err := h.Graph.ByType(ctx, p.Type)
	if err != nil {
		return nil, err
	}
	units, err := h.Metadata.FindBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if u, ok := units[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (h *Handlers) handleRecentChanges(ctx context.Context, params json.RawMessage) (any, error) {
	if h.Manifest == nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindUnsupported, "recent_changes requires a configured manifest store")
	}
	m, err := h.Manifest.Read()
	if err != nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindStoreUnavailable, err.Error())
	}
	return m, nil
}

func (h *Handlers) handleReload(ctx context.Context, params json.RawMessage) (any, error) {
	if h.Guard == nil {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindUnsupported, "reload requires a configured pipeline guard")
	}
	allowed := h.Guard.Allow(pipeline.KindExtraction)
	if !allowed {
		return map[string]any{"allowed": false}, nil
	}
	if err := h.Guard.Record(pipeline.KindExtraction); err != nil {
		return nil, err
	}
	return map[string]any{"allowed": true}, nil
}

func (h *Handlers) handleCodebaseRetrieve(ctx context.Context, params json.RawMessage) (any, error) {
	return h.handleSearch(ctx, params)
}

func (h *Handlers) handleTraceFlow(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Identifier string `json:"identifier"`
		Depth      int    `json:"depth"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Identifier == "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "trace_flow requires identifier")
	}
	if p.Depth <= 0 {
		p.Depth = 3
	}

	visited := map[string]struct{}{p.Identifier: {}}
	frontier := []string{p.Identifier}
	edges := make([]any, 0)

	for level := 0; level < p.Depth && len(frontier) > 0; level++ {
		var next []string
		for _, id := range frontier {
			deps, err := h.Graph.DependenciesOf(ctx, id)
			if err != nil {
				return nil, err
			}
			dependents, err := h.Graph.DependentsOf(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, d := range deps {
				edges = append(edges, map[string]any{"from": id, "to": d.Target, "via": d.Via, "direction": "dependency"})
				if _, ok := visited[d.Target]; !ok {
					visited[d.Target] = struct{}{}
					next = append(next, d.Target)
				}
			}
			for _, d := range dependents {
				edges = append(edges, map[string]any{"from": d.Target, "to": id, "via": d.Via, "direction": "dependent"})
				if _, ok := visited[d.Target]; !ok {
					visited[d.Target] = struct{}{}
					next = append(next, d.Target)
				}
			}
		}
		frontier = next
	}

	return map[string]any{"root": p.Identifier, "edges": edges}, nil
}

func (h *Handlers) handlePipelineStatus(ctx context.Context, params json.RawMessage) (any, error) {
	snap := pipeline.ManifestSnapshot{}
	if h.Manifest.Exists() {
		m, err := h.Manifest.Read()
		if err == nil {
			snap = pipeline.ManifestSnapshot{
				ExtractedAt:  m.GeneratedAt,
				TotalUnits:   m.Summary.Total,
				CountsByType: nil,
				GitSHA:       m.GitSHA,
			}
		}
	}
	return h.Reporter.Report(snap), nil
}

func (h *Handlers) handleRetrievalRate(ctx context.Context, params json.RawMessage) (any, error) {
	rate, err := h.Feedback.RetrievalRate()
	if err != nil {
		return nil, err
	}
	return map[string]any{"average_score": rate}, nil
}

func (h *Handlers) handleReportGap(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Query       string `json:"query"`
		MissingUnit string `json:"missing_unit"`
		UnitType    string `json:"unit_type"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Query == "" || p.MissingUnit == "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "report_gap requires query and missing_unit")
	}
	if err := h.Feedback.ReportGap(p.Query, p.MissingUnit, p.UnitType); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func (h *Handlers) handleSuggest(ctx context.Context, params json.RawMessage) (any, error) {
	return h.Feedback.Suggest()
}

func (h *Handlers) handleExplain(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Query string `json:"query"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}
	if p.Query == "" {
		return nil, toolserver.NewHandlerError(toolserver.ErrKindValidation, "explain requires query")
	}
	result, err := h.Retriever.Retrieve(ctx, p.Query, 0, nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"classification": result.Classification,
		"strategy":       result.Strategy,
		"degraded":       result.Degraded,
		"reason":         result.DegradationReason,
		"trace":          result.Trace,
	}, nil
}
