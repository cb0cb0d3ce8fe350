// Package retriever implements the Retriever façade: orchestrates
// Classifier -> SearchExecutor -> Ranker -> ContextAssembler and emits a
// RetrievalResult plus diagnostic trace.
package retriever

import (
	"context"

	"github.com/kodexhq/kodex/application/assemble"
	"github.com/kodexhq/kodex/application/classify"
	"github.com/kodexhq/kodex/application/rank"
	"github.com/kodexhq/kodex/application/searchexec"
	"github.com/kodexhq/kodex/domain/retrieval"
	"github.com/kodexhq/kodex/domain/search"
	"github.com/kodexhq/kodex/domain/store"
)

// StructuralTextFunc supplies the caller-provided overview text derived
// from the manifest (unit counts by type).
type StructuralTextFunc func(ctx context.Context) string

// Formatter renders an AssembledContext to bytes for a target presentation.
type Formatter func(retrieval.AssembledContext) ([]byte, error)

// Retriever is read-only and safe for concurrent callers; it shares store
// handles with no per-request mutable state.
type Retriever struct {
	Executor       *searchexec.Executor
	Ranker         *rank.Ranker
	Assembler      *assemble.Assembler
	StructuralText StructuralTextFunc
}

// New constructs a Retriever over its collaborators.
func New(executor *searchexec.Executor, ranker *rank.Ranker, assembler *assemble.Assembler, structuralText StructuralTextFunc) *Retriever {
	return &Retriever{Executor: executor, Ranker: ranker, Assembler: assembler, StructuralText: structuralText}
}

// Retrieve runs the full pipeline for query under budget (0 uses the
// assembler's default). On a store failure at a given tier, it degrades to
// a lower tier strategy and marks the trace degraded rather than failing
// the whole call.
func (r *Retriever) Retrieve(ctx context.Context, query string, budget int, formatter Formatter) (retrieval.RetrievalResult, error) {
	trace := retrieval.NewTrace()
	defer trace.Finish()

	classification := classify.Classify(query)
	trace.Record("classify", "ok", nil, map[string]any{"intent": classification.Intent, "scope": classification.Scope})

	execResult, degradationReason := r.executeWithDegradation(ctx, query, classification, trace)

	ranked, err := r.Ranker.Rank(ctx, classification, execResult.Candidates)
	if err != nil {
		trace.Record("rank", "error", nil, map[string]any{"error": err.Error()})
		ranked = nil
	} else {
		trace.Record("rank", "ok", map[string]int{"candidates": len(ranked)}, nil)
	}

	var structuralText string
	if r.StructuralText != nil {
		structuralText = r.StructuralText(ctx)
	}

	assembled, err := r.Assembler.Assemble(ctx, ranked, classification, structuralText, budget)
	if err != nil {
		trace.Record("assemble", "error", nil, map[string]any{"error": err.Error()})
		return retrieval.RetrievalResult{}, err
	}
	trace.Record("assemble", "ok", map[string]int{"tokens_used": assembled.TokensUsed}, nil)

	if formatter != nil {
		rendered, err := formatter(assembled)
		if err == nil {
			assembled.Text = string(rendered)
		}
	}

	if degradationReason != "" {
		trace.Degrade(degradationReason)
	}

	return retrieval.RetrievalResult{
		Context:           assembled,
		TokensUsed:        assembled.TokensUsed,
		Budget:            assembled.Budget,
		Sources:           assembled.Sources,
		Strategy:          execResult.Strategy,
		Classification:    classification,
		Trace:             trace,
		Degraded:          degradationReason != "",
		DegradationReason: degradationReason,
	}, nil
}

// executeWithDegradation tries the classification's natural strategy, and
// on a store-surfaced error drops through the degradation tiers:
// VectorStore error -> keyword+graph; MetadataStore error ->
// graph only; GraphStore error -> direct MetadataStore.find of
// keyword-derived ids.
func (r *Retriever) executeWithDegradation(ctx context.Context, query string, classification search.Classification, trace *retrieval.RetrievalTrace) (searchexec.ExecutionResult, string) {
	result, err := r.Executor.Execute(ctx, query, classification, 0)
	if err == nil {
		trace.Record("search", "ok", map[string]int{"candidates": len(result.Candidates)}, map[string]any{"strategy": result.Strategy})
		return result, ""
	}

	var storeErr *store.Error
	if se, ok := err.(*store.Error); ok {
		storeErr = se
	}

	reason := "search strategy failed: " + err.Error()
	trace.Record("search", "degraded", nil, map[string]any{"error": err.Error()})

	var tier2, tier3, tier4 searchexec.ExecutionResult
	var tierErr error

	if storeErr != nil {
		switch storeErr.Kind {
		case store.ErrorKindVector:
			tier2, tierErr = r.Executor.Execute(ctx, query, forceIntent(classification, "keyword"), 0)
			if tierErr == nil {
				if graphResult, graphErr := r.Executor.Execute(ctx, query, forceIntent(classification, "trace"), 0); graphErr == nil {
					tier2.Candidates = append(tier2.Candidates, graphResult.Candidates...)
				}
			}
		case store.ErrorKindMetadata:
			tier3, tierErr = r.Executor.Execute(ctx, query, forceIntent(classification, "trace"), 0)
		case store.ErrorKindGraph:
			tier4, tierErr = r.Executor.Execute(ctx, query, forceIntent(classification, "locate_pinpoint"), 0)
		}
	}

	for _, candidate := range []searchexec.ExecutionResult{tier2, tier3, tier4} {
		if tierErr == nil && len(candidate.Strategy) > 0 {
			return candidate, reason
		}
	}

	return searchexec.ExecutionResult{Strategy: "none"}, reason
}

func forceIntent(c search.Classification, tier string) search.Classification {
	switch tier {
	case "keyword":
		c.Intent = search.IntentReference
		c.Scope = search.ScopeFocused
	case "trace":
		c.Intent = search.IntentTrace
	case "locate_pinpoint":
		c.Intent = search.IntentLocate
		c.Scope = search.ScopePinpoint
	}
	return c
}
