// Package searchexec implements the SearchExecutor: dispatches a
// Classification to one of five search strategies over the pluggable store
// interfaces.
package searchexec

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kodexhq/kodex/domain/embedding"
	"github.com/kodexhq/kodex/domain/search"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
)

// DefaultLimit is the strategy result cap when the caller does not override
// it.
const DefaultLimit = 20

// ExecutionResult is the SearchExecutor's return value.
type ExecutionResult struct {
	Candidates []search.Candidate
	Strategy   string
	Query      string
}

// Executor dispatches a Classification to a search strategy.
type Executor struct {
	Vector    store.VectorStore
	Metadata  store.MetadataStore
	Graph     store.GraphStore
	Embedder  embedding.Provider
}

// New constructs an Executor over the given store/provider handles. Any may
// be nil; strategies that need a nil collaborator return an error rather
// than panicking.
func New(vector store.VectorStore, metadata store.MetadataStore, graph store.GraphStore, embedder embedding.Provider) *Executor {
	return &Executor{Vector: vector, Metadata: metadata, Graph: graph, Embedder: embedder}
}

// Execute selects a strategy from classification and runs it.
func (e *Executor) Execute(ctx context.Context, query string, classification search.Classification, limit int) (ExecutionResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	switch {
	case classification.Intent == search.IntentLocate && classification.Scope == search.ScopePinpoint:
		return e.direct(ctx, query, classification, limit)
	case classification.Scope == search.ScopeComprehensive || classification.Scope == search.ScopeExploratory:
		return e.hybrid(ctx, query, classification)
	case classification.Intent == search.IntentTrace:
		return e.graphStrategy(ctx, query, classification)
	case isKeywordIntent(classification.Intent):
		return e.keyword(ctx, query, classification, limit)
	case isVectorIntent(classification.Intent):
		return e.vector(ctx, query, classification, limit)
	default:
		return e.keyword(ctx, query, classification, limit)
	}
}

func isKeywordIntent(i search.Intent) bool {
	switch i {
	case search.IntentLocate, search.IntentReference, search.IntentFramework:
		return true
	default:
		return false
	}
}

func isVectorIntent(i search.Intent) bool {
	switch i {
	case search.IntentUnderstand, search.IntentDebug, search.IntentImplement, search.IntentCompare:
		return true
	default:
		return false
	}
}

func guessIdentifier(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	return strings.Title(keywords[0])
}

func (e *Executor) direct(ctx context.Context, query string, c search.Classification, limit int) (ExecutionResult, error) {
	if e.Metadata == nil {
		return ExecutionResult{}, fmt.Errorf("searchexec: direct strategy requires a MetadataStore")
	}
	id := guessIdentifier(c.Keywords)
	if id != "" {
		if u, ok, err := e.Metadata.Find(ctx, id); err == nil && ok {
			return ExecutionResult{
				Candidates: []search.Candidate{{Identifier: u.Identifier(), Score: 1.0, Source: search.SourceDirect}},
				Strategy:   "direct",
				Query:      query,
			}, nil
		}
	}
	return e.keyword(ctx, query, c, limit)
}

func (e *Executor) keyword(ctx context.Context, query string, c search.Classification, limit int) (ExecutionResult, error) {
	if e.Metadata == nil {
		return ExecutionResult{}, fmt.Errorf("searchexec: keyword strategy requires a MetadataStore")
	}
	units, err := e.Metadata.Search(ctx, query, []string{"identifier", "file_path", "source_code", "metadata"}, limit)
	if err != nil {
		return ExecutionResult{}, store.NewMetadataError("search", err)
	}
	candidates := make([]search.Candidate, 0, len(units))
	for i, u := range units {
		if c.TargetType != "" && !targetTypeMatches(u, c.TargetType) {
			continue
		}
		candidates = append(candidates, search.Candidate{
			Identifier: u.Identifier(),
			Score:      scoreByRank(i, len(units)),
			Source:     search.SourceKeyword,
		})
	}
	return ExecutionResult{Candidates: candidates, Strategy: "keyword", Query: query}, nil
}

func (e *Executor) vector(ctx context.Context, query string, c search.Classification, limit int) (ExecutionResult, error) {
	if e.Vector == nil || e.Embedder == nil {
		return ExecutionResult{}, fmt.Errorf("searchexec: vector strategy requires a VectorStore and EmbeddingProvider")
	}
	vec, err := e.Embedder.Embed(ctx, query)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("searchexec: embed query: %w", err)
	}
	var filters map[string]any
	if c.TargetType != "" {
		filters = map[string]any{"type": c.TargetType}
	}
	hits, err := e.Vector.Search(ctx, vec, limit, filters)
	if err != nil {
		return ExecutionResult{}, store.NewVectorError("search", err)
	}
	candidates := make([]search.Candidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, search.Candidate{Identifier: h.ID, Score: h.Score, Source: search.SourceVector, Metadata: h.Metadata})
	}
	return ExecutionResult{Candidates: candidates, Strategy: "vector", Query: query}, nil
}

func (e *Executor) graphStrategy(ctx context.Context, query string, c search.Classification) (ExecutionResult, error) {
	if e.Graph == nil || e.Metadata == nil {
		return ExecutionResult{}, fmt.Errorf("searchexec: graph strategy requires a GraphStore and MetadataStore")
	}
	seeds, err := e.resolveSeeds(ctx, c)
	if err != nil {
		return ExecutionResult{}, err
	}
	candidates := make([]search.Candidate, 0, len(seeds)*2)
	seen := make(map[string]struct{})
	for _, id := range seeds {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		candidates = append(candidates, search.Candidate{Identifier: id, Score: 1.0, Source: search.SourceGraph})

		deps, err := e.Graph.DependenciesOf(ctx, id)
		if err != nil {
			return ExecutionResult{}, store.NewGraphError("dependencies_of", err)
		}
		dependents, err := e.Graph.DependentsOf(ctx, id)
		if err != nil {
			return ExecutionResult{}, store.NewGraphError("dependents_of", err)
		}
		for _, d := range append(deps, dependents...) {
			if _, ok := seen[d.Target]; ok {
				continue
			}
			seen[d.Target] = struct{}{}
			candidates = append(candidates, search.Candidate{Identifier: d.Target, Score: 0.75, Source: search.SourceGraphExpansion})
		}
	}
	return ExecutionResult{Candidates: candidates, Strategy: "graph", Query: query}, nil
}

func (e *Executor) resolveSeeds(ctx context.Context, c search.Classification) ([]string, error) {
	id := guessIdentifier(c.Keywords)
	if id != "" {
		if u, ok, err := e.Metadata.Find(ctx, id); err == nil && ok {
			return []string{u.Identifier()}, nil
		}
	}
	units, err := e.Metadata.Search(ctx, strings.Join(c.Keywords, " "), []string{"identifier"}, 5)
	if err != nil {
		return nil, store.NewMetadataError("search", err)
	}
	ids := make([]string, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.Identifier())
	}
	return ids, nil
}

// hybrid unions vector (limit 15), keyword (limit 10), and graph-expansion
// seeded from the top-3 vector hits. The vector and keyword sub-searches run
// concurrently; graph expansion runs after both finish.
func (e *Executor) hybrid(ctx context.Context, query string, c search.Classification) (ExecutionResult, error) {
	var (
		vectorResult  ExecutionResult
		keywordResult ExecutionResult
		graphResult   ExecutionResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if e.Vector == nil || e.Embedder == nil {
			return nil
		}
		res, err := e.vector(gctx, query, c, 15)
		if err != nil {
			return nil // degrade silently within hybrid; ranker sees fewer candidates
		}
		vectorResult = res
		return nil
	})
	g.Go(func() error {
		if e.Metadata == nil {
			return nil
		}
		res, err := e.keyword(gctx, query, c, 10)
		if err != nil {
			return nil
		}
		keywordResult = res
		return nil
	})
	_ = g.Wait()

	if e.Graph != nil && e.Metadata != nil {
		top3 := vectorResult.Candidates
		if len(top3) > 3 {
			top3 = top3[:3]
		}
		seeds := make([]string, 0, len(top3))
		for _, cand := range top3 {
			seeds = append(seeds, cand.Identifier)
		}
		res, err := e.expandFromSeeds(ctx, query, seeds)
		if err == nil {
			graphResult = res
		}
	}

	all := make([]search.Candidate, 0, len(vectorResult.Candidates)+len(keywordResult.Candidates)+len(graphResult.Candidates))
	all = append(all, vectorResult.Candidates...)
	all = append(all, keywordResult.Candidates...)
	all = append(all, graphResult.Candidates...)

	return ExecutionResult{Candidates: all, Strategy: "hybrid", Query: query}, nil
}

func (e *Executor) expandFromSeeds(ctx context.Context, query string, seeds []string) (ExecutionResult, error) {
	candidates := make([]search.Candidate, 0, len(seeds)*2)
	seen := make(map[string]struct{})
	for _, id := range seeds {
		deps, err := e.Graph.DependenciesOf(ctx, id)
		if err != nil {
			return ExecutionResult{}, store.NewGraphError("dependencies_of", err)
		}
		dependents, err := e.Graph.DependentsOf(ctx, id)
		if err != nil {
			return ExecutionResult{}, store.NewGraphError("dependents_of", err)
		}
		for _, d := range append(deps, dependents...) {
			if _, ok := seen[d.Target]; ok {
				continue
			}
			seen[d.Target] = struct{}{}
			candidates = append(candidates, search.Candidate{Identifier: d.Target, Score: 0.75, Source: search.SourceGraphExpansion})
		}
	}
	return ExecutionResult{Candidates: candidates, Strategy: "graph_expansion", Query: query}, nil
}

func targetTypeMatches(u unit.ExtractedUnit, targetType string) bool {
	return strings.EqualFold(string(u.Type()), targetType) || strings.Contains(string(u.Type()), targetType)
}

// scoreByRank derives a [0,1] score from a 0-based position in a ranked
// list, used where the backing store only returns order, not a score.
func scoreByRank(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total)
}
