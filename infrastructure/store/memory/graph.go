package memory

import (
	"context"
	"sync"

	"github.com/kodexhq/kodex/domain/manifest"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
)

// GraphStore is a mutex-protected GraphStore backed by a
// domain/manifest.DependencyGraph, plus a path index so AffectedBy can seed
// its traversal from changed file paths.
type GraphStore struct {
	mu     sync.RWMutex
	graph  *manifest.DependencyGraph
	pathOf map[string]string
}

// NewGraphStore constructs an empty GraphStore.
func NewGraphStore() *GraphStore {
	return &GraphStore{graph: manifest.NewDependencyGraph(), pathOf: make(map[string]string)}
}

// Register indexes u's forward/reverse edges and file path.
func (s *GraphStore) Register(ctx context.Context, u unit.ExtractedUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.Register(u)
	s.pathOf[u.Identifier()] = u.FilePath()
	return nil
}

// DependenciesOf returns id's forward edges.
func (s *GraphStore) DependenciesOf(ctx context.Context, id string) ([]unit.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.DependenciesOf(id), nil
}

// DependentsOf returns id's reverse edges.
func (s *GraphStore) DependentsOf(ctx context.Context, id string) ([]unit.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.DependentsOf(id), nil
}

// ByType returns identifiers registered under type tag t.
func (s *GraphStore) ByType(ctx context.Context, t string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.ByType(t), nil
}

// AffectedBy returns every identifier whose file path is in paths, plus
// everything transitively dependent on them.
func (s *GraphStore) AffectedBy(ctx context.Context, paths []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.AffectedBy(paths, s.pathOf), nil
}

// PageRank computes PageRank over the whole graph with the default damping
// factor (0.85), iteration cap (100), and convergence epsilon
// (1e-6).
func (s *GraphStore) PageRank(ctx context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.PageRank(0.85, 100, 1e-6), nil
}

var _ store.GraphStore = (*GraphStore)(nil)
