// Package memory provides map+mutex VectorStore/MetadataStore/GraphStore
// backends: reference implementations used by tests and by small
// deployments that don't need a SQL backend.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/kodexhq/kodex/domain/store"
)

// VectorStore is an in-memory VectorStore, indexed by identifier and
// scanned linearly for similarity search -- adequate for the reference
// deployment and for tests, not for production-scale corpora.
type VectorStore struct {
	mu      sync.RWMutex
	records map[string]store.VectorRecord
}

// NewVectorStore constructs an empty VectorStore.
func NewVectorStore() *VectorStore {
	return &VectorStore{records: make(map[string]store.VectorRecord)}
}

// Store upserts rec by identifier.
func (s *VectorStore) Store(ctx context.Context, rec store.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rec
	cp.Vector = append([]float32(nil), rec.Vector...)
	s.records[rec.ID] = cp
	return nil
}

// Search ranks every stored vector by cosine similarity to queryVector and
// returns the top limit hits, optionally restricted to records whose
// metadata matches every key/value pair in filters.
func (s *VectorStore) Search(ctx context.Context, queryVector []float32, limit int, filters map[string]any) ([]store.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	hits := make([]store.VectorHit, 0, len(s.records))
	for _, rec := range s.records {
		if !matchesFilter(rec.Metadata, filters) {
			continue
		}
		hits = append(hits, store.VectorHit{
			ID:       rec.ID,
			Score:    cosineSimilarity(queryVector, rec.Vector),
			Metadata: rec.Metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if limit > len(hits) {
		limit = len(hits)
	}
	return hits[:limit], nil
}

// Delete removes the record for id, if present.
func (s *VectorStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// DeleteByFilter removes every record whose metadata matches every key/value
// pair in filters.
func (s *VectorStore) DeleteByFilter(ctx context.Context, filters map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.records {
		if matchesFilter(rec.Metadata, filters) {
			delete(s.records, id)
		}
	}
	return nil
}

// Count returns the number of stored records.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func matchesFilter(metadata map[string]any, filters map[string]any) bool {
	for k, v := range filters {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// cosineSimilarity computes the cosine similarity of two equal-length
// vectors, returning 0 for a length mismatch or a zero-magnitude vector.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
