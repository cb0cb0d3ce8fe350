package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kodexhq/kodex/domain/unit"
)

// MetadataStore is an in-memory MetadataStore, indexed by identifier.
type MetadataStore struct {
	mu    sync.RWMutex
	units map[string]unit.ExtractedUnit
}

// NewMetadataStore constructs an empty MetadataStore.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{units: make(map[string]unit.ExtractedUnit)}
}

// Store upserts u by identifier.
func (s *MetadataStore) Store(ctx context.Context, u unit.ExtractedUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[u.Identifier()] = u
	return nil
}

// Find looks up a single unit by identifier.
func (s *MetadataStore) Find(ctx context.Context, id string) (unit.ExtractedUnit, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	return u, ok, nil
}

// FindBatch looks up several identifiers at once, silently omitting any not
// found.
func (s *MetadataStore) FindBatch(ctx context.Context, ids []string) (map[string]unit.ExtractedUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]unit.ExtractedUnit, len(ids))
	for _, id := range ids {
		if u, ok := s.units[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// FindByType returns every unit of the given type, ordered by identifier.
func (s *MetadataStore) FindByType(ctx context.Context, t string) ([]unit.ExtractedUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []unit.ExtractedUnit
	for _, u := range s.units {
		if string(u.Type()) == t {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier() < out[j].Identifier() })
	return out, nil
}

// Search performs a case-insensitive substring match of query against the
// named metadata string fields (falling back to identifier and file path
// when fields is empty), returning at most limit results ordered by
// identifier.
func (s *MetadataStore) Search(ctx context.Context, query string, fields []string, limit int) ([]unit.ExtractedUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var matches []unit.ExtractedUnit
	for _, u := range s.units {
		if matchesFields(u, needle, fields) {
			matches = append(matches, u)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Identifier() < matches[j].Identifier() })
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

func matchesFields(u unit.ExtractedUnit, needle string, fields []string) bool {
	if len(fields) == 0 {
		return strings.Contains(strings.ToLower(u.Identifier()), needle) ||
			strings.Contains(strings.ToLower(u.FilePath()), needle)
	}
	for _, f := range fields {
		switch f {
		case "identifier":
			if strings.Contains(strings.ToLower(u.Identifier()), needle) {
				return true
			}
		case "file_path":
			if strings.Contains(strings.ToLower(u.FilePath()), needle) {
				return true
			}
		default:
			if strings.Contains(strings.ToLower(u.MetadataString(f)), needle) {
				return true
			}
		}
	}
	return false
}

// Delete removes the unit for id, if present.
func (s *MetadataStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.units, id)
	return nil
}

// Count returns the number of stored units.
func (s *MetadataStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units), nil
}
