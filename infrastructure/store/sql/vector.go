package sql

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/internal/database"
	"gorm.io/gorm/clause"
)

// VectorStore is a GORM-backed VectorStore over the codebase_embeddings
// table. Vectors are stored as JSON-encoded float32 slices and ranked by
// cosine similarity in Go after a full scan rather than a dedicated vector
// extension -- adequate for corpora that fit comfortably in memory during
// search.
type VectorStore struct {
	db database.Database
}

// NewVectorStore constructs a VectorStore over db.
func NewVectorStore(db database.Database) *VectorStore {
	return &VectorStore{db: db}
}

// Store upserts rec by identifier.
func (s *VectorStore) Store(ctx context.Context, rec store.VectorRecord) error {
	vecJSON, err := json.Marshal(rec.Vector)
	if err != nil {
		return store.NewVectorError("store", err)
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return store.NewVectorError("store", err)
	}
	m := embeddingModel{ID: rec.ID, Embedding: string(vecJSON), Metadata: string(metaJSON)}
	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding", "metadata", "updated_at"}),
	}).Create(&m)
	if result.Error != nil {
		return store.NewVectorError("store", result.Error)
	}
	return nil
}

// Search ranks every stored vector by cosine similarity to queryVector and
// returns the top limit hits, optionally restricted to records whose
// metadata matches every key/value pair in filters.
func (s *VectorStore) Search(ctx context.Context, queryVector []float32, limit int, filters map[string]any) ([]store.VectorHit, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []embeddingModel
	if result := s.db.Session(ctx).Find(&rows); result.Error != nil {
		return nil, store.NewVectorError("search", result.Error)
	}

	hits := make([]store.VectorHit, 0, len(rows))
	for _, row := range rows {
		var vec []float32
		if err := json.Unmarshal([]byte(row.Embedding), &vec); err != nil {
			continue
		}
		var meta map[string]any
		if row.Metadata != "" {
			_ = json.Unmarshal([]byte(row.Metadata), &meta)
		}
		if !matchesFilter(meta, filters) {
			continue
		}
		hits = append(hits, store.VectorHit{
			ID:       row.ID,
			Score:    cosineSimilarity(queryVector, vec),
			Metadata: meta,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

// Delete removes the record for id, if present.
func (s *VectorStore) Delete(ctx context.Context, id string) error {
	if result := s.db.Session(ctx).Where("id = ?", id).Delete(&embeddingModel{}); result.Error != nil {
		return store.NewVectorError("delete", result.Error)
	}
	return nil
}

// DeleteByFilter removes every record whose metadata matches every key/value
// pair in filters. Metadata is opaque JSON, so filtering happens in Go
// after a full scan rather than via a SQL predicate.
func (s *VectorStore) DeleteByFilter(ctx context.Context, filters map[string]any) error {
	var rows []embeddingModel
	if result := s.db.Session(ctx).Find(&rows); result.Error != nil {
		return store.NewVectorError("delete_by_filter", result.Error)
	}
	var ids []string
	for _, row := range rows {
		var meta map[string]any
		if row.Metadata != "" {
			_ = json.Unmarshal([]byte(row.Metadata), &meta)
		}
		if matchesFilter(meta, filters) {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if result := s.db.Session(ctx).Where("id IN ?", ids).Delete(&embeddingModel{}); result.Error != nil {
		return store.NewVectorError("delete_by_filter", result.Error)
	}
	return nil
}

// Count returns the number of stored records.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var n int64
	if result := s.db.Session(ctx).Model(&embeddingModel{}).Count(&n); result.Error != nil {
		return 0, store.NewVectorError("count", result.Error)
	}
	return int(n), nil
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

var _ store.VectorStore = (*VectorStore)(nil)
