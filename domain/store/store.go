package store

import (
	"context"
	"fmt"

	"github.com/kodexhq/kodex/domain/unit"
)

// VectorRecord is a single id/vector/metadata row as stored by a VectorStore.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// VectorHit is a VectorStore.Search result, ranked by cosine similarity.
type VectorHit struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// VectorStore persists embeddings and serves similarity search. Writes are
// idempotent by id (upsert); at most one vector per id unless the caller
// encodes chunks as distinct ids.
type VectorStore interface {
	Store(ctx context.Context, rec VectorRecord) error
	Search(ctx context.Context, queryVector []float32, limit int, filters map[string]any) ([]VectorHit, error)
	Delete(ctx context.Context, id string) error
	DeleteByFilter(ctx context.Context, filters map[string]any) error
	Count(ctx context.Context) (int, error)
}

// MetadataStore exclusively owns ExtractedUnit records.
type MetadataStore interface {
	Store(ctx context.Context, u unit.ExtractedUnit) error
	Find(ctx context.Context, id string) (unit.ExtractedUnit, bool, error)
	FindBatch(ctx context.Context, ids []string) (map[string]unit.ExtractedUnit, error)
	FindByType(ctx context.Context, t string) ([]unit.ExtractedUnit, error)
	Search(ctx context.Context, query string, fields []string, limit int) ([]unit.ExtractedUnit, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// GraphStore owns dependency/dependent edges.
type GraphStore interface {
	Register(ctx context.Context, u unit.ExtractedUnit) error
	DependenciesOf(ctx context.Context, id string) ([]unit.Dependency, error)
	DependentsOf(ctx context.Context, id string) ([]unit.Dependency, error)
	ByType(ctx context.Context, t string) ([]string, error)
	AffectedBy(ctx context.Context, paths []string) ([]string, error)
	PageRank(ctx context.Context) (map[string]float64, error)
}

// ErrorKind tags a StoreError by the surface that raised it.
type ErrorKind string

// Closed set of store error kinds.
const (
	ErrorKindVector   ErrorKind = "vector_store_error"
	ErrorKindMetadata ErrorKind = "metadata_store_error"
	ErrorKindGraph    ErrorKind = "graph_store_error"
)

// Error is the typed error every store surface raises, satisfying
// errors.As so callers can branch on Kind without string matching.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewVectorError wraps err as a VectorStoreError.
func NewVectorError(op string, err error) error { return &Error{Kind: ErrorKindVector, Op: op, Err: err} }

// NewMetadataError wraps err as a MetadataStoreError.
func NewMetadataError(op string, err error) error {
	return &Error{Kind: ErrorKindMetadata, Op: op, Err: err}
}

// NewGraphError wraps err as a GraphStoreError.
func NewGraphError(op string, err error) error { return &Error{Kind: ErrorKindGraph, Op: op, Err: err} }
