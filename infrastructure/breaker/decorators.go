package breaker

import (
	"context"
	"errors"

	domainbreaker "github.com/kodexhq/kodex/domain/breaker"
	"github.com/kodexhq/kodex/domain/embedding"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
)

// VectorStore wraps a store.VectorStore so every call is gated by a named
// Breaker; a breaker trip surfaces as a store.Error with Kind
// ErrorKindVector, exactly like a native backend failure, so the
// degradation logic in application/retriever needs no breaker-awareness.
type VectorStore struct {
	inner store.VectorStore
	b     *domainbreaker.Breaker
}

// WrapVectorStore decorates inner with breaker b.
func WrapVectorStore(inner store.VectorStore, b *domainbreaker.Breaker) *VectorStore {
	return &VectorStore{inner: inner, b: b}
}

func (w *VectorStore) Store(ctx context.Context, rec store.VectorRecord) error {
	return guard(w.b, store.ErrorKindVector, "store", func() error { return w.inner.Store(ctx, rec) })
}

func (w *VectorStore) Search(ctx context.Context, q []float32, limit int, filters map[string]any) ([]store.VectorHit, error) {
	var hits []store.VectorHit
	err := guard(w.b, store.ErrorKindVector, "search", func() error {
		var innerErr error
		hits, innerErr = w.inner.Search(ctx, q, limit, filters)
		return innerErr
	})
	return hits, err
}

func (w *VectorStore) Delete(ctx context.Context, id string) error {
	return guard(w.b, store.ErrorKindVector, "delete", func() error { return w.inner.Delete(ctx, id) })
}

func (w *VectorStore) DeleteByFilter(ctx context.Context, filters map[string]any) error {
	return guard(w.b, store.ErrorKindVector, "delete_by_filter", func() error { return w.inner.DeleteByFilter(ctx, filters) })
}

func (w *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := guard(w.b, store.ErrorKindVector, "count", func() error {
		var innerErr error
		n, innerErr = w.inner.Count(ctx)
		return innerErr
	})
	return n, err
}

// MetadataStore wraps a store.MetadataStore with a Breaker.
type MetadataStore struct {
	inner store.MetadataStore
	b     *domainbreaker.Breaker
}

// WrapMetadataStore decorates inner with breaker b.
func WrapMetadataStore(inner store.MetadataStore, b *domainbreaker.Breaker) *MetadataStore {
	return &MetadataStore{inner: inner, b: b}
}

func (w *MetadataStore) Store(ctx context.Context, u unit.ExtractedUnit) error {
	return guard(w.b, store.ErrorKindMetadata, "store", func() error { return w.inner.Store(ctx, u) })
}

func (w *MetadataStore) Find(ctx context.Context, id string) (unit.ExtractedUnit, bool, error) {
	var u unit.ExtractedUnit
	var found bool
	err := guard(w.b, store.ErrorKindMetadata, "find", func() error {
		var innerErr error
		u, found, innerErr = w.inner.Find(ctx, id)
		return innerErr
	})
	return u, found, err
}

func (w *MetadataStore) FindBatch(ctx context.Context, ids []string) (map[string]unit.ExtractedUnit, error) {
	var out map[string]unit.ExtractedUnit
	err := guard(w.b, store.ErrorKindMetadata, "find_batch", func() error {
		var innerErr error
		out, innerErr = w.inner.FindBatch(ctx, ids)
		return innerErr
	})
	return out, err
}

func (w *MetadataStore) FindByType(ctx context.Context, t string) ([]unit.ExtractedUnit, error) {
	var out []unit.ExtractedUnit
	err := guard(w.b, store.ErrorKindMetadata, "find_by_type", func() error {
		var innerErr error
		out, innerErr = w.inner.FindByType(ctx, t)
		return innerErr
	})
	return out, err
}

func (w *MetadataStore) Search(ctx context.Context, query string, fields []string, limit int) ([]unit.ExtractedUnit, error) {
	var out []unit.ExtractedUnit
	err := guard(w.b, store.ErrorKindMetadata, "search", func() error {
		var innerErr error
		out, innerErr = w.inner.Search(ctx, query, fields, limit)
		return innerErr
	})
	return out, err
}

func (w *MetadataStore) Delete(ctx context.Context, id string) error {
	return guard(w.b, store.ErrorKindMetadata, "delete", func() error { return w.inner.Delete(ctx, id) })
}

func (w *MetadataStore) Count(ctx context.Context) (int, error) {
	var n int
	err := guard(w.b, store.ErrorKindMetadata, "count", func() error {
		var innerErr error
		n, innerErr = w.inner.Count(ctx)
		return innerErr
	})
	return n, err
}

// GraphStore wraps a store.GraphStore with a Breaker.
type GraphStore struct {
	inner store.GraphStore
	b     *domainbreaker.Breaker
}

// WrapGraphStore decorates inner with breaker b.
func WrapGraphStore(inner store.GraphStore, b *domainbreaker.Breaker) *GraphStore {
	return &GraphStore{inner: inner, b: b}
}

func (w *GraphStore) Register(ctx context.Context, u unit.ExtractedUnit) error {
	return guard(w.b, store.ErrorKindGraph, "register", func() error { return w.inner.Register(ctx, u) })
}

func (w *GraphStore) DependenciesOf(ctx context.Context, id string) ([]unit.Dependency, error) {
	var out []unit.Dependency
	err := guard(w.b, store.ErrorKindGraph, "dependencies_of", func() error {
		var innerErr error
		out, innerErr = w.inner.DependenciesOf(ctx, id)
		return innerErr
	})
	return out, err
}

func (w *GraphStore) DependentsOf(ctx context.Context, id string) ([]unit.Dependency, error) {
	var out []unit.Dependency
	err := guard(w.b, store.ErrorKindGraph, "dependents_of", func() error {
		var innerErr error
		out, innerErr = w.inner.DependentsOf(ctx, id)
		return innerErr
	})
	return out, err
}

func (w *GraphStore) ByType(ctx context.Context, t string) ([]string, error) {
	var out []string
	err := guard(w.b, store.ErrorKindGraph, "by_type", func() error {
		var innerErr error
		out, innerErr = w.inner.ByType(ctx, t)
		return innerErr
	})
	return out, err
}

func (w *GraphStore) AffectedBy(ctx context.Context, paths []string) ([]string, error) {
	var out []string
	err := guard(w.b, store.ErrorKindGraph, "affected_by", func() error {
		var innerErr error
		out, innerErr = w.inner.AffectedBy(ctx, paths)
		return innerErr
	})
	return out, err
}

func (w *GraphStore) PageRank(ctx context.Context) (map[string]float64, error) {
	var out map[string]float64
	err := guard(w.b, store.ErrorKindGraph, "pagerank", func() error {
		var innerErr error
		out, innerErr = w.inner.PageRank(ctx)
		return innerErr
	})
	return out, err
}

// Embedder wraps an embedding.Provider with a Breaker; a trip surfaces as a
// plain wrapped domainbreaker.ErrOpen, since EmbeddingProvider has no store
// error vocabulary of its own.
type Embedder struct {
	inner embedding.Provider
	b     *domainbreaker.Breaker
}

// WrapEmbedder decorates inner with breaker b.
func WrapEmbedder(inner embedding.Provider, b *domainbreaker.Breaker) *Embedder {
	return &Embedder{inner: inner, b: b}
}

func (w *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := w.b.Call(func() error {
		var innerErr error
		vec, innerErr = w.inner.Embed(ctx, text)
		return innerErr
	})
	return vec, err
}

func (w *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := w.b.Call(func() error {
		var innerErr error
		vecs, innerErr = w.inner.EmbedBatch(ctx, texts)
		return innerErr
	})
	return vecs, err
}

func (w *Embedder) Dimensions() int { return w.inner.Dimensions() }

func guard(b *domainbreaker.Breaker, kind store.ErrorKind, op string, fn func() error) error {
	err := b.Call(fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, domainbreaker.ErrOpen) {
		return &store.Error{Kind: kind, Op: op, Err: err}
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return &store.Error{Kind: kind, Op: op, Err: err}
}

var (
	_ store.VectorStore    = (*VectorStore)(nil)
	_ store.MetadataStore  = (*MetadataStore)(nil)
	_ store.GraphStore     = (*GraphStore)(nil)
	_ embedding.Provider   = (*Embedder)(nil)
)
