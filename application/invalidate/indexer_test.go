package invalidate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexhq/kodex/domain/manifest"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
)

type fakeVectorStore struct {
	upserted map[string]store.VectorRecord
	deleted  []string
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{upserted: map[string]store.VectorRecord{}}
}

func (f *fakeVectorStore) Store(ctx context.Context, rec store.VectorRecord) error {
	f.upserted[rec.ID] = rec
	return nil
}
func (f *fakeVectorStore) Search(ctx context.Context, q []float32, limit int, filters map[string]any) ([]store.VectorHit, error) {
	return nil, nil
}
func (f *fakeVectorStore) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.upserted, id)
	return nil
}
func (f *fakeVectorStore) DeleteByFilter(ctx context.Context, filters map[string]any) error { return nil }
func (f *fakeVectorStore) Count(ctx context.Context) (int, error)                           { return len(f.upserted), nil }

type fakeMetadataStore struct {
	units map[string]unit.ExtractedUnit
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{units: map[string]unit.ExtractedUnit{}}
}

func (f *fakeMetadataStore) Store(ctx context.Context, u unit.ExtractedUnit) error {
	f.units[u.Identifier()] = u
	return nil
}
func (f *fakeMetadataStore) Find(ctx context.Context, id string) (unit.ExtractedUnit, bool, error) {
	u, ok := f.units[id]
	return u, ok, nil
}
func (f *fakeMetadataStore) FindBatch(ctx context.Context, ids []string) (map[string]unit.ExtractedUnit, error) {
	return nil, nil
}
func (f *fakeMetadataStore) FindByType(ctx context.Context, t string) ([]unit.ExtractedUnit, error) {
	return nil, nil
}
func (f *fakeMetadataStore) Search(ctx context.Context, q string, fields []string, limit int) ([]unit.ExtractedUnit, error) {
	return nil, nil
}
func (f *fakeMetadataStore) Delete(ctx context.Context, id string) error {
	delete(f.units, id)
	return nil
}
func (f *fakeMetadataStore) Count(ctx context.Context) (int, error) { return len(f.units), nil }

type fakeEmbedder struct{ dims int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dims), nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int { return f.dims }

func TestReindexEmbedsAddedAndModifiedDeletesGone(t *testing.T) {
	vec := newFakeVectorStore()
	meta := newFakeMetadataStore()
	embedder := &fakeEmbedder{dims: 4}
	idx := New(vec, meta, embedder)

	src := "class User; end"
	u := mustUnit(t, "User", src)
	meta.units["Stale"] = mustUnit(t, "Stale", "class Stale; end")
	vec.upserted["Stale"] = store.VectorRecord{ID: "Stale"}

	changes := manifest.Changes{
		Added:   []string{"User"},
		Deleted: []string{"Stale"},
	}
	result, err := idx.Reindex(context.Background(), changes, map[string]unit.ExtractedUnit{"User": u})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Embedded)
	assert.Equal(t, 1, result.Deleted)
	assert.Contains(t, vec.upserted, "User")
	assert.NotContains(t, vec.upserted, "Stale")
	assert.NotContains(t, meta.units, "Stale")
}

func TestReindexSkipsMissingUnits(t *testing.T) {
	idx := New(newFakeVectorStore(), newFakeMetadataStore(), &fakeEmbedder{dims: 4})
	changes := manifest.Changes{Added: []string{"Unknown"}}
	result, err := idx.Reindex(context.Background(), changes, map[string]unit.ExtractedUnit{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Embedded)
}

func TestReindexDeletesModifiedVectorBeforeReembedding(t *testing.T) {
	vec := newFakeVectorStore()
	vec.upserted["User"] = store.VectorRecord{ID: "User", Vector: []float32{9, 9, 9}}
	meta := newFakeMetadataStore()
	idx := New(vec, meta, &fakeEmbedder{dims: 4})

	u := mustUnit(t, "User", "class User; has_many :posts; end")
	changes := manifest.Changes{Modified: []string{"User"}}
	result, err := idx.Reindex(context.Background(), changes, map[string]unit.ExtractedUnit{"User": u})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Embedded)
	require.Contains(t, vec.upserted, "User")
	assert.NotEqual(t, []float32{9, 9, 9}, vec.upserted["User"].Vector)
}
