package breaker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbreaker "github.com/kodexhq/kodex/domain/breaker"
	"github.com/kodexhq/kodex/domain/store"
)

type failingVectorStore struct{ err error }

func (f *failingVectorStore) Store(ctx context.Context, rec store.VectorRecord) error { return f.err }
func (f *failingVectorStore) Search(ctx context.Context, q []float32, limit int, filters map[string]any) ([]store.VectorHit, error) {
	return nil, f.err
}
func (f *failingVectorStore) Delete(ctx context.Context, id string) error             { return f.err }
func (f *failingVectorStore) DeleteByFilter(ctx context.Context, filters map[string]any) error {
	return f.err
}
func (f *failingVectorStore) Count(ctx context.Context) (int, error) { return 0, f.err }

func TestWrapVectorStoreSurfacesStoreErrorOnBreakerTrip(t *testing.T) {
	reg := NewRegistry(domainbreaker.Config{Threshold: 1, ResetTimeout: 0})
	inner := &failingVectorStore{err: errors.New("boom")}
	wrapped := WrapVectorStore(inner, reg.For("vector"))

	_, err := wrapped.Count(context.Background())
	require.Error(t, err)

	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.ErrorKindVector, storeErr.Kind)
}

func TestRegistryReturnsSameBreakerForSameName(t *testing.T) {
	reg := NewRegistry(domainbreaker.DefaultConfig())
	assert.Same(t, reg.For("vector"), reg.For("vector"))
}
