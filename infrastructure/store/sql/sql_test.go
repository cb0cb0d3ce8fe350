package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
	"github.com/kodexhq/kodex/internal/database"
)

func newTestDB(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewDatabase(ctx, "sqlite:///"+t.TempDir()+"/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return db
}

func TestMetadataStoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ms := NewMetadataStore(db)
	ctx := context.Background()

	src := "class User; end"
	u, err := unit.New("User", unit.TypeModel, "app", "app/models/user.rb", &src, map[string]any{"importance": "high"}, nil)
	require.NoError(t, err)
	require.NoError(t, ms.Store(ctx, u))

	found, ok, err := ms.Find(ctx, "User")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "User", found.Identifier())
	assert.Equal(t, unit.TypeModel, found.Type())
	require.NotNil(t, found.SourceCode())
	assert.Equal(t, src, *found.SourceCode())
	assert.Equal(t, "high", found.MetadataString("importance"))

	byType, err := ms.FindByType(ctx, "model")
	require.NoError(t, err)
	require.Len(t, byType, 1)

	matches, err := ms.Search(ctx, "user", nil, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	count, err := ms.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, ms.Delete(ctx, "User"))
	_, ok, err = ms.Find(ctx, "User")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMetadataStoreStoreIsUpsert(t *testing.T) {
	db := newTestDB(t)
	ms := NewMetadataStore(db)
	ctx := context.Background()

	u1, err := unit.New("User", unit.TypeModel, "app", "app/models/user.rb", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, ms.Store(ctx, u1))

	u2, err := unit.New("User", unit.TypeModel, "app", "app/models/user.rb", nil, map[string]any{"importance": "low"}, nil)
	require.NoError(t, err)
	require.NoError(t, ms.Store(ctx, u2))

	count, err := ms.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, _, err := ms.Find(ctx, "User")
	require.NoError(t, err)
	assert.Equal(t, "low", found.MetadataString("importance"))
}

func TestVectorStoreSearchRanksByCosineSimilarity(t *testing.T) {
	db := newTestDB(t)
	vs := NewVectorStore(db)
	ctx := context.Background()

	require.NoError(t, vs.Store(ctx, store.VectorRecord{ID: "a", Vector: []float32{1, 0}}))
	require.NoError(t, vs.Store(ctx, store.VectorRecord{ID: "b", Vector: []float32{0, 1}}))

	hits, err := vs.Search(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestVectorStoreDeleteByFilter(t *testing.T) {
	db := newTestDB(t)
	vs := NewVectorStore(db)
	ctx := context.Background()

	require.NoError(t, vs.Store(ctx, store.VectorRecord{ID: "a", Vector: []float32{1}, Metadata: map[string]any{"namespace": "app"}}))
	require.NoError(t, vs.Store(ctx, store.VectorRecord{ID: "b", Vector: []float32{1}, Metadata: map[string]any{"namespace": "lib"}}))

	require.NoError(t, vs.DeleteByFilter(ctx, map[string]any{"namespace": "app"}))
	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGraphStoreDependenciesAndPageRank(t *testing.T) {
	db := newTestDB(t)
	gs := NewGraphStore(db)
	ms := NewMetadataStore(db)
	ctx := context.Background()

	post, err := unit.New("Post", unit.TypeModel, "app", "app/models/post.rb", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, ms.Store(ctx, post))
	require.NoError(t, gs.Register(ctx, post))

	comment, err := unit.New("Comment", unit.TypeModel, "app", "app/models/comment.rb", nil, nil, []unit.Dependency{
		{Target: "Post", Type: "belongs_to", Via: unit.ViaAssociation},
	})
	require.NoError(t, err)
	require.NoError(t, ms.Store(ctx, comment))
	require.NoError(t, gs.Register(ctx, comment))

	deps, err := gs.DependenciesOf(ctx, "Comment")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "Post", deps[0].Target)

	dependents, err := gs.DependentsOf(ctx, "Post")
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "Comment", dependents[0].Target)

	affected, err := gs.AffectedBy(ctx, []string{"app/models/post.rb"})
	require.NoError(t, err)
	assert.Contains(t, affected, "Comment")

	ranks, err := gs.PageRank(ctx)
	require.NoError(t, err)
	assert.Contains(t, ranks, "Post")
	assert.Contains(t, ranks, "Comment")
}
