package assemble

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexhq/kodex/domain/search"
	"github.com/kodexhq/kodex/domain/unit"
)

type fakeStore struct {
	units map[string]unit.ExtractedUnit
}

func (f *fakeStore) Store(ctx context.Context, u unit.ExtractedUnit) error { return nil }
func (f *fakeStore) Find(ctx context.Context, id string) (unit.ExtractedUnit, bool, error) {
	u, ok := f.units[id]
	return u, ok, nil
}
func (f *fakeStore) FindBatch(ctx context.Context, ids []string) (map[string]unit.ExtractedUnit, error) {
	out := make(map[string]unit.ExtractedUnit)
	for _, id := range ids {
		if u, ok := f.units[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}
func (f *fakeStore) FindByType(ctx context.Context, t string) ([]unit.ExtractedUnit, error) { return nil, nil }
func (f *fakeStore) Search(ctx context.Context, query string, fields []string, limit int) ([]unit.ExtractedUnit, error) {
	return nil, nil
}
func (f *fakeStore) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeStore) Count(ctx context.Context) (int, error)      { return len(f.units), nil }

func TestAssembleRespectsBudgetInvariant(t *testing.T) {
	src := strings.Repeat("a", 40000)
	u, err := unit.New("User", unit.TypeModel, "app", "user.rb", &src, nil, nil)
	require.NoError(t, err)
	store := &fakeStore{units: map[string]unit.ExtractedUnit{"User": u}}
	a := New(store)

	result, err := a.Assemble(context.Background(), []search.Candidate{{Identifier: "User", Score: 1.0, Source: search.SourceVector}}, search.Classification{}, "", 1000)
	require.NoError(t, err)

	assert.LessOrEqual(t, result.TokensUsed, result.Budget+len(result.Sources)*HeaderAllowance)
}

func TestAssembleTruncatesOversizedUnit(t *testing.T) {
	src := strings.Repeat("x", 40000)
	u, err := unit.New("Big", unit.TypeModel, "app", "big.rb", &src, nil, nil)
	require.NoError(t, err)
	store := &fakeStore{units: map[string]unit.ExtractedUnit{"Big": u}}
	a := New(store)

	result, err := a.Assemble(context.Background(), []search.Candidate{{Identifier: "Big", Score: 1.0, Source: search.SourceVector}}, search.Classification{}, "", 1000)
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.True(t, result.Sources[0].Truncated)
	assert.Contains(t, result.Text, "… [truncated]")
}

func TestAssembleEmptyCandidatesYieldsZeroTokens(t *testing.T) {
	store := &fakeStore{units: map[string]unit.ExtractedUnit{}}
	a := New(store)
	result, err := a.Assemble(context.Background(), nil, search.Classification{}, "", 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TokensUsed)
}

func TestAssemblePrimarySectionExcludesGraphExpansion(t *testing.T) {
	src := "class Comment; end"
	u, err := unit.New("Comment", unit.TypeModel, "app", "comment.rb", &src, nil, nil)
	require.NoError(t, err)
	store := &fakeStore{units: map[string]unit.ExtractedUnit{"Comment": u}}
	a := New(store)

	result, err := a.Assemble(context.Background(), []search.Candidate{
		{Identifier: "Comment", Score: 0.75, Source: search.SourceGraphExpansion},
	}, search.Classification{}, "", 1000)
	require.NoError(t, err)

	for _, sec := range result.Sections {
		assert.NotEqual(t, "primary", string(sec))
	}
}

func TestEstimateTokensCeilBytesOverFour(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
