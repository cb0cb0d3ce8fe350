package invalidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexhq/kodex/domain/manifest"
	"github.com/kodexhq/kodex/domain/unit"
)

func mustUnit(t *testing.T, id string, source string) unit.ExtractedUnit {
	t.Helper()
	u, err := unit.New(id, unit.TypeModel, "app", id+".rb", &source, nil, nil)
	require.NoError(t, err)
	return u
}

func TestDiffClassifiesAddedModifiedDeletedUnchanged(t *testing.T) {
	prevUser := mustUnit(t, "User", "class User; end")
	prev := PreviousHashes{
		"User":    contentHashOf(t, prevUser),
		"Comment": "stale-hash-no-longer-present",
	}

	current := []unit.ExtractedUnit{
		mustUnit(t, "User", "class User; has_many :posts; end"), // changed body -> modified
		mustUnit(t, "Post", "class Post; end"),                  // new -> added
	}

	inv := &Invalidator{}
	cm := inv.Diff(current, prev, "sha2", "sha1")

	assert.ElementsMatch(t, []string{"Post"}, cm.Changes.Added)
	assert.ElementsMatch(t, []string{"User"}, cm.Changes.Modified)
	assert.ElementsMatch(t, []string{"Comment"}, cm.Changes.Deleted)
	assert.Empty(t, cm.Changes.Unchanged)
	require.NoError(t, cm.Validate())
}

func TestDiffUnchangedWhenHashMatches(t *testing.T) {
	u := mustUnit(t, "User", "class User; end")
	prev := PreviousHashes{"User": contentHashOf(t, u)}
	inv := &Invalidator{}
	cm := inv.Diff([]unit.ExtractedUnit{u}, prev, "sha1", "sha1")
	assert.Equal(t, []string{"User"}, cm.Changes.Unchanged)
	assert.Empty(t, cm.Changes.Modified)
}

func TestDiffPromotesIncludersOfChangedConcern(t *testing.T) {
	concern := mustUnit(t, "Trackable", "module Trackable; end")
	includer := mustUnit(t, "Post", "class Post; include Trackable; end")

	prev := PreviousHashes{
		"Trackable": "old-hash",
		"Post":      contentHashOf(t, includer),
	}
	inv := &Invalidator{ConcernIncluders: map[string][]string{"Trackable": {"Post"}}}
	cm := inv.Diff([]unit.ExtractedUnit{concern, includer}, prev, "sha2", "sha1")

	assert.Contains(t, cm.Changes.Modified, "Trackable")
	assert.Contains(t, cm.Changes.Modified, "Post")
	assert.Empty(t, cm.Changes.Unchanged)
}

func contentHashOf(t *testing.T, u unit.ExtractedUnit) string {
	t.Helper()
	return manifest.ContentHash(u)
}
