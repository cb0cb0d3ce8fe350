package manifest

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexhq/kodex/domain/unit"
)

func TestChangeManifestValidatePartitionsDisjoint(t *testing.T) {
	m := NewChangeManifest("abc123", "def456", Changes{
		Added:     []string{"A"},
		Modified:  []string{"B"},
		Deleted:   []string{"C"},
		Unchanged: []string{"D"},
	})
	require.NoError(t, m.Validate())
	assert.Equal(t, 4, m.Summary.Total)
}

func TestChangeManifestValidateRejectsOverlap(t *testing.T) {
	m := NewChangeManifest("abc", "", Changes{
		Added:    []string{"A"},
		Modified: []string{"A"},
	})
	assert.Error(t, m.Validate())
}

func TestWriteAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "_change_manifest.json")
	m := NewChangeManifest("sha1", "sha0", Changes{Added: []string{"X"}})

	require.NoError(t, WriteAtomic(path, m))

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, m.GitSHA, loaded.GitSHA)
	assert.Equal(t, m.Summary, loaded.Summary)
	assert.ElementsMatch(t, m.Changes.Added, loaded.Changes.Added)
}

func TestContentHashChangesWithSource(t *testing.T) {
	src1 := "def foo; end"
	src2 := "def bar; end"
	u1, err := unit.New("Foo#foo", unit.TypeRubyMethod, "", "foo.rb", &src1, nil, nil)
	require.NoError(t, err)
	u2, err := unit.New("Foo#foo", unit.TypeRubyMethod, "", "foo.rb", &src2, nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, ContentHash(u1), ContentHash(u2))
}

func TestContentHashStableForEqualUnits(t *testing.T) {
	src := "class User; end"
	deps := []unit.Dependency{{Target: "Post", Type: "has_many", Via: unit.ViaAssociation}}
	u1, err := unit.New("User", unit.TypeModel, "", "user.rb", &src, map[string]any{"a": 1, "b": 2}, deps)
	require.NoError(t, err)
	u2, err := unit.New("User", unit.TypeModel, "", "user.rb", &src, map[string]any{"b": 2, "a": 1}, deps)
	require.NoError(t, err)

	assert.Equal(t, ContentHash(u1), ContentHash(u2))
}

func TestDependencyGraphByTypeRoundTrips(t *testing.T) {
	g := NewDependencyGraph()
	src := "class User; end"
	u, err := unit.New("User", unit.TypeModel, "", "user.rb", &src, nil, []unit.Dependency{
		{Target: "Post", Type: "has_many", Via: unit.ViaAssociation},
	})
	require.NoError(t, err)
	g.Register(u)

	beforeTypes := g.ByType("model")
	beforeDeps := g.DependentsOf("Post")

	data, err := json.Marshal(g)
	require.NoError(t, err)

	g2 := NewDependencyGraph()
	require.NoError(t, json.Unmarshal(data, g2))

	assert.ElementsMatch(t, beforeTypes, g2.ByType("model"))
	assert.ElementsMatch(t, beforeDeps, g2.DependentsOf("Post"))
}
