package persistence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexhq/kodex/domain/feedback"
	"github.com/kodexhq/kodex/domain/live"
	"github.com/kodexhq/kodex/domain/manifest"
)

func TestFeedbackStoreAppendAndAllRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	store, err := NewFeedbackStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Append(feedback.NewRating("how do associations work", 4, "")))
	require.NoError(t, store.Append(feedback.NewGap("where is billing", "BillingService", "service")))

	records, err := store.All()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, feedback.KindRating, records[0].Kind)
	assert.Equal(t, feedback.KindGap, records[1].Kind)
}

func TestAuditLoggerAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewAuditLogger(path)
	require.NoError(t, err)

	require.NoError(t, logger.Log(AuditEntry{Tool: "sql", Tier: live.Tier4GuardedEscapeHatch, Approved: true}))
	require.NoError(t, logger.Log(AuditEntry{Tool: "count", Tier: live.Tier1ReadOnlyPrimitives, Approved: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"tool":"sql"`)
	assert.Contains(t, lines[1], `"tool":"count"`)
}

func TestManifestStoreWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	store := NewManifestStore(path)
	assert.False(t, store.Exists())

	m := manifest.NewChangeManifest("sha1", "", manifest.Changes{Added: []string{"User"}})
	require.NoError(t, store.Write(m))
	assert.True(t, store.Exists())

	loaded, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, m.GitSHA, loaded.GitSHA)
	assert.Equal(t, m.Changes.Added, loaded.Changes.Added)
}
