package livedata

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT, owner_id INTEGER, created_at TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO widgets (id, name, owner_id, created_at) VALUES
		(1, 'alpha', 10, '2026-01-01'),
		(2, 'beta', 10, '2026-01-02'),
		(3, 'gamma', 11, '2026-01-03')`)
	require.NoError(t, err)
	return db
}

func newEmbeddedAdapter(t *testing.T) *EmbeddedAdapter {
	db := newTestSQLite(t)
	sc := New(db, DialectSQLite)
	return NewEmbeddedAdapter(sc, string(DialectSQLite), []string{"widgets"})
}

func TestEmbeddedAdapterCount(t *testing.T) {
	a := newEmbeddedAdapter(t)
	n, err := a.Count(context.Background(), "widgets", nil)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestEmbeddedAdapterCountWithConditions(t *testing.T) {
	a := newEmbeddedAdapter(t)
	n, err := a.Count(context.Background(), "widgets", Row{"owner_id": 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestEmbeddedAdapterFind(t *testing.T) {
	a := newEmbeddedAdapter(t)
	row, found, err := a.Find(context.Background(), "widgets", "id", 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alpha", row["name"])
}

func TestEmbeddedAdapterFindMissing(t *testing.T) {
	a := newEmbeddedAdapter(t)
	_, found, err := a.Find(context.Background(), "widgets", "id", 999)
	require.NoError(t, err)
	require.False(t, found)
}

func TestEmbeddedAdapterPluckDistinct(t *testing.T) {
	a := newEmbeddedAdapter(t)
	rows, err := a.Pluck(context.Background(), "widgets", []string{"owner_id"}, true, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestEmbeddedAdapterAggregate(t *testing.T) {
	a := newEmbeddedAdapter(t)
	v, err := a.Aggregate(context.Background(), "widgets", "maximum", "id")
	require.NoError(t, err)
	require.Equal(t, float64(3), v)
}

func TestEmbeddedAdapterAggregateUnknownFunction(t *testing.T) {
	a := newEmbeddedAdapter(t)
	_, err := a.Aggregate(context.Background(), "widgets", "median", "id")
	require.Error(t, err)
}

func TestEmbeddedAdapterRecentCapsLimit(t *testing.T) {
	a := newEmbeddedAdapter(t)
	rows, err := a.Recent(context.Background(), "widgets", "id", "desc", 9999)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "gamma", rows[0]["name"])
}

func TestEmbeddedAdapterSchemaUnsupported(t *testing.T) {
	a := newEmbeddedAdapter(t)
	_, err := a.Schema(context.Background(), "widgets", false)
	require.Error(t, err)
	var unsupported *ErrUnsupported
	require.ErrorAs(t, err, &unsupported)
}

func TestEmbeddedAdapterExecUnsupportedForTier2(t *testing.T) {
	a := newEmbeddedAdapter(t)
	_, err := a.Exec(context.Background(), "diagnose_model", Row{"model": "widgets"})
	require.Error(t, err)
	var unsupported *ErrUnsupported
	require.ErrorAs(t, err, &unsupported)
}

func TestEmbeddedAdapterStatusReportsKnownModels(t *testing.T) {
	a := newEmbeddedAdapter(t)
	status, err := a.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "embedded", status.Adapter)
	require.Equal(t, []string{"widgets"}, status.Models)
}
