package livedata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeContextAlwaysRollsBack(t *testing.T) {
	db := newTestSQLite(t)
	sc := New(db, DialectSQLite)

	_, err := sc.Execute(context.Background(), 0, func(ctx context.Context, tx Tx) (any, error) {
		return nil, tx.Exec(ctx, "DELETE FROM widgets")
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM widgets").Scan(&count))
	require.Equal(t, 3, count, "SafeContext must roll back even a write that succeeded inside the transaction")
}

func TestSafeContextRollsBackOnHandlerError(t *testing.T) {
	db := newTestSQLite(t)
	sc := New(db, DialectSQLite)

	_, err := sc.Execute(context.Background(), 0, func(ctx context.Context, tx Tx) (any, error) {
		_ = tx.Exec(ctx, "DELETE FROM widgets")
		return nil, context.Canceled
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM widgets").Scan(&count))
	require.Equal(t, 3, count)
}

func TestSafeContextQueryReturnsRows(t *testing.T) {
	db := newTestSQLite(t)
	sc := New(db, DialectSQLite)

	result, err := sc.Execute(context.Background(), 0, func(ctx context.Context, tx Tx) (any, error) {
		return tx.Query(ctx, "SELECT id, name FROM widgets WHERE id = ?", 1)
	})
	require.NoError(t, err)

	rows := result.([]Row)
	require.Len(t, rows, 1)
	require.Equal(t, "alpha", rows[0]["name"])
}

func TestSafeContextSQLiteDialectSkipsTimeoutStatement(t *testing.T) {
	db := newTestSQLite(t)
	sc := New(db, DialectSQLite)

	_, err := sc.Execute(context.Background(), 5000, func(ctx context.Context, tx Tx) (any, error) {
		return nil, nil
	})
	require.NoError(t, err, "sqlite has no statement-timeout pragma; Execute must not fail attempting one")
}
