package livedata

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/kodexhq/kodex/domain/live"
	"github.com/kodexhq/kodex/infrastructure/persistence"
	"github.com/kodexhq/kodex/infrastructure/toolserver"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mode live.ConfirmationMode) (*Server, *toolserver.Registry) {
	t.Helper()
	validator := live.NewModelValidator(map[string][]string{
		"widgets": {"id", "name", "owner_id", "created_at"},
	})
	confirmation := live.NewConfirmation(mode, nil)
	audit, err := persistence.NewAuditLogger(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)

	srv := NewServer(validator, confirmation, audit, []string{"owner_id"}, newEmbeddedAdapter(t))
	reg := toolserver.NewRegistry(0)
	srv.Register(reg)
	return srv, reg
}

func dispatch(t *testing.T, reg *toolserver.Registry, tool string, params any) toolserver.Response {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return reg.Dispatch(context.Background(), toolserver.Request{Tool: tool, Params: raw})
}

func TestServerCountRejectsUnknownModel(t *testing.T) {
	_, reg := newTestServer(t, live.ModeAutoApprove)
	resp := dispatch(t, reg, "count", map[string]any{"model": "ghosts"})
	require.False(t, resp.Ok)
	require.Equal(t, toolserver.ErrKindValidation, resp.ErrorType)
}

func TestServerCountSucceeds(t *testing.T) {
	_, reg := newTestServer(t, live.ModeAutoApprove)
	resp := dispatch(t, reg, "count", map[string]any{"model": "widgets"})
	require.True(t, resp.Ok)
	require.EqualValues(t, 3, resp.Result)
}

func TestServerSampleRedactsConfiguredColumn(t *testing.T) {
	_, reg := newTestServer(t, live.ModeAutoApprove)
	resp := dispatch(t, reg, "sample", map[string]any{"model": "widgets", "limit": 10})
	require.True(t, resp.Ok)

	rows, ok := resp.Result.([]Row)
	require.True(t, ok)
	for _, row := range rows {
		require.Equal(t, "[REDACTED]", row["owner_id"])
	}
}

func TestServerSQLRejectsWriteStatement(t *testing.T) {
	_, reg := newTestServer(t, live.ModeAutoApprove)
	resp := dispatch(t, reg, "sql", map[string]any{"sql": "DELETE FROM widgets"})
	require.False(t, resp.Ok)
	require.Equal(t, toolserver.ErrKindSQLRejected, resp.ErrorType)
}

func TestServerSQLDeniedWhenConfirmationAutoDenies(t *testing.T) {
	_, reg := newTestServer(t, live.ModeAutoDeny)
	resp := dispatch(t, reg, "sql", map[string]any{"sql": "SELECT * FROM widgets"})
	require.False(t, resp.Ok)
	require.Equal(t, toolserver.ErrKindConfirmationDenied, resp.ErrorType)
}

func TestServerTier2ToolUnsupportedInEmbeddedMode(t *testing.T) {
	_, reg := newTestServer(t, live.ModeAutoApprove)
	resp := dispatch(t, reg, "diagnose_model", map[string]any{"model": "widgets"})
	require.False(t, resp.Ok)
	require.Equal(t, toolserver.ErrKindUnsupported, resp.ErrorType)
}

func TestServerUnknownToolNameNeverDispatches(t *testing.T) {
	_, reg := newTestServer(t, live.ModeAutoApprove)
	resp := dispatch(t, reg, "drop_everything", map[string]any{})
	require.False(t, resp.Ok)
	require.Equal(t, toolserver.ErrKindUnknownTool, resp.ErrorType)
}

func TestServerRecordsAuditHistoryOnConfirmationGatedTool(t *testing.T) {
	srv, reg := newTestServer(t, live.ModeAutoApprove)
	dispatch(t, reg, "sql", map[string]any{"sql": "SELECT * FROM widgets"})
	require.Len(t, srv.Confirmation.History(), 1)
	require.True(t, srv.Confirmation.History()[0].Approved)
}
