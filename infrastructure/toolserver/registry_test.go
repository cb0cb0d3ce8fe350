package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry(0)
	resp := reg.Dispatch(context.Background(), Request{ID: "r1", Tool: "Hacker"})
	assert.False(t, resp.Ok)
	assert.Equal(t, ErrKindUnknownTool, resp.ErrorType)
	assert.Equal(t, "r1", resp.ID)
}

func TestDispatchRegisteredTool(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register("echo", func(_ context.Context, params json.RawMessage) (any, error) {
		var p struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(params, &p)
		return p.Text, nil
	})

	resp := reg.Dispatch(context.Background(), Request{Tool: "echo", Params: json.RawMessage(`{"text":"hi"}`)})
	assert.True(t, resp.Ok)
	assert.Equal(t, "hi", resp.Result)
}

func TestDispatchHandlerErrorPreservesKind(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register("sql", func(_ context.Context, _ json.RawMessage) (any, error) {
		return nil, NewHandlerError(ErrKindSQLRejected, "Rejected: multiple statements are not allowed")
	})

	resp := reg.Dispatch(context.Background(), Request{Tool: "sql"})
	assert.False(t, resp.Ok)
	assert.Equal(t, ErrKindSQLRejected, resp.ErrorType)
}

func TestDispatchRecoversPanic(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register("boom", func(_ context.Context, _ json.RawMessage) (any, error) {
		panic("kaboom")
	})

	resp := reg.Dispatch(context.Background(), Request{Tool: "boom"})
	assert.False(t, resp.Ok)
	assert.Equal(t, ErrKindExecution, resp.ErrorType)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register("a", func(_ context.Context, _ json.RawMessage) (any, error) { return nil, nil })
	assert.Panics(t, func() {
		reg.Register("a", func(_ context.Context, _ json.RawMessage) (any, error) { return nil, nil })
	})
}

func TestServeStdioRoundTrip(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register("count", func(_ context.Context, _ json.RawMessage) (any, error) {
		return 42, nil
	})

	in := bytes.NewBufferString(`{"id":"r1","tool":"count","params":{}}` + "\n")
	var out bytes.Buffer

	err := ServeStdio(context.Background(), reg, in, &out, nil)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.True(t, resp.Ok)
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, float64(42), resp.Result)
}

func TestServeStdioParseFailureDropsID(t *testing.T) {
	reg := NewRegistry(0)
	in := bytes.NewBufferString(`not json` + "\n")
	var out bytes.Buffer

	err := ServeStdio(context.Background(), reg, in, &out, nil)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.False(t, resp.Ok)
	assert.Equal(t, ErrKindParse, resp.ErrorType)
	assert.Empty(t, resp.ID)
}
