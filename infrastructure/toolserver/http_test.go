package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPHandlerDispatches(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register("lookup", func(_ context.Context, _ json.RawMessage) (any, error) {
		return map[string]string{"identifier": "User"}, nil
	})

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	body, _ := json.Marshal(Request{ID: "r1", Tool: "lookup"})
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Ok)
	assert.Equal(t, "r1", out.ID)
}

func TestHTTPHandlerMalformedBody(t *testing.T) {
	reg := NewRegistry(0)
	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Ok)
	assert.Equal(t, ErrKindParse, out.ErrorType)
}
