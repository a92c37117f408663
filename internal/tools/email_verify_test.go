package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/applyo/prospector/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newZeroBounceServer(t *testing.T, statuses map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "zb-key", r.URL.Query().Get("api_key"))
		email := r.URL.Query().Get("email")
		status, ok := statuses[email]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"address": email, "status": status, "sub_status": ""})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEmailVerifyTool_Verify(t *testing.T) {
	t.Parallel()

	server := newZeroBounceServer(t, map[string]string{
		"jo@acme.com":    "Valid",
		"j.lee@acme.com": "invalid",
	})
	tool := NewEmailVerifyTool("zb-key", server.URL)

	status, err := tool.Verify(context.Background(), "jo@acme.com")
	require.NoError(t, err)
	assert.Equal(t, StatusValid, status)

	status, err = tool.Verify(context.Background(), "j.lee@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "invalid", status)

	_, err = tool.Verify(context.Background(), "unknown@acme.com")
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.ErrVerification))
}

func TestEmailVerifyTool_Execute(t *testing.T) {
	t.Parallel()

	server := newZeroBounceServer(t, map[string]string{"jo@acme.com": "valid"})
	tool := NewEmailVerifyTool("zb-key", server.URL)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"email":"jo@acme.com"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"jo@acme.com","status":"valid"}`, result.Content)
}

func TestEmailVerifyTool_MissingKey(t *testing.T) {
	t.Parallel()

	tool := NewEmailVerifyTool("", "")
	assert.Equal(t, defaultZeroBounceURL, tool.apiURL)

	_, err := tool.Verify(context.Background(), "jo@acme.com")
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.ErrUpstreamConfig))
}

func TestEmailVerifyTool_TransportErrorHidesKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)
	tool := NewEmailVerifyTool("zb-secret-key", server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := tool.Verify(ctx, "jo@acme.com")
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.ErrVerification))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, err.Error(), "zb-secret-key")
	assert.NotContains(t, err.Error(), "api_key")
}

func TestEmailVerifyTool_UsesConfiguredTimeout(t *testing.T) {
	t.Parallel()

	tool := NewEmailVerifyTool("zb-key", "")
	assert.Equal(t, 2*time.Second, TimeoutFor(tool, 2*time.Second))
}
