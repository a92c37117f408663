package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/applyo/prospector/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResearchOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stream  string
		want    string
		wantErr bool
	}{
		{
			name: "parsed output wins",
			stream: "data: {\"eventType\":\"research-definition\"}\n\n" +
				"data: {\"eventType\":\"plan-output\",\"output\":{\"content\":\"thinking\"}}\n\n" +
				"data: {\"eventType\":\"research-output\",\"output\":{\"parsed\":{\"company\":\"Acme\"}}}\n\n",
			want: `{"company":"Acme"}`,
		},
		{
			name:   "content fallback",
			stream: "event: message\ndata: {\"eventType\":\"research-output\",\"output\":{\"content\":\"{\\\"people\\\":[]}\"}}\n\n",
			want:   `{"people":[]}`,
		},
		{
			name:   "last event without trailing blank line",
			stream: "data: {\"eventType\":\"research-output\",\"output\":{\"parsed\":{\"ok\":true}}}",
			want:   `{"ok":true}`,
		},
		{
			name:    "no output event",
			stream:  "data: {\"eventType\":\"task-operation\"}\n\n",
			wantErr: true,
		},
		{
			name:    "content is not json",
			stream:  "data: {\"eventType\":\"research-output\",\"output\":{\"content\":\"sorry\"}}\n\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readResearchOutput(strings.NewReader(tt.stream))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestResearchTool_Execute(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "exa-key", r.Header.Get("x-api-key"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/research/v1":
			body, _ := io.ReadAll(r.Body)
			var req map[string]any
			require.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, defaultExaModel, req["model"])
			assert.Contains(t, req["instructions"], "Acme")
			assert.NotNil(t, req["outputSchema"])
			_, _ = w.Write([]byte(`{"researchId":"r_1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/research/v1/r_1":
			assert.Equal(t, "true", r.URL.Query().Get("stream"))
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = fmt.Fprint(w, "data: {\"eventType\":\"research-output\",\"output\":{\"parsed\":{\"company\":\"Acme\",\"people\":[{\"name\":\"Jane Doe\",\"role\":\"CEO\"}]}}}\n\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	tool := NewResearchTool(ResearchConfig{APIKey: "exa-key", APIURL: server.URL + "/"})
	assert.Equal(t, 120*time.Second, TimeoutFor(tool, 10*time.Second))

	result, err := tool.Execute(context.Background(), json.RawMessage(`{
		"instructions": "Find leadership of Acme",
		"output_schema": {"type":"object"}
	}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"company":"Acme","people":[{"name":"Jane Doe","role":"CEO"}]}`, result.Content)
}

func TestResearchTool_CreateFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	tool := NewResearchTool(ResearchConfig{APIKey: "exa-key", APIURL: server.URL})
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"instructions":"x"}`))
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.ErrToolInvocation))
}

func TestResearchTool_MissingKey(t *testing.T) {
	t.Parallel()

	_, err := NewResearchTool(ResearchConfig{}).Execute(context.Background(), json.RawMessage(`{"instructions":"x"}`))
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.ErrUpstreamConfig))
}
