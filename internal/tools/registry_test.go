package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct{ name string }

func (s stubTool) Name() string                { return s.name }
func (s stubTool) Description() string         { return "stub " + s.name }
func (s stubTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (s stubTool) Execute(context.Context, json.RawMessage) (ToolResult, error) {
	return ToolResult{Content: s.name}, nil
}

func TestRegistry_RegisterAndList(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(stubTool{name: "web_search"}))
	require.NoError(t, r.Register(stubTool{name: "verify_email"}))

	err := r.Register(stubTool{name: "web_search"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Error(t, r.Register(stubTool{}))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"verify_email", "web_search"}, r.List())

	tool, ok := r.Get("web_search")
	require.True(t, ok)
	assert.Equal(t, "web_search", tool.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_ToOpenAIFormat(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(stubTool{name: "b"}))
	require.NoError(t, r.Register(stubTool{name: "a"}))

	defs := r.ToOpenAIFormat()
	require.Len(t, defs, 2)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "a", defs[0].Function.Name)
	assert.Equal(t, "stub a", defs[0].Function.Description)
	assert.JSONEq(t, `{"type":"object"}`, string(defs[0].Function.Parameters))
}

func TestRegistry_Subset(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(stubTool{name: "web_search"}))
	require.NoError(t, r.Register(stubTool{name: "research_company"}))

	sub, err := r.Subset([]string{"web_search"})
	require.NoError(t, err)
	assert.Equal(t, []string{"web_search"}, sub.List())

	empty, err := r.Subset(nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Count())

	_, err = r.Subset([]string{"nope"})
	assert.Error(t, err)
}
