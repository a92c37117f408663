package tools

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultTimeout bounds a single tool call unless the tool declares its own.
const DefaultTimeout = 10 * time.Second

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Tool defines the interface for tools that can be called by the agent
type Tool interface {
	// Name returns the unique name of the tool
	Name() string

	// Description returns a description of what the tool does
	Description() string

	// Parameters returns the JSON Schema for the tool's parameters
	Parameters() json.RawMessage

	// Execute runs the tool with the given arguments.
	// A returned error means the call itself failed; IsError results are
	// failures the tool already formatted for the model.
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)
}

// TimeoutTool is implemented by tools that need more (or less) than DefaultTimeout.
type TimeoutTool interface {
	Timeout() time.Duration
}

// TimeoutFor returns the per-call timeout for tool, falling back to def.
func TimeoutFor(tool Tool, def time.Duration) time.Duration {
	if tt, ok := tool.(TimeoutTool); ok && tt.Timeout() > 0 {
		return tt.Timeout()
	}
	if def <= 0 {
		return DefaultTimeout
	}
	return def
}

func errorResult(format string, err error) ToolResult {
	return ToolResult{Content: format + ": " + err.Error(), IsError: true}
}
