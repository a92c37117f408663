package agent

import (
	"time"

	"github.com/applyo/prospector/internal/tools"
)

// AgentRequest represents a request to the agent
type AgentRequest struct {
	// SystemPrompt is the system prompt to set context
	SystemPrompt string

	// UserMessage is the user's message/task
	UserMessage string

	// Tools restricts the catalogue for this request. Nil means the agent's full registry.
	Tools *tools.Registry

	// MaxRounds is the hard ceiling on generation rounds. Default: 10
	MaxRounds int

	// Temperature overrides the client default when set.
	Temperature *float64
}

// AgentResult represents the result from an agent execution
type AgentResult struct {
	// Content is the text of the last generation round, possibly empty.
	Content string

	// ToolCalls contains a record of all tool calls made during execution, in order.
	ToolCalls []ToolCallRecord

	// Rounds is the number of generation calls made
	Rounds int

	// Exhausted is set when the round budget ran out while the model still wanted tools.
	Exhausted bool
}

// ToolCallRecord records a single tool call and its result
type ToolCallRecord struct {
	ID        string        `json:"id"`
	Round     int           `json:"round"`
	ToolName  string        `json:"tool"`
	Arguments string        `json:"arguments"`
	Result    string        `json:"result"`
	IsError   bool          `json:"is_error,omitempty"`
	Duration  time.Duration `json:"duration"`
}
