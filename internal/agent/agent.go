package agent

import (
	"context"
	"time"

	"github.com/applyo/prospector/internal/tools"
)

// Agent defines the interface for an agent that can execute tasks
type Agent interface {
	// Execute runs the agent with the given request
	Execute(ctx context.Context, req AgentRequest) (*AgentResult, error)

	// Close releases any resources held by the agent
	Close() error
}

// LLMAgent implements the Agent interface using an LLM with tool calling
type LLMAgent struct {
	client      ChatClient
	registry    *tools.Registry
	maxRounds   int
	toolTimeout time.Duration
}

type Option func(*LLMAgent)

// WithMaxRounds sets the round budget used when a request sets none.
func WithMaxRounds(n int) Option {
	return func(a *LLMAgent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithToolTimeout sets the per-call timeout for tools that declare none.
func WithToolTimeout(d time.Duration) Option {
	return func(a *LLMAgent) {
		if d > 0 {
			a.toolTimeout = d
		}
	}
}

// NewLLMAgent creates a new LLM-based agent
func NewLLMAgent(client ChatClient, registry *tools.Registry, opts ...Option) *LLMAgent {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	a := &LLMAgent{
		client:      client,
		registry:    registry,
		maxRounds:   defaultMaxRounds,
		toolTimeout: tools.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Execute runs the agent with the given request
func (a *LLMAgent) Execute(ctx context.Context, req AgentRequest) (*AgentResult, error) {
	registry := a.registry
	if req.Tools != nil {
		registry = req.Tools
	}
	orchestrator := NewOrchestrator(a.client, registry, a.getMaxRounds(req), a.toolTimeout)
	return orchestrator.Run(ctx, req)
}

// Close releases any resources held by the agent
func (a *LLMAgent) Close() error {
	return nil
}

// Registry returns the full tool catalogue.
func (a *LLMAgent) Registry() *tools.Registry {
	return a.registry
}

func (a *LLMAgent) getMaxRounds(req AgentRequest) int {
	if req.MaxRounds > 0 {
		return req.MaxRounds
	}
	return a.maxRounds
}
