package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/applyo/prospector/internal/apperr"
	"github.com/applyo/prospector/internal/llm"
	"github.com/applyo/prospector/internal/tools"
	"github.com/applyo/prospector/pkg/log"
)

const (
	defaultMaxRounds      = 10
	maxParallelToolsRound = 8
)

// ChatClient is the generation backend as the orchestrator sees it.
type ChatClient interface {
	ChatCompletionWithTools(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, opts *llm.ChatCompletionOptions) (*llm.ChatResponse, error)
}

type sessionState int

const (
	stateAwaitingBackend sessionState = iota
	stateExecutingTools
	stateTerminal
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitingBackend:
		return "awaiting-backend"
	case stateExecutingTools:
		return "executing-tools"
	default:
		return "terminal"
	}
}

// Orchestrator drives one bounded generation session.
type Orchestrator struct {
	client      ChatClient
	registry    *tools.Registry
	maxRounds   int
	toolTimeout time.Duration
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(client ChatClient, registry *tools.Registry, maxRounds int, toolTimeout time.Duration) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	if toolTimeout <= 0 {
		toolTimeout = tools.DefaultTimeout
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Orchestrator{
		client:      client,
		registry:    registry,
		maxRounds:   maxRounds,
		toolTimeout: toolTimeout,
	}
}

// Run executes the session. Each round is one backend call; tool calls of a
// round run concurrently and all finish before the next round. When the last
// permitted round still asks for tools, those tools are not run and the
// result is returned with Exhausted set. Tool failures never end the session.
func (o *Orchestrator) Run(ctx context.Context, req AgentRequest) (*AgentResult, error) {
	result := &AgentResult{
		ToolCalls: make([]ToolCallRecord, 0),
	}

	messages := []llm.Message{
		{Role: llm.RoleUser, Content: req.UserMessage},
	}
	toolDefs := o.registry.ToOpenAIFormat()

	opts := llm.NewChatCompletionOptions().WithSystemPrompt(req.SystemPrompt)
	if req.Temperature != nil {
		opts.WithTemperature(*req.Temperature)
	}

	var pending []llm.ToolCall
	state := stateAwaitingBackend

	for state != stateTerminal {
		log.Debug("Session %s: round=%d", state, result.Rounds)
		switch state {
		case stateAwaitingBackend:
			result.Rounds++
			round := result.Rounds

			resp, err := o.client.ChatCompletionWithTools(ctx, messages, toolDefs, opts)
			if err != nil {
				return nil, apperr.Wrap(err, apperr.ErrGeneration, "generation backend call failed").
					WithContext("round", round)
			}
			if len(resp.Choices) == 0 {
				return nil, apperr.New(apperr.ErrGeneration, "no choices in response").
					WithContext("round", round)
			}

			msg := resp.Choices[0].Message
			result.Content = msg.Content

			switch {
			case len(msg.ToolCalls) == 0:
				state = stateTerminal
			case round >= o.maxRounds:
				log.Warn("Round budget %d exhausted with %d tool calls pending", o.maxRounds, len(msg.ToolCalls))
				result.Exhausted = true
				state = stateTerminal
			default:
				messages = append(messages, msg)
				pending = msg.ToolCalls
				state = stateExecutingTools
			}

		case stateExecutingTools:
			records := o.executeRound(ctx, result.Rounds, pending)
			for i, record := range records {
				result.ToolCalls = append(result.ToolCalls, record)
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					Content:    record.Result,
					ToolCallID: pending[i].ID,
				})
			}
			pending = nil
			state = stateAwaitingBackend
		}
	}

	return result, nil
}

// executeRound runs the round's tool calls concurrently and returns their
// records in request order.
func (o *Orchestrator) executeRound(ctx context.Context, round int, calls []llm.ToolCall) []ToolCallRecord {
	records := make([]ToolCallRecord, len(calls))

	var g errgroup.Group
	g.SetLimit(maxParallelToolsRound)
	for i, call := range calls {
		g.Go(func() error {
			records[i] = o.executeTool(ctx, round, call)
			log.Info("Tool %s executed: round=%d error=%v duration=%s",
				call.Function.Name, round, records[i].IsError, records[i].Duration)
			return nil
		})
	}
	_ = g.Wait()

	return records
}

func (o *Orchestrator) executeTool(ctx context.Context, round int, toolCall llm.ToolCall) ToolCallRecord {
	start := time.Now()
	record := ToolCallRecord{
		ID:        toolCall.ID,
		Round:     round,
		ToolName:  toolCall.Function.Name,
		Arguments: toolCall.Function.Arguments,
	}

	tool, exists := o.registry.Get(toolCall.Function.Name)
	if !exists {
		record.Result = fmt.Sprintf("Tool %q not found", toolCall.Function.Name)
		record.IsError = true
		record.Duration = time.Since(start)
		return record
	}

	args := json.RawMessage(toolCall.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	timeout := tools.TimeoutFor(tool, o.toolTimeout)
	result, err := callWithTimeout(ctx, tool, args, timeout)
	record.Duration = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			record.Result = fmt.Sprintf("Tool %s timed out after %s", tool.Name(), timeout)
		} else {
			record.Result = fmt.Sprintf("Tool execution error: %v", err)
		}
		record.IsError = true
		return record
	}

	record.Result = result.Content
	record.IsError = result.IsError
	return record
}

// callWithTimeout aborts the call when timeout elapses even if the tool
// ignores its context.
func callWithTimeout(ctx context.Context, tool tools.Tool, args json.RawMessage, timeout time.Duration) (tools.ToolResult, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result tools.ToolResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := tool.Execute(tctx, args)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && tctx.Err() != nil {
			return tools.ToolResult{}, tctx.Err()
		}
		return out.result, out.err
	case <-tctx.Done():
		return tools.ToolResult{}, tctx.Err()
	}
}
