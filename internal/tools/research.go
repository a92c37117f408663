package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/applyo/prospector/internal/apperr"
	"github.com/applyo/prospector/pkg/log"
)

const (
	defaultExaURL   = "https://api.exa.ai"
	defaultExaModel = "exa-research-fast"

	researchTimeout  = 120 * time.Second
	researchOutEvent = "research-output"
)

// ResearchConfig configures the Exa research backend.
type ResearchConfig struct {
	APIKey string
	APIURL string
	Model  string
}

// ResearchArgs are the model-facing arguments of research_company.
type ResearchArgs struct {
	Instructions string          `json:"instructions"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

type researchCreateRequest struct {
	Instructions string          `json:"instructions"`
	Model        string          `json:"model"`
	OutputSchema json.RawMessage `json:"outputSchema,omitempty"`
}

type researchCreateResponse struct {
	ResearchID string `json:"researchId"`
}

type researchEvent struct {
	EventType string `json:"eventType"`
	Output    *struct {
		Parsed  json.RawMessage `json:"parsed"`
		Content string          `json:"content"`
	} `json:"output"`
}

// ResearchTool runs a long research task with Exa and returns its structured output.
type ResearchTool struct {
	cfg        ResearchConfig
	httpClient *http.Client
}

func NewResearchTool(cfg ResearchConfig) *ResearchTool {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultExaURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultExaModel
	}
	return &ResearchTool{
		cfg: cfg,
		// Streaming responses are bounded by the call context, not the client.
		httpClient: &http.Client{},
	}
}

func (t *ResearchTool) Name() string {
	return "research_company"
}

func (t *ResearchTool) Description() string {
	return `Run an in-depth web research task about a company and return a structured JSON object.
Use it to find the official website and current leadership (founders, CEO, C-suite, VPs).
Provide precise instructions and, optionally, a JSON schema the output must follow.`
}

func (t *ResearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"instructions": {
				"type": "string",
				"description": "What to research and what to return"
			},
			"output_schema": {
				"type": "object",
				"description": "Optional JSON schema for the structured output"
			}
		},
		"required": ["instructions"]
	}`)
}

func (t *ResearchTool) Timeout() time.Duration {
	return researchTimeout
}

func (t *ResearchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var in ResearchArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult("Failed to parse research arguments", err), nil
	}
	if strings.TrimSpace(in.Instructions) == "" {
		return ToolResult{Content: "instructions are required", IsError: true}, nil
	}

	out, err := t.Research(ctx, in.Instructions, in.OutputSchema)
	if err != nil {
		return ToolResult{}, err
	}
	return ToolResult{Content: string(out)}, nil
}

// Research creates a research task and follows its event stream until the output arrives.
func (t *ResearchTool) Research(ctx context.Context, instructions string, schema json.RawMessage) (json.RawMessage, error) {
	if t.cfg.APIKey == "" {
		return nil, apperr.New(apperr.ErrUpstreamConfig, "EXA_API_KEY is not set")
	}

	id, err := t.create(ctx, instructions, schema)
	if err != nil {
		return nil, err
	}
	log.Debug("Research %s created", id)

	return t.stream(ctx, id)
}

func (t *ResearchTool) create(ctx context.Context, instructions string, schema json.RawMessage) (string, error) {
	payload, err := json.Marshal(researchCreateRequest{
		Instructions: instructions,
		Model:        t.cfg.Model,
		OutputSchema: schema,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.APIURL+"/research/v1", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", t.cfg.APIKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(err, apperr.ErrToolInvocation, "research create failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(err, apperr.ErrToolInvocation, "failed to read research response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperr.Newf(apperr.ErrToolInvocation, "research API error (status %d): %s", resp.StatusCode, string(body))
	}

	var created researchCreateResponse
	if err := json.Unmarshal(body, &created); err != nil || created.ResearchID == "" {
		return "", apperr.Newf(apperr.ErrToolInvocation, "research API returned no id: %s", string(body))
	}
	return created.ResearchID, nil
}

func (t *ResearchTool) stream(ctx context.Context, id string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.APIURL+"/research/v1/"+id+"?stream=true", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-api-key", t.cfg.APIKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrToolInvocation, "research stream failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperr.Newf(apperr.ErrToolInvocation, "research stream error (status %d): %s", resp.StatusCode, string(body))
	}

	out, err := readResearchOutput(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrToolInvocation, "research stream ended without output").
			WithContext("research_id", id)
	}
	return out, nil
}

// readResearchOutput scans server-sent events and returns the first
// research-output payload that carries parsed JSON or JSON content.
// Every other event is ignored.
func readResearchOutput(r io.Reader) (json.RawMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var data strings.Builder
	flush := func() (json.RawMessage, bool) {
		defer data.Reset()
		if data.Len() == 0 {
			return nil, false
		}
		return parseResearchEvent(data.String())
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if out, ok := flush(); ok {
				return out, nil
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if out, ok := flush(); ok {
		return out, nil
	}
	return nil, fmt.Errorf("no %s event received", researchOutEvent)
}

func parseResearchEvent(payload string) (json.RawMessage, bool) {
	var ev researchEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, false
	}
	if ev.EventType != researchOutEvent || ev.Output == nil {
		return nil, false
	}
	if len(ev.Output.Parsed) > 0 && string(ev.Output.Parsed) != "null" {
		return ev.Output.Parsed, true
	}
	if ev.Output.Content != "" && json.Valid([]byte(ev.Output.Content)) {
		return json.RawMessage(ev.Output.Content), true
	}
	log.Warn("Research output content is not valid JSON, waiting for more events")
	return nil, false
}
