package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Client is an OpenAI-compatible chat completions client (OpenAI, OpenRouter, ...).
// Safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new LLM client with the given configuration
//
// Example:
//
//	client, err := llm.NewClient(&llm.Config{APIKey: key, APIURL: url, Model: "gpt-4o", MaxTokens: 4000, Timeout: 60})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Client{
		config:  config,
		baseURL: config.APIURL,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}, nil
}

// ChatCompletion sends a plain chat completion request without tools.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, opts *ChatCompletionOptions) (*ChatResponse, error) {
	return c.ChatCompletionWithTools(ctx, messages, nil, opts)
}

// ChatCompletionWithTools sends a chat completion request advertising the given tools.
// The model may answer with content or with tool calls; the caller drives the loop.
func (c *Client) ChatCompletionWithTools(
	ctx context.Context,
	messages []Message,
	tools []ToolDefinition,
	opts *ChatCompletionOptions,
) (*ChatResponse, error) {
	if opts == nil {
		opts = NewChatCompletionOptions()
	}

	if opts.SystemPrompt != "" {
		messages = append([]Message{{Role: RoleSystem, Content: opts.SystemPrompt}}, messages...)
	}

	request := ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   c.getMaxTokens(opts),
		Temperature: c.getTemperature(opts),
	}
	if len(tools) > 0 {
		request.Tools = tools
		request.ToolChoice = opts.ToolChoice
		if request.ToolChoice == "" {
			request.ToolChoice = "auto"
		}
	}

	response, err := c.makeRequest(ctx, http.MethodPost, "/chat/completions", request)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	return response, nil
}

// SimpleChat sends a single prompt and returns the first choice's content.
func (c *Client) SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	opts := NewChatCompletionOptions().WithSystemPrompt(systemPrompt)
	response, err := c.ChatCompletion(ctx, []Message{{Role: RoleUser, Content: prompt}}, opts)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return response.Choices[0].Message.Content, nil
}

func (c *Client) makeRequest(ctx context.Context, method, path string, payload interface{}) (*ChatResponse, error) {
	url := c.baseURL + path

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var chatResponse ChatResponse
	if err := json.Unmarshal(responseBody, &chatResponse); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(responseBody))
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResponse.Error != nil && chatResponse.Error.Message != "" {
		return &chatResponse, chatResponse.Error
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &chatResponse, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	return &chatResponse, nil
}

func (c *Client) getMaxTokens(opts *ChatCompletionOptions) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return c.config.MaxTokens
}

func (c *Client) getTemperature(opts *ChatCompletionOptions) *float64 {
	if opts.Temperature != nil && *opts.Temperature >= 0 && *opts.Temperature <= 2 {
		return opts.Temperature
	}
	t := c.config.Temperature
	return &t
}
