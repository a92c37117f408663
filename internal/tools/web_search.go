package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/applyo/prospector/internal/apperr"
)

const (
	ProviderWebSearchAPI = "websearchapi"
	ProviderTavily       = "tavily"

	defaultWebSearchAPIURL = "https://api.websearchapi.ai/ai-search"
	defaultTavilyURL       = "https://api.tavily.com/search"
	defaultMaxResults      = 10
	maxContentChars        = 500
)

// SearchConfig selects and configures the search backend.
type SearchConfig struct {
	Provider   string
	APIKey     string
	APIURL     string
	MaxResults int
}

// SearchResult is one hit in the shape handed to the model.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchOutput is the tool's JSON result.
type SearchOutput struct {
	Results []SearchResult `json:"results"`
}

// WebSearchArgs represents the arguments for web search
type WebSearchArgs struct {
	Query string `json:"query"`
}

type webSearchAPIRequest struct {
	Query          string `json:"query"`
	MaxResults     int    `json:"maxResults"`
	IncludeContent bool   `json:"includeContent"`
	Country        string `json:"country"`
	Language       string `json:"language"`
}

type webSearchAPIResponse struct {
	Organic []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
	} `json:"organic"`
}

// TavilyRequest represents a request to Tavily API
type TavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth,omitempty"`
	IncludeAnswer bool   `json:"include_answer,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

// TavilyResponse represents a response from Tavily API
type TavilyResponse struct {
	Query   string `json:"query"`
	Answer  string `json:"answer,omitempty"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// WebSearchTool searches the open web through websearchapi.ai or Tavily.
type WebSearchTool struct {
	cfg        SearchConfig
	httpClient *http.Client
}

// NewWebSearchTool creates a new web search tool. An empty API key is
// accepted; calls then fail with an upstream configuration error.
func NewWebSearchTool(cfg SearchConfig) *WebSearchTool {
	if cfg.Provider == "" {
		cfg.Provider = ProviderWebSearchAPI
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultWebSearchAPIURL
		if cfg.Provider == ProviderTavily {
			cfg.APIURL = defaultTavilyURL
		}
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	return &WebSearchTool{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return `Search the web for companies, people and contact details.
Use it to find company websites, leadership pages, press releases, public profiles
and published email addresses. Returns a list of results with title, url and a short snippet.`
}

func (t *WebSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The search query. Be specific: include the company or person name."
			}
		},
		"required": ["query"]
	}`)
}

func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var searchArgs WebSearchArgs
	if err := json.Unmarshal(args, &searchArgs); err != nil {
		return errorResult("Failed to parse search arguments", err), nil
	}
	if strings.TrimSpace(searchArgs.Query) == "" {
		return ToolResult{Content: "query is required", IsError: true}, nil
	}

	results, err := t.Search(ctx, searchArgs.Query)
	if err != nil {
		return ToolResult{}, err
	}

	out, err := json.Marshal(SearchOutput{Results: results})
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to encode results: %w", err)
	}
	return ToolResult{Content: string(out)}, nil
}

// Search runs one query against the configured provider.
func (t *WebSearchTool) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if t.cfg.APIKey == "" {
		return nil, apperr.New(apperr.ErrUpstreamConfig, "SEARCH_API_KEY is not set").
			WithContext("provider", t.cfg.Provider)
	}

	switch t.cfg.Provider {
	case ProviderTavily:
		return t.searchTavily(ctx, query)
	case ProviderWebSearchAPI:
		return t.searchWebSearchAPI(ctx, query)
	default:
		return nil, apperr.Newf(apperr.ErrUpstreamConfig, "unknown search provider %q", t.cfg.Provider)
	}
}

func (t *WebSearchTool) searchWebSearchAPI(ctx context.Context, query string) ([]SearchResult, error) {
	body := webSearchAPIRequest{
		Query:          query,
		MaxResults:     t.cfg.MaxResults,
		IncludeContent: false,
		Country:        "us",
		Language:       "en",
	}
	headers := map[string]string{"Authorization": "Bearer " + t.cfg.APIKey}

	var resp webSearchAPIResponse
	if err := t.postJSON(ctx, body, headers, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Content: truncate(r.Description)})
	}
	return results, nil
}

func (t *WebSearchTool) searchTavily(ctx context.Context, query string) ([]SearchResult, error) {
	body := TavilyRequest{
		APIKey:      t.cfg.APIKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  t.cfg.MaxResults,
	}

	var resp TavilyResponse
	if err := t.postJSON(ctx, body, nil, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Content: truncate(r.Content)})
	}
	return results, nil
}

func (t *WebSearchTool) postJSON(ctx context.Context, payload any, headers map[string]string, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.APIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrToolInvocation, "search request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrToolInvocation, "failed to read search response")
	}

	if resp.StatusCode != http.StatusOK {
		return apperr.Newf(apperr.ErrToolInvocation, "search API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Wrap(err, apperr.ErrToolInvocation, "failed to parse search response")
	}
	return nil
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) > maxContentChars {
		return string(runes[:maxContentChars]) + "..."
	}
	return s
}
