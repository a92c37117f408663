package llm

import (
	"fmt"
)

// Config holds the configuration for the chat completions client.
// Any OpenAI-compatible provider works (OpenAI, OpenRouter, a local gateway).
//
// Environment Variables (read by internal/config):
// - LLM_API_KEY: API key for the provider (required)
// - LLM_API_URL: API base URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name (default: openai/gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens per response (default: 4000)
// - LLM_TEMPERATURE: Default temperature (default: 0.2)
// - LLM_TIMEOUT: Request timeout in seconds (default: 120)
// - LLM_SITE_URL: Site URL for the HTTP-Referer header (optional)
// - LLM_APP_NAME: Application name for the X-Title header (optional)
type Config struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

// GetHeaders returns the HTTP headers for API requests.
// OpenRouter reads HTTP-Referer and X-Title for attribution; other providers ignore them.
func (c *Config) GetHeaders() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + c.APIKey,
		"Content-Type":  "application/json",
	}

	if c.SiteURL != "" {
		headers["HTTP-Referer"] = c.SiteURL
	}
	if c.AppName != "" {
		headers["X-Title"] = c.AppName
	}

	return headers
}
