package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/applyo/prospector/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults; a .env file in the
// working directory is loaded first when present.
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the generation backend (required)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name to use (default: openai/gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 4000)
// - LLM_TEMPERATURE: Default temperature (default: 0.2)
// - LLM_TIMEOUT: Request timeout in seconds (default: 120)
// - LLM_SITE_URL / LLM_APP_NAME: OpenRouter attribution headers (optional)
//
// Tools:
// - SEARCH_PROVIDER: websearchapi or tavily (default: websearchapi)
// - SEARCH_API_KEY, SEARCH_API_URL, SEARCH_MAX_RESULTS (default: 5)
// - ZEROBOUNCE_API_KEY, ZEROBOUNCE_API_URL
// - VERIFY_CACHE_SIZE (default: 1024), VERIFY_CACHE_TTL (default: 24h)
// - EXA_API_KEY, EXA_API_URL, EXA_MODEL
//
// Agent:
// - AGENT_TOOL_TIMEOUT: default per-tool timeout (default: 10s)
// - AGENT_MAX_ROUNDS: overrides every kind's round budget when > 0
//
// HTTP / storage / auth:
// - HTTP_ADDR (default: :8080), BASE_URL, FRONTEND_URL
// - DB_PATH (default: data/prospector.db)
// - SESSION_TTL (default: 720h), SESSION_PURGE_CRON (default: 0 0 * * * *), COOKIE_SECURE
//
// Missing tool keys are not a startup failure; the tool reports them when called.
type Config struct {
	LLM      LLMConfig      `json:"llm"`
	Search   SearchConfig   `json:"search"`
	Verifier VerifierConfig `json:"verifier"`
	Research ResearchConfig `json:"research"`
	Agent    AgentConfig    `json:"agent"`
	HTTP     HTTPConfig     `json:"http"`
	DB       DBConfig       `json:"db"`
	Auth     AuthConfig     `json:"auth"`
}

// LLMConfig holds the configuration for the generation backend
// Supports any OpenAI-compatible provider (OpenRouter, OpenAI, ...).
type LLMConfig struct {
	APIKey      string  `json:"-"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

// SearchConfig holds the configuration for the web search tool
type SearchConfig struct {
	Provider   string `json:"provider"`
	APIKey     string `json:"-"`
	APIURL     string `json:"api_url"`
	MaxResults int    `json:"max_results"`
}

type VerifierConfig struct {
	APIKey    string        `json:"-"`
	APIURL    string        `json:"api_url"`
	CacheSize int           `json:"cache_size"`
	CacheTTL  time.Duration `json:"cache_ttl"`
}

type ResearchConfig struct {
	APIKey string `json:"-"`
	APIURL string `json:"api_url"`
	Model  string `json:"model"`
}

type AgentConfig struct {
	ToolTimeout time.Duration `json:"tool_timeout"`
	MaxRounds   int           `json:"max_rounds"`
}

type HTTPConfig struct {
	Addr        string `json:"addr"`
	BaseURL     string `json:"base_url"`
	FrontendURL string `json:"frontend_url"`
}

// AllowedOrigins is the CORS allow-list: the configured URLs plus the local dev front-end.
func (c HTTPConfig) AllowedOrigins() []string {
	origins := make([]string, 0, 3)
	for _, o := range []string{c.BaseURL, c.FrontendURL, "http://localhost:3000"} {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

type DBConfig struct {
	Path string `json:"path"`
}

type AuthConfig struct {
	SessionTTL   time.Duration `json:"session_ttl"`
	PurgeCron    string        `json:"purge_cron"`
	CookieSecure bool          `json:"cookie_secure"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("Config: could not load .env: %v", err)
	}

	config := &Config{
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 4000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
			Timeout:     getEnvInt("LLM_TIMEOUT", 120),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", "prospector"),
		},
		Search: SearchConfig{
			Provider:   getEnvString("SEARCH_PROVIDER", "websearchapi"),
			APIKey:     getEnvString("SEARCH_API_KEY", ""),
			APIURL:     getEnvString("SEARCH_API_URL", ""),
			MaxResults: getEnvInt("SEARCH_MAX_RESULTS", 5),
		},
		Verifier: VerifierConfig{
			APIKey:    getEnvString("ZEROBOUNCE_API_KEY", ""),
			APIURL:    getEnvString("ZEROBOUNCE_API_URL", ""),
			CacheSize: getEnvInt("VERIFY_CACHE_SIZE", 1024),
			CacheTTL:  getEnvDuration("VERIFY_CACHE_TTL", 24*time.Hour),
		},
		Research: ResearchConfig{
			APIKey: getEnvString("EXA_API_KEY", ""),
			APIURL: getEnvString("EXA_API_URL", ""),
			Model:  getEnvString("EXA_MODEL", ""),
		},
		Agent: AgentConfig{
			ToolTimeout: getEnvDuration("AGENT_TOOL_TIMEOUT", 10*time.Second),
			MaxRounds:   getEnvInt("AGENT_MAX_ROUNDS", 0),
		},
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			BaseURL:     getEnvString("BASE_URL", ""),
			FrontendURL: getEnvString("FRONTEND_URL", ""),
		},
		DB: DBConfig{
			Path: getEnvString("DB_PATH", "data/prospector.db"),
		},
		Auth: AuthConfig{
			SessionTTL:   getEnvDuration("SESSION_TTL", 30*24*time.Hour),
			PurgeCron:    getEnvString("SESSION_PURGE_CRON", "0 0 * * * *"),
			CookieSecure: getEnvBool("COOKIE_SECURE", false),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Info("Config: model=%s search=%s db=%s addr=%s", config.LLM.Model, config.Search.Provider, config.DB.Path, config.HTTP.Addr)
	return config, nil
}

// Validate checks if all required configuration is properly set
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	switch c.Search.Provider {
	case "websearchapi", "tavily":
	default:
		return fmt.Errorf("SEARCH_PROVIDER must be websearchapi or tavily, got %q", c.Search.Provider)
	}
	if c.Agent.MaxRounds < 0 {
		return fmt.Errorf("AGENT_MAX_ROUNDS must not be negative")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
