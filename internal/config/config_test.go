package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("AGENT_MAX_ROUNDS", "")
	t.Setenv("SEARCH_PROVIDER", "")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "websearchapi", cfg.Search.Provider)
	assert.Equal(t, 10*time.Second, cfg.Agent.ToolTimeout)
	assert.Zero(t, cfg.Agent.MaxRounds)
	assert.Equal(t, 24*time.Hour, cfg.Verifier.CacheTTL)
	assert.Equal(t, "data/prospector.db", cfg.DB.Path)
}

func TestNewFromEnv_FromEnv(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("SEARCH_PROVIDER", "tavily")
	t.Setenv("AGENT_TOOL_TIMEOUT", "3s")
	t.Setenv("AGENT_MAX_ROUNDS", "4")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("VERIFY_CACHE_TTL", "not-a-duration")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "tavily", cfg.Search.Provider)
	assert.Equal(t, 3*time.Second, cfg.Agent.ToolTimeout)
	assert.Equal(t, 4, cfg.Agent.MaxRounds)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, 24*time.Hour, cfg.Verifier.CacheTTL)
}

func TestNewFromEnv_MissingKeys(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEY")

	// tool keys are optional
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("SEARCH_API_KEY", "")
	t.Setenv("ZEROBOUNCE_API_KEY", "")
	t.Setenv("EXA_API_KEY", "")
	_, err = NewFromEnv()
	require.NoError(t, err)
}

func TestNewFromEnv_OptionsApplyBeforeValidate(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	cfg, err := NewFromEnv(func(c *Config) { c.LLM.APIKey = "from-option" })
	require.NoError(t, err)
	assert.Equal(t, "from-option", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:    LLMConfig{APIKey: "k"},
			Search: SearchConfig{Provider: "websearchapi"},
			Auth:   AuthConfig{SessionTTL: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.Search.Provider = "bing" }, wantErr: "SEARCH_PROVIDER"},
		{name: "negative rounds", mutate: func(c *Config) { c.Agent.MaxRounds = -1 }, wantErr: "AGENT_MAX_ROUNDS"},
		{name: "zero session ttl", mutate: func(c *Config) { c.Auth.SessionTTL = 0 }, wantErr: "SESSION_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPConfig_AllowedOrigins(t *testing.T) {
	cfg := HTTPConfig{BaseURL: "https://api.example.com/", FrontendURL: " https://app.example.com "}
	assert.Equal(t, []string{"https://api.example.com", "https://app.example.com", "http://localhost:3000"}, cfg.AllowedOrigins())

	assert.Equal(t, []string{"http://localhost:3000"}, HTTPConfig{}.AllowedOrigins())
}
