// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	FrontendURL string `envconfig:"FRONTEND_URL"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// PortfolioContextPath points at a YAML portfolio document. Empty uses the embedded one.
	PortfolioContextPath string `envconfig:"PORTFOLIO_CONTEXT_PATH"`

	MaxRequestBodySize int64 `envconfig:"MAX_REQUEST_BODY_SIZE" default:"65536"`

	Provider  ProviderConfig
	Chat      ChatConfig
	Quota     QuotaConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// ProviderConfig describes the hosted LLM completion endpoint.
type ProviderConfig struct {
	// KeyEnv names the environment variable holding the provider credential.
	// The credential itself is read on every request, never stored here.
	KeyEnv          string        `envconfig:"PROVIDER_KEY_ENV" default:"OPENROUTER_API_KEY"`
	BaseURL         string        `envconfig:"PROVIDER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	Model           string        `envconfig:"PROVIDER_MODEL" default:"z-ai/glm-4.5-air:free"`
	Referer         string        `envconfig:"PROVIDER_REFERER" default:"https://mazleon.com"`
	Title           string        `envconfig:"PROVIDER_TITLE" default:"Leon Portfolio Chatbot"`
	Timeout         time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"20s"`
	BreakerFailures uint32        `envconfig:"PROVIDER_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"PROVIDER_BREAKER_TIMEOUT" default:"30s"`
}

// ChatConfig holds the product constants of the chat widget.
type ChatConfig struct {
	MaxTokens    int     `envconfig:"CHAT_MAX_TOKENS" default:"200"`
	Temperature  float32 `envconfig:"CHAT_TEMPERATURE" default:"0.7"`
	MaxUserTurns int     `envconfig:"CHAT_MAX_USER_TURNS" default:"10"`
}

// QuotaConfig controls server-side enforcement of the per-session turn cap.
type QuotaConfig struct {
	Enforce    bool          `envconfig:"QUOTA_ENFORCE" default:"false"`
	Store      string        `envconfig:"QUOTA_STORE" default:"memory"`
	DBPath     string        `envconfig:"DB_PATH" default:"./data/sessions.db"`
	SessionDir string        `envconfig:"SESSION_DIR" default:"./data/sessions"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

// RedisConfig is used when QUOTA_STORE=redis.
type RedisConfig struct {
	URL          string `split_words:"true"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
}

// RateLimitConfig bounds relay requests per client IP.
type RateLimitConfig struct {
	RequestsPerWindow int           `envconfig:"RATE_LIMIT_REQUESTS" default:"20"`
	WindowDuration    time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Provider.KeyEnv == "" {
		return fmt.Errorf("PROVIDER_KEY_ENV cannot be empty")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("PROVIDER_BASE_URL cannot be empty")
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("PROVIDER_MODEL cannot be empty")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	if c.Chat.MaxTokens <= 0 {
		return fmt.Errorf("CHAT_MAX_TOKENS must be > 0")
	}
	if c.Chat.MaxUserTurns <= 0 {
		return fmt.Errorf("CHAT_MAX_USER_TURNS must be > 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	switch c.Quota.Store {
	case "memory", "file", "sqlite":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when QUOTA_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown QUOTA_STORE %q", c.Quota.Store)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// ProviderKey reads the provider credential from the process environment.
// It is looked up on each call so a rotated secret takes effect without a restart.
func (c *Config) ProviderKey() string {
	return strings.TrimSpace(os.Getenv(c.Provider.KeyEnv))
}
