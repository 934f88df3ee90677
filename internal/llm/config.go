package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string `mapstructure:"provider"`

	Anthropic  AnthropicConfig      `mapstructure:"anthropic"`
	OpenAI     OpenAIConfig         `mapstructure:"openai"`
	Gemini     GeminiConfig         `mapstructure:"gemini"`
	OpenRouter OpenRouterConfig     `mapstructure:"openrouter"`
	Retry      RetryConfig          `mapstructure:"retry"`
	Breaker    CircuitBreakerConfig `mapstructure:"breaker"`

	// Timeout bounds a single Generate call including retries.
	Timeout time.Duration `mapstructure:"timeout"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// RetryConfig configures retry behavior for transient failures.
// MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// CircuitBreakerConfig configures the provider circuit breaker.
// FailureThreshold of 0 disables the breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// A failed lesson call surfaces to the learner as a single error they can
// retry themselves, so automatic retries are off by default.
func DefaultConfig() Config {
	return Config{
		Provider:   "anthropic",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.5-flash"},
		Retry: RetryConfig{
			MaxAttempts: 1,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Breaker: CircuitBreakerConfig{
			FailureThreshold: 3,
			OpenTimeout:      30 * time.Second,
		},
		Timeout: 45 * time.Second,
	}
}

// ConfigFromEnv builds a Config from LINGUA_* environment variables,
// falling back to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	setFromEnv(&cfg.Provider, "LINGUA_LLM_PROVIDER")

	setFromEnv(&cfg.Anthropic.APIKey, "LINGUA_ANTHROPIC_API_KEY")
	setFromEnv(&cfg.Anthropic.Model, "LINGUA_ANTHROPIC_MODEL")

	setFromEnv(&cfg.OpenAI.APIKey, "LINGUA_OPENAI_API_KEY")
	setFromEnv(&cfg.OpenAI.Model, "LINGUA_OPENAI_MODEL")
	setFromEnv(&cfg.OpenAI.BaseURL, "LINGUA_OPENAI_BASE_URL")

	setFromEnv(&cfg.Gemini.APIKey, "LINGUA_GEMINI_API_KEY")
	setFromEnv(&cfg.Gemini.Model, "LINGUA_GEMINI_MODEL")

	setFromEnv(&cfg.OpenRouter.APIKey, "LINGUA_OPENROUTER_API_KEY")
	setFromEnv(&cfg.OpenRouter.Model, "LINGUA_OPENROUTER_MODEL")

	return cfg
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DiscoverConfig probes the vendors' standard API key env vars in priority
// order (Gemini, OpenAI, Anthropic, OpenRouter) and returns a Config for
// the first provider whose key is found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// HasKey reports whether the selected provider has an API key configured.
func (c Config) HasKey() bool {
	switch c.Provider {
	case "anthropic":
		return c.Anthropic.APIKey != ""
	case "openai":
		return c.OpenAI.APIKey != ""
	case "gemini":
		return c.Gemini.APIKey != ""
	case "openrouter":
		return c.OpenRouter.APIKey != ""
	case "mock":
		return true
	}
	return false
}

// Validate checks that the selected provider is known and has its API key.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai", "gemini", "openrouter":
		if !c.HasKey() {
			return fmt.Errorf("an API key is required for the %s provider (set llm.%s.api_key or LINGUA_%s_API_KEY)",
				c.Provider, c.Provider, strings.ToUpper(c.Provider))
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
