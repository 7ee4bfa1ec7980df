package provider

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for creating a translation provider client.
// Common fields apply to all providers; use Options for provider-specific
// settings.
type Config struct {
	// Provider is the name of the provider to use.
	// Required when constructing via the registry.
	Provider string `json:"provider" yaml:"provider" toml:"provider"`

	// Model is the model to use (provider-specific name).
	// Examples: "gpt-4.1", "gpt-4.1-mini"
	Model string `json:"model" yaml:"model" toml:"model"`

	// FollowUpModel serves follow-up calls for missing translations.
	// Optional; empty reuses Model.
	FollowUpModel string `json:"follow_up_model" yaml:"follow_up_model" toml:"follow_up_model"`

	// FallbackProvider is tried once when the primary provider fails a
	// batch outright. Optional.
	FallbackProvider string `json:"fallback_provider" yaml:"fallback_provider" toml:"fallback_provider"`

	// SystemPrompt overrides the built-in translation instruction.
	// Optional.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`

	// TargetLang is the translation target language ("es", "french").
	// Used to build the default system instruction when SystemPrompt is
	// empty.
	TargetLang string `json:"target_lang" yaml:"target_lang" toml:"target_lang"`

	// BaseURL overrides the provider's API endpoint. Optional.
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	// Default is provider-specific ("OPENAI_API_KEY").
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env" toml:"api_key_env"`

	// APIKey is the literal API key. Takes precedence over APIKeyEnv.
	// Prefer APIKeyEnv so keys stay out of config files.
	APIKey string `json:"-" yaml:"-" toml:"-"`

	// Timeout is the maximum duration for a single translation call.
	// 0 uses the provider default.
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`

	// Temperature controls sampling randomness. Translation wants low
	// values; 0 uses the provider default.
	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature"`

	// MaxTokens caps reply length per call. 0 leaves it to the provider.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`

	// Options holds provider-specific configuration.
	Options map[string]any `json:"options" yaml:"options" toml:"options"`
}

// DefaultConfig returns a Config with sensible defaults.
// Provider must still be set before use with the registry.
func DefaultConfig() Config {
	return Config{
		TargetLang: "english",
		Timeout:    2 * time.Minute,
	}
}

// LoadFromEnv populates config fields from environment variables.
// Variables use the DUBKIT_ prefix and take precedence over existing values.
//
// Supported variables:
//   - DUBKIT_PROVIDER: Provider name
//   - DUBKIT_MODEL: Model name
//   - DUBKIT_FOLLOW_UP_MODEL: Follow-up model name
//   - DUBKIT_TARGET_LANG: Target language
//   - DUBKIT_BASE_URL: API endpoint override
//   - DUBKIT_TIMEOUT: Call timeout (e.g., "2m")
//   - DUBKIT_TEMPERATURE: Sampling temperature
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("DUBKIT_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("DUBKIT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("DUBKIT_FOLLOW_UP_MODEL"); v != "" {
		c.FollowUpModel = v
	}
	if v := os.Getenv("DUBKIT_TARGET_LANG"); v != "" {
		c.TargetLang = v
	}
	if v := os.Getenv("DUBKIT_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("DUBKIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("DUBKIT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = f
		}
	}
}

// FromEnv creates a Config from environment variables with defaults.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %f", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be >= 0, got %d", c.MaxTokens)
	}
	return nil
}

// System returns the system instruction for this config, building the
// default translation instruction when no override is set.
func (c Config) System() string {
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	return SystemInstruction(c.TargetLang)
}

// ResolveAPIKey returns the API key, consulting APIKeyEnv (falling back to
// defaultEnv) when no literal key is set.
func (c Config) ResolveAPIKey(defaultEnv string) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	env := c.APIKeyEnv
	if env == "" {
		env = defaultEnv
	}
	return os.Getenv(env)
}

// WithProvider returns a copy of the config with the specified provider.
func (c Config) WithProvider(provider string) Config {
	c.Provider = provider
	return c
}

// WithModel returns a copy of the config with the specified model.
func (c Config) WithModel(model string) Config {
	c.Model = model
	return c
}

// GetStringOption retrieves a string option, returning defaultVal if not set.
func (c Config) GetStringOption(key, defaultVal string) string {
	if c.Options == nil {
		return defaultVal
	}
	if v, ok := c.Options[key].(string); ok {
		return v
	}
	return defaultVal
}

// GetBoolOption retrieves a bool option, returning defaultVal if not set.
func (c Config) GetBoolOption(key string, defaultVal bool) bool {
	if c.Options == nil {
		return defaultVal
	}
	if v, ok := c.Options[key].(bool); ok {
		return v
	}
	return defaultVal
}
