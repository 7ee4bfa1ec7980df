package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dubkit/dubkit/executor"
	"github.com/dubkit/dubkit/ledger"
	"github.com/dubkit/dubkit/model"
	"github.com/dubkit/dubkit/provider"
)

// Duration is a time.Duration that unmarshals from strings like "90s" in
// TOML, YAML, and JSON files.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalText implements encoding.TextUnmarshaler. TOML and JSON both
// route string values through it.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler; the YAML decoder does not
// consult TextUnmarshaler on its own.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// ProviderSection configures the translation provider.
type ProviderSection struct {
	Name             string  `json:"name" yaml:"name" toml:"name"`
	Model            string  `json:"model" yaml:"model" toml:"model"`
	FollowUpModel    string  `json:"follow_up_model" yaml:"follow_up_model" toml:"follow_up_model"`
	FallbackProvider string  `json:"fallback_provider" yaml:"fallback_provider" toml:"fallback_provider"`
	TargetLang       string  `json:"target_lang" yaml:"target_lang" toml:"target_lang"`
	SystemPrompt     string  `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
	BaseURL          string  `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKeyEnv        string  `json:"api_key_env" yaml:"api_key_env" toml:"api_key_env"`
	Temperature      float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	MaxTokens        int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Timeout          Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
}

// BudgetSection sets the shared per-minute ceilings.
type BudgetSection struct {
	TokensPerMinute   int64 `json:"tokens_per_minute" yaml:"tokens_per_minute" toml:"tokens_per_minute"`
	RequestsPerMinute int64 `json:"requests_per_minute" yaml:"requests_per_minute" toml:"requests_per_minute"`
}

// RedisSection points the budget ledger at a shared Redis. An empty Addr
// selects the in-process store.
type RedisSection struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	Password  string `json:"password" yaml:"password" toml:"password"`
	DB        int    `json:"db" yaml:"db" toml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" toml:"key_prefix"`
}

// ExecutorSection configures failure handling and concurrency.
type ExecutorSection struct {
	Concurrency      int      `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	MaxAttempts      int      `json:"max_attempts" yaml:"max_attempts" toml:"max_attempts"`
	RequestTimeout   Duration `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	BudgetWait       Duration `json:"budget_wait" yaml:"budget_wait" toml:"budget_wait"`
	BudgetAttempts   int      `json:"budget_attempts" yaml:"budget_attempts" toml:"budget_attempts"`
	Missing          string   `json:"missing" yaml:"missing" toml:"missing"`
	Downgrade        bool     `json:"downgrade_follow_up" yaml:"downgrade_follow_up" toml:"downgrade_follow_up"`
	ProviderFallback bool     `json:"provider_fallback" yaml:"provider_fallback" toml:"provider_fallback"`
	RepartitionMin   int      `json:"repartition_min" yaml:"repartition_min" toml:"repartition_min"`
}

// PipelineSection configures windowing.
type PipelineSection struct {
	WindowSize     int `json:"window_size" yaml:"window_size" toml:"window_size"`
	MaxBatchTokens int `json:"max_batch_tokens" yaml:"max_batch_tokens" toml:"max_batch_tokens"`
	MaxBatchItems  int `json:"max_batch_items" yaml:"max_batch_items" toml:"max_batch_items"`
}

// Config is the full run configuration.
type Config struct {
	Provider ProviderSection `json:"provider" yaml:"provider" toml:"provider"`
	Budget   BudgetSection   `json:"budget" yaml:"budget" toml:"budget"`
	Redis    RedisSection    `json:"redis" yaml:"redis" toml:"redis"`
	Executor ExecutorSection `json:"executor" yaml:"executor" toml:"executor"`
	Pipeline PipelineSection `json:"pipeline" yaml:"pipeline" toml:"pipeline"`
	LogLevel string          `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Default returns the configuration used when a field is absent.
func Default() Config {
	return Config{
		Provider: ProviderSection{
			Name:       "openai",
			Model:      string(model.GPT41Mini),
			TargetLang: "english",
			Timeout:    Duration(2 * time.Minute),
		},
		Budget: BudgetSection{
			TokensPerMinute:   200_000,
			RequestsPerMinute: 500,
		},
		Executor: ExecutorSection{
			Concurrency:      executor.DefaultConcurrency,
			MaxAttempts:      4,
			RequestTimeout:   Duration(2 * time.Minute),
			BudgetWait:       Duration(5 * time.Second),
			BudgetAttempts:   12,
			Missing:          "fallback",
			Downgrade:        true,
			RepartitionMin:   2,
		},
		Pipeline: PipelineSection{
			WindowSize: 20,
		},
		LogLevel: "info",
	}
}

// Load reads the file at path over the defaults. The extension selects
// the decoder: .toml, .yaml, .yml, or .json.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("config: unsupported extension %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Provider.Name == "" {
		return fmt.Errorf("config: provider.name is required")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("config: provider.temperature %f out of [0, 2]", c.Provider.Temperature)
	}
	if c.Budget.TokensPerMinute < 0 || c.Budget.RequestsPerMinute < 0 {
		return fmt.Errorf("config: budget ceilings must be >= 0")
	}
	switch c.Executor.Missing {
	case "strict", "fallback":
	default:
		return fmt.Errorf("config: executor.missing must be \"strict\" or \"fallback\", got %q", c.Executor.Missing)
	}
	if c.Executor.Concurrency < 0 {
		return fmt.Errorf("config: executor.concurrency must be >= 0")
	}
	if c.Pipeline.WindowSize <= 0 {
		return fmt.Errorf("config: pipeline.window_size must be > 0")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// ProviderConfig converts the provider section for provider.New.
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		Provider:         c.Provider.Name,
		Model:            c.Provider.Model,
		FollowUpModel:    c.Provider.FollowUpModel,
		FallbackProvider: c.Provider.FallbackProvider,
		TargetLang:       c.Provider.TargetLang,
		SystemPrompt:     c.Provider.SystemPrompt,
		BaseURL:          c.Provider.BaseURL,
		APIKeyEnv:        c.Provider.APIKeyEnv,
		Temperature:      c.Provider.Temperature,
		MaxTokens:        c.Provider.MaxTokens,
		Timeout:          c.Provider.Timeout.Std(),
	}
}

// Limits converts the budget section for the ledger.
func (c *Config) Limits() ledger.Limits {
	return ledger.Limits{
		TokensPerMinute:   c.Budget.TokensPerMinute,
		RequestsPerMinute: c.Budget.RequestsPerMinute,
	}
}

// Policy converts the executor section.
func (c *Config) Policy() executor.Policy {
	p := executor.Policy{
		MaxAttempts:      c.Executor.MaxAttempts,
		RequestTimeout:   c.Executor.RequestTimeout.Std(),
		BudgetWait:       c.Executor.BudgetWait.Std(),
		BudgetAttempts:   c.Executor.BudgetAttempts,
		ProviderFallback: c.Executor.ProviderFallback,
		RepartitionMin:   c.Executor.RepartitionMin,
	}
	if c.Executor.Missing == "strict" {
		p.Missing = executor.MissingStrict
	} else {
		p.Missing = executor.MissingFallback
	}
	if c.Executor.Downgrade {
		p.Downgrade = model.DefaultDowngrade
	} else {
		p.Downgrade = model.NoDowngrade
	}
	return p
}

// SlogLevel maps the configured log level for slog handlers.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
