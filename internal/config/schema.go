package config

import (
	"log/slog"
	"time"

	"github.com/copyforge/copyforge/internal/invoke"
	"github.com/copyforge/copyforge/internal/marketing"
	"github.com/copyforge/copyforge/internal/wordlimit"
)

// Config holds copyforge configuration.
// Stored at: ~/.copyforge/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers" json:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults" json:"defaults"`
	Pipeline     PipelineCfg               `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server" json:"server"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type" json:"type"`                   // "gemini", "openai", "openrouter", "mock"
	Model     string `mapstructure:"model" yaml:"model" json:"model"`                // Default model name
	APIKey    string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`          // API key (supports ${ENV_VAR} syntax)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`       // Optional endpoint override
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"` // Requests per minute
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider" json:"llm_provider"` // Serves bare model ids
	CallHistory int    `mapstructure:"call_history" yaml:"call_history" json:"call_history"` // Recorded LLM calls kept in memory
}

// PipelineCfg tunes the structured generation pipeline.
type PipelineCfg struct {
	MaxAttempts       int                         `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	RetriesPerVariant int                         `mapstructure:"retries_per_variant" yaml:"retries_per_variant" json:"retries_per_variant"`
	BackoffBase       time.Duration               `mapstructure:"backoff_base" yaml:"backoff_base" json:"backoff_base"`
	BackoffCap        time.Duration               `mapstructure:"backoff_cap" yaml:"backoff_cap" json:"backoff_cap"`
	MaxJitter         time.Duration               `mapstructure:"max_jitter" yaml:"max_jitter" json:"max_jitter"`
	RequestTimeout    time.Duration               `mapstructure:"request_timeout" yaml:"request_timeout" json:"request_timeout"`
	Language          string                      `mapstructure:"language" yaml:"language" json:"language"`
	Variants          marketing.Variants          `mapstructure:"variants" yaml:"variants" json:"variants"`
	Windows           map[string]wordlimit.Window `mapstructure:"windows" yaml:"windows" json:"windows"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host        string `mapstructure:"host" yaml:"host" json:"host"`
	Port        string `mapstructure:"port" yaml:"port" json:"port"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// OrchestratorOptions converts the pipeline section into orchestrator options.
func (c *Config) OrchestratorOptions(logger *slog.Logger) invoke.Options {
	retries := c.Pipeline.RetriesPerVariant
	if retries == 0 {
		// A zero in Options selects the default; config defaults are already applied.
		retries = -1
	}
	return invoke.Options{
		RetriesPerVariant: retries,
		BackoffBase:       c.Pipeline.BackoffBase,
		BackoffCap:        c.Pipeline.BackoffCap,
		MaxJitter:         c.Pipeline.MaxJitter,
		Logger:            logger,
	}
}
