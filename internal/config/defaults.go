package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/copyforge/copyforge/internal/invoke"
	"github.com/copyforge/copyforge/internal/marketing"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// Entry is a single flat configuration key with its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// DefaultEntries returns the default configuration entries.
// These are registered as viper defaults, so every key can be
// overridden by the config file or a COPYFORGE_ environment variable.
func DefaultEntries() []Entry {
	entries := []Entry{
		// ===================
		// LLM Providers
		// ===================

		// Gemini
		{
			Key:         "llm_providers.gemini.type",
			Value:       "gemini",
			Description: "LLM provider type for Gemini",
		},
		{
			Key:         "llm_providers.gemini.model",
			Value:       "gemini-2.5-flash",
			Description: "Default model for Gemini",
		},
		{
			Key:         "llm_providers.gemini.api_key",
			Value:       "${GEMINI_API_KEY}",
			Description: "Gemini API key (uses environment variable)",
		},
		{
			Key:         "llm_providers.gemini.rate_limit",
			Value:       60,
			Description: "Requests per minute for Gemini",
		},
		{
			Key:         "llm_providers.gemini.enabled",
			Value:       true,
			Description: "Whether the Gemini provider is enabled",
		},

		// OpenAI
		{
			Key:         "llm_providers.openai.type",
			Value:       "openai",
			Description: "LLM provider type for OpenAI",
		},
		{
			Key:         "llm_providers.openai.model",
			Value:       "gpt-4o-mini",
			Description: "Default model for OpenAI",
		},
		{
			Key:         "llm_providers.openai.api_key",
			Value:       "${OPENAI_API_KEY}",
			Description: "OpenAI API key (uses environment variable)",
		},
		{
			Key:         "llm_providers.openai.rate_limit",
			Value:       60,
			Description: "Requests per minute for OpenAI",
		},
		{
			Key:         "llm_providers.openai.enabled",
			Value:       false,
			Description: "Whether the OpenAI provider is enabled",
		},

		// OpenRouter
		{
			Key:         "llm_providers.openrouter.type",
			Value:       "openrouter",
			Description: "LLM provider type for OpenRouter",
		},
		{
			Key:         "llm_providers.openrouter.model",
			Value:       "google/gemini-2.5-flash",
			Description: "Default model for OpenRouter",
		},
		{
			Key:         "llm_providers.openrouter.api_key",
			Value:       "${OPENROUTER_API_KEY}",
			Description: "OpenRouter API key (uses environment variable)",
		},
		{
			Key:         "llm_providers.openrouter.rate_limit",
			Value:       120,
			Description: "Requests per minute for OpenRouter",
		},
		{
			Key:         "llm_providers.openrouter.enabled",
			Value:       false,
			Description: "Whether the OpenRouter provider is enabled",
		},

		// ===================
		// Defaults
		// ===================
		{
			Key:         "defaults.llm_provider",
			Value:       "gemini",
			Description: "Provider serving model ids without a provider/ prefix",
		},
		{
			Key:         "defaults.call_history",
			Value:       500,
			Description: "Number of recorded LLM calls kept in memory",
		},

		// ===================
		// Pipeline
		// ===================
		{
			Key:         "pipeline.max_attempts",
			Value:       4,
			Description: "Total model calls allowed per generation",
		},
		{
			Key:         "pipeline.retries_per_variant",
			Value:       1,
			Description: "Transient retries on one variant before advancing (0 disables)",
		},
		{
			Key:         "pipeline.backoff_base",
			Value:       "1s",
			Description: "Base delay of the exponential backoff",
		},
		{
			Key:         "pipeline.backoff_cap",
			Value:       "8s",
			Description: "Upper bound of a single backoff delay",
		},
		{
			Key:         "pipeline.max_jitter",
			Value:       "500ms",
			Description: "Random jitter added to each backoff delay",
		},
		{
			Key:         "pipeline.request_timeout",
			Value:       "180s",
			Description: "Deadline for a whole generation request",
		},
		{
			Key:         "pipeline.language",
			Value:       marketing.DefaultLanguage,
			Description: "Output language code for generated text",
		},

		// ===================
		// Server
		// ===================
		{
			Key:         "server.host",
			Value:       "127.0.0.1",
			Description: "Address the HTTP server binds to",
		},
		{
			Key:         "server.port",
			Value:       "8080",
			Description: "Port the HTTP server listens on",
		},
		{
			Key:         "server.max_upload_mb",
			Value:       20,
			Description: "Largest accepted document upload in megabytes",
		},
	}

	return append(entries, pipelineEntries()...)
}

// pipelineEntries derives the variant and window defaults from the
// marketing package so the two never drift.
func pipelineEntries() []Entry {
	variants := marketing.DefaultVariants()
	var entries []Entry
	for _, uc := range []struct {
		name string
		list []any
	}{
		{"analysis", variantValues(variants.Analysis)},
		{"content", variantValues(variants.Content)},
		{"competitor", variantValues(variants.Competitor)},
		{"document", variantValues(variants.Document)},
	} {
		entries = append(entries, Entry{
			Key:         "pipeline.variants." + uc.name,
			Value:       uc.list,
			Description: fmt.Sprintf("Ordered model variants for %s", uc.name),
		})
	}

	windows := marketing.DefaultWindows()
	keys := make([]string, 0, len(windows))
	for k := range windows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w := windows[k]
		entries = append(entries,
			Entry{
				Key:         "pipeline.windows." + k + ".min_words",
				Value:       w.MinWords,
				Description: fmt.Sprintf("Minimum words for %s", k),
			},
			Entry{
				Key:         "pipeline.windows." + k + ".max_words",
				Value:       w.MaxWords,
				Description: fmt.Sprintf("Maximum words for %s", k),
			},
		)
	}
	return entries
}

func variantValues(list []invoke.Variant) []any {
	out := make([]any, 0, len(list))
	for _, v := range list {
		out = append(out, map[string]any{"model": v.ModelID, "advanced": v.Advanced})
	}
	return out
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// DefaultValue returns the default value for a key or ErrNoDefault.
func DefaultValue(key string) (any, error) {
	def := GetDefault(key)
	if def == nil {
		return nil, fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	return def.Value, nil
}

// setDefaults registers every default entry on v.
func setDefaults(v *viper.Viper) {
	for _, entry := range DefaultEntries() {
		v.SetDefault(entry.Key, entry.Value)
	}
}

// DefaultConfig returns the configuration built from DefaultEntries alone.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		// Defaults are static; a decode failure is a programming error.
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}
