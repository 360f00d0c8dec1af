package providers

import (
	"os"
)

// TestConfig holds provider API keys loaded from environment variables so
// live tests can build the same registry production does.
type TestConfig struct {
	GeminiAPIKey     string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
}

// LoadTestConfig loads provider API keys from environment variables.
func LoadTestConfig() TestConfig {
	return TestConfig{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
	}
}

// HasAnyLLM returns true if at least one live provider is configured.
func (c TestConfig) HasAnyLLM() bool {
	return c.GeminiAPIKey != "" || c.OpenAIAPIKey != "" || c.OpenRouterAPIKey != ""
}

// ToRegistryConfig converts the keys into a RegistryConfig. Providers without
// a key are left out.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{LLMProviders: make(map[string]LLMProviderConfig)}
	if c.GeminiAPIKey != "" {
		cfg.LLMProviders[TypeGemini] = LLMProviderConfig{Type: TypeGemini, APIKey: c.GeminiAPIKey, RateLimit: 30, Enabled: true}
	}
	if c.OpenAIAPIKey != "" {
		cfg.LLMProviders[TypeOpenAI] = LLMProviderConfig{Type: TypeOpenAI, APIKey: c.OpenAIAPIKey, RateLimit: 60, Enabled: true}
	}
	if c.OpenRouterAPIKey != "" {
		cfg.LLMProviders[TypeOpenRouter] = LLMProviderConfig{Type: TypeOpenRouter, APIKey: c.OpenRouterAPIKey, RateLimit: 60, Enabled: true}
	}
	return cfg
}
