package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Provider types accepted in configuration.
const (
	TypeGemini     = "gemini"
	TypeOpenAI     = "openai"
	TypeOpenRouter = "openrouter"
	TypeMock       = "mock"
)

// Registry holds named LLM clients and their rate limiters.
// It supports config-driven instantiation and hot reload, and is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]LLMClient
	configs  map[string]LLMProviderConfig
	limiters map[string]*RateLimiter
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:  make(map[string]LLMClient),
		configs:  make(map[string]LLMProviderConfig),
		limiters: make(map[string]*RateLimiter),
		logger:   slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logger != nil {
		r.logger = logger
	}
}

// Register adds a client by name with the default rate limit.
func (r *Registry) Register(name string, client LLMClient) {
	r.RegisterWithLimit(name, client, DefaultRequestsPerMinute)
}

// RegisterWithLimit adds a client by name with its own rate limiter.
func (r *Registry) RegisterWithLimit(name string, client LLMClient, requestsPerMinute int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.limiters[name] = NewRateLimiter(requestsPerMinute)
	delete(r.configs, name)
	r.logger.Info("registered LLM client", "name", name, "type", client.Name())
}

// Unregister removes a client by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(name)
}

func (r *Registry) remove(name string) {
	delete(r.clients, name)
	delete(r.configs, name)
	delete(r.limiters, name)
	r.logger.Info("unregistered LLM client", "name", name)
}

// Get returns a client by name.
func (r *Registry) Get(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// Limiter returns the rate limiter for name, or nil.
func (r *Registry) Limiter(name string) *RateLimiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}

// Has checks if a client is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[name]
	return ok
}

// List returns registered client names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status reports each provider's limiter state.
func (r *Registry) Status() map[string]RateLimiterStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]RateLimiterStatus, len(r.limiters))
	for name, l := range r.limiters {
		out[name] = l.Status()
	}
	return out
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with the API key resolved.
type LLMProviderConfig struct {
	Type      string // "gemini", "openai", "openrouter", "mock"
	Model     string // Default model
	APIKey    string
	BaseURL   string
	RateLimit int // Requests per minute
	Enabled   bool
}

func (c LLMProviderConfig) usable() bool {
	if !c.Enabled {
		return false
	}
	return c.Type == TypeMock || c.APIKey != ""
}

// NewRegistryFromConfig creates a registry with the enabled providers in cfg.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.SetLogger(logger)
	r.Reload(cfg)
	return r
}

// Reload reconciles the registry with cfg. Providers no longer configured are
// removed; providers whose settings changed are rebuilt; untouched providers
// keep their client and limiter state.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool, len(cfg.LLMProviders))
	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.usable() {
			continue
		}
		want[name] = true

		existing, ok := r.configs[name]
		if ok && existing == provCfg {
			continue
		}
		client := createLLMClient(provCfg)
		if client == nil {
			r.logger.Warn("unknown LLM provider type", "name", name, "type", provCfg.Type)
			delete(want, name)
			continue
		}
		r.clients[name] = client
		r.configs[name] = provCfg
		r.limiters[name] = NewRateLimiter(provCfg.RateLimit)
		if ok {
			r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
		}
	}

	for name := range r.clients {
		if !want[name] {
			r.remove(name)
		}
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case TypeGemini:
		return NewGeminiClient(GeminiConfig{APIKey: cfg.APIKey, DefaultModel: cfg.Model, BaseURL: cfg.BaseURL})
	case TypeOpenAI:
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, DefaultModel: cfg.Model, BaseURL: cfg.BaseURL})
	case TypeOpenRouter:
		return NewOpenRouterClient(OpenRouterConfig{APIKey: cfg.APIKey, DefaultModel: cfg.Model, BaseURL: cfg.BaseURL})
	case TypeMock:
		return NewMockClient()
	default:
		return nil
	}
}
