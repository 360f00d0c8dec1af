package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/copyforge/copyforge/internal/invoke"
)

// ErrNoProvider is returned when a model id names no registered provider.
var ErrNoProvider = errors.New("no LLM provider available")

// CallRecorder receives every completed provider call.
type CallRecorder interface {
	RecordChat(result *ChatResult, advanced bool, promptChars int, err error)
}

// CallerConfig configures a Caller.
type CallerConfig struct {
	Registry *Registry
	// DefaultProvider serves model ids without a "provider:" prefix.
	DefaultProvider string
	Recorder        CallRecorder
	Logger          *slog.Logger
}

// Caller routes model ids to registered clients. Model ids take the form
// "provider:model" or a bare model name served by the default provider.
type Caller struct {
	registry *Registry
	recorder CallRecorder
	logger   *slog.Logger

	mu              sync.RWMutex
	defaultProvider string
}

// NewCaller creates a Caller.
func NewCaller(cfg CallerConfig) *Caller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{
		registry:        cfg.Registry,
		defaultProvider: cfg.DefaultProvider,
		recorder:        cfg.Recorder,
		logger:          logger,
	}
}

// SetDefaultProvider changes the provider serving bare model ids.
func (c *Caller) SetDefaultProvider(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultProvider = name
}

// Resolve splits modelID into a provider name and a model name.
func (c *Caller) Resolve(modelID string) (provider, model string) {
	if i := strings.IndexByte(modelID, ':'); i > 0 {
		if p := modelID[:i]; c.registry.Has(p) {
			return p, modelID[i+1:]
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultProvider, modelID
}

// CallModel sends prompt to the resolved client and returns its text.
func (c *Caller) CallModel(ctx context.Context, modelID string, advanced bool, prompt string) (string, error) {
	providerName, model := c.Resolve(modelID)
	if providerName == "" {
		return "", fmt.Errorf("%w for model %q", ErrNoProvider, modelID)
	}
	client, err := c.registry.Get(providerName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoProvider, err)
	}

	if limiter := c.registry.Limiter(providerName); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req := UserPrompt(model, prompt, advanced)
	if schema := invoke.ResponseSchema(ctx); schema != nil && !advanced {
		req.ResponseFormat = &ResponseFormat{Type: "json_schema", JSONSchema: schemaEnvelope(schema)}
	}

	result, err := client.Chat(ctx, req)
	if result == nil {
		result = &ChatResult{Provider: client.Name(), ModelUsed: model}
		if err != nil {
			result.ErrorMessage = err.Error()
		}
	}
	if err == nil {
		c.checkStructured(req, result)
	}
	if c.recorder != nil {
		c.recorder.RecordChat(result, advanced, len(prompt), err)
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RateLimited() {
			if limiter := c.registry.Limiter(providerName); limiter != nil {
				limiter.RecordRateLimited()
			}
		}
		c.logger.Debug("provider call failed", "provider", providerName, "model", model, "error", err)
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("%s: %s", providerName, result.ErrorMessage)
	}
	if result.ParsedJSON != nil {
		return string(result.ParsedJSON), nil
	}
	return result.Content, nil
}

// checkStructured sets result.ParsedJSON when the reply conforms to the
// requested schema. Non-conforming replies are left for extraction to recover.
func (c *Caller) checkStructured(req *ChatRequest, result *ChatResult) {
	if req.ResponseFormat == nil || len(req.ResponseFormat.JSONSchema) == 0 || !result.Success {
		return
	}
	parsed, err := parseStructuredJSON(result.Content)
	if err == nil {
		err = validateStructuredJSON(req.ResponseFormat.JSONSchema, parsed)
	}
	if err != nil {
		c.logger.Debug("reply does not match response schema", "provider", result.Provider, "model", result.ModelUsed, "error", err)
		return
	}
	result.ParsedJSON = parsed
}
