// Package llmcall provides LLM call recording and querying for traceability.
// Every outbound model call is recorded with its response and metrics.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/copyforge/copyforge/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	Provider string `json:"provider"`
	Model    string `json:"model"`
	Advanced bool   `json:"advanced"`

	// PromptChars is the prompt length; prompts themselves are not retained.
	PromptChars  int `json:"prompt_chars"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	Response string `json:"response"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides request context that the result does not carry.
type RecordOptions struct {
	Advanced    bool
	PromptChars int
	// Err is the error returned alongside the result, if any.
	Err error
}

// FromChatResult creates a Call from a ChatResult. Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(result.ExecutionTime.Milliseconds()),
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		Advanced:     opts.Advanced,
		PromptChars:  opts.PromptChars,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		Response:     result.Content,
		Success:      result.Success && opts.Err == nil,
	}
	switch {
	case opts.Err != nil:
		call.Error = opts.Err.Error()
	case !result.Success:
		call.Error = result.ErrorMessage
	}
	return call
}
