package llmcall

import (
	"log/slog"

	"github.com/copyforge/copyforge/internal/providers"
)

// Recorder turns provider results into stored calls.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

// NewRecorder creates a recorder writing to store. A nil store disables recording.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Store returns the underlying store.
func (r *Recorder) Store() *Store {
	return r.store
}

// RecordChat implements providers.CallRecorder.
func (r *Recorder) RecordChat(result *providers.ChatResult, advanced bool, promptChars int, err error) {
	if r == nil || r.store == nil {
		return
	}
	call := FromChatResult(result, RecordOptions{Advanced: advanced, PromptChars: promptChars, Err: err})
	if call == nil {
		return
	}
	r.store.Add(call)
	r.logger.Debug("recorded llm call",
		"id", call.ID,
		"provider", call.Provider,
		"model", call.Model,
		"latency_ms", call.LatencyMs,
		"success", call.Success)
}

var _ providers.CallRecorder = (*Recorder)(nil)
