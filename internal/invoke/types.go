// Package invoke drives a single "generate text for this prompt" request through an
// ordered list of model variants with bounded retries, exponential backoff and jitter.
//
// The orchestrator never constructs model clients. It consumes a ModelCaller and
// returns either the first usable raw text or an *ExhaustedError carrying the last
// observed failure.
package invoke

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ModelCaller is the one capability the pipeline needs from its environment.
type ModelCaller interface {
	CallModel(ctx context.Context, modelID string, advanced bool, prompt string) (string, error)
}

// CallerFunc adapts a function to ModelCaller.
type CallerFunc func(ctx context.Context, modelID string, advanced bool, prompt string) (string, error)

// CallModel calls f.
func (f CallerFunc) CallModel(ctx context.Context, modelID string, advanced bool, prompt string) (string, error) {
	return f(ctx, modelID, advanced, prompt)
}

type responseSchemaKey struct{}

// WithResponseSchema attaches the JSON Schema the caller expects the reply to
// follow. ModelCallers may forward it to backends that support structured output.
func WithResponseSchema(ctx context.Context, schema json.RawMessage) context.Context {
	if len(schema) == 0 {
		return ctx
	}
	return context.WithValue(ctx, responseSchemaKey{}, schema)
}

// ResponseSchema returns the schema attached by WithResponseSchema, or nil.
func ResponseSchema(ctx context.Context) json.RawMessage {
	schema, _ := ctx.Value(responseSchemaKey{}).(json.RawMessage)
	return schema
}

// Variant is one (model, configuration) pair the orchestrator may try.
type Variant struct {
	ModelID  string `json:"model" mapstructure:"model" yaml:"model"`
	Advanced bool   `json:"advanced" mapstructure:"advanced" yaml:"advanced"`
}

func (v Variant) String() string {
	if v.Advanced {
		return v.ModelID + "+advanced"
	}
	return v.ModelID
}

// Outcome classifies a single call.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransient
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Attempt records one call. Attempts live only for the duration of Invoke.
type Attempt struct {
	Variant   Variant       `json:"variant"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcome   Outcome       `json:"outcome"`
	Text      string        `json:"-"`
	Err       error         `json:"-"`
}

// Result is the successful return of Invoke.
type Result struct {
	Text     string
	Variant  Variant
	Attempts []Attempt
}

// ExhaustedError is returned when every variant has been tried without success.
type ExhaustedError struct {
	LastReason error
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	variants := make(map[Variant]struct{}, len(e.Attempts))
	for _, a := range e.Attempts {
		variants[a.Variant] = struct{}{}
	}
	return fmt.Sprintf("model variants exhausted (%d variants, %d attempts): %v",
		len(variants), len(e.Attempts), e.LastReason)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastReason
}

// Transient reports whether the terminal attempt failed transiently, which callers
// surface as "service overloaded" rather than a generic failure.
func (e *ExhaustedError) Transient() bool {
	if len(e.Attempts) == 0 {
		return false
	}
	return e.Attempts[len(e.Attempts)-1].Outcome == OutcomeTransient
}

// Timer abstracts waiting so tests can observe backoff without sleeping.
type Timer interface {
	After(d time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
