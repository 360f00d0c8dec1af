// Package pipeline composes invocation, extraction, normalization and length
// enforcement into a single structured generation call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/copyforge/copyforge/internal/extract"
	"github.com/copyforge/copyforge/internal/invoke"
	"github.com/copyforge/copyforge/internal/normalize"
	"github.com/copyforge/copyforge/internal/wordlimit"
)

// DefaultMaxAttempts is used when a request does not set MaxAttempts.
const DefaultMaxAttempts = 4

// ErrInvalidRequest is returned for requests that cannot be run.
var ErrInvalidRequest = errors.New("invalid generation request")

// ExpansionPrompt builds the prompt that asks for a longer version of a field.
type ExpansionPrompt func(originalPrompt, field, text string, minWords int) string

// Request describes one structured generation.
type Request struct {
	Prompt      string
	Schema      normalize.Schema
	Variants    []invoke.Variant
	MaxAttempts int
	// Windows maps Text field names to their word windows.
	Windows   map[string]wordlimit.Window
	Expansion ExpansionPrompt
	// Language selects extraction and normalization placeholders ("vi" or "en").
	Language string
	// Placeholder overrides the Text placeholder for missing fields.
	Placeholder string
}

// Output is a validated record plus how it was obtained.
type Output struct {
	Record    normalize.Record
	Method    extract.Method
	Variant   invoke.Variant
	Attempts  []invoke.Attempt
	ModelText string
}

// Config holds Generator dependencies.
type Config struct {
	Orchestrator *invoke.Orchestrator
	Logger       *slog.Logger
}

// Generator runs structured generations. It is safe for concurrent use.
type Generator struct {
	orch     *invoke.Orchestrator
	enforcer *wordlimit.Enforcer
	logger   *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		orch:     cfg.Orchestrator,
		enforcer: &wordlimit.Enforcer{Logger: logger},
		logger:   logger,
	}
}

// GenerateStructured invokes the model and returns a normalized record. On
// failure it returns the orchestrator's *invoke.ExhaustedError; when every
// response was unextractable that error wraps extract.ErrNoObjectFound.
func (g *Generator) GenerateStructured(ctx context.Context, req Request) (*Output, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", ErrInvalidRequest)
	}
	if len(req.Schema) == 0 {
		return nil, fmt.Errorf("%w: empty schema", ErrInvalidRequest)
	}
	if len(req.Variants) == 0 {
		return nil, fmt.Errorf("%w: no model variants", ErrInvalidRequest)
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	placeholders := extract.PlaceholdersFor(req.Language)
	orch := g.orch.WithAccept(func(text string) error {
		_, err := extract.Extract(text, placeholders)
		return err
	})

	res, err := orch.Invoke(invoke.WithResponseSchema(ctx, req.Schema.JSONSchema()), req.Prompt, req.Variants, maxAttempts)
	if err != nil {
		return nil, err
	}

	ext, err := extract.Extract(res.Text, placeholders)
	if err != nil {
		// Accept already vetted the text, so this only happens if extraction changed.
		return nil, fmt.Errorf("extract accepted response: %w", err)
	}
	g.logger.Info("structured output extracted",
		"variant", res.Variant.String(),
		"method", string(ext.Method),
		"attempts", len(res.Attempts))

	var nopts []normalize.Option
	if req.Placeholder != "" {
		nopts = append(nopts, normalize.WithPlaceholder(req.Placeholder))
	} else if req.Language != "" {
		nopts = append(nopts, normalize.WithPlaceholder(TextPlaceholder(req.Language)))
	}
	rec := normalize.Normalize(ext.Fields, req.Schema, nopts...)

	attempts := res.Attempts
	for _, name := range rec.Fields() {
		w, ok := req.Windows[name]
		if !ok {
			continue
		}
		v, _ := rec.Get(name)
		if v.Shape != normalize.Text {
			continue
		}
		expand := g.expander(req, maxAttempts, placeholders, &attempts)
		rec.SetText(name, g.enforcer.Enforce(ctx, v.Text, w, func(ctx context.Context, text string, minWords int) (string, error) {
			return expand(ctx, name, text, minWords)
		}))
	}

	return &Output{
		Record:    rec,
		Method:    ext.Method,
		Variant:   res.Variant,
		Attempts:  attempts,
		ModelText: res.Text,
	}, nil
}

func (g *Generator) expander(req Request, maxAttempts int, placeholders extract.Options, attempts *[]invoke.Attempt) func(ctx context.Context, field, text string, minWords int) (string, error) {
	build := req.Expansion
	if build == nil {
		build = DefaultExpansionPrompt
	}
	return func(ctx context.Context, field, text string, minWords int) (string, error) {
		res, err := g.orch.Invoke(ctx, build(req.Prompt, field, text, minWords), req.Variants, maxAttempts)
		if err != nil {
			var exhausted *invoke.ExhaustedError
			if errors.As(err, &exhausted) {
				*attempts = append(*attempts, exhausted.Attempts...)
			}
			return "", err
		}
		*attempts = append(*attempts, res.Attempts...)
		return unwrapEnvelope(res.Text, field, placeholders), nil
	}
}

// unwrapEnvelope returns the field's value when the model echoed a JSON object
// instead of plain text.
func unwrapEnvelope(text, field string, placeholders extract.Options) string {
	trimmed := strings.TrimSpace(text)
	if !strings.Contains(trimmed, "{") {
		return text
	}
	ext, err := extract.Extract(trimmed, placeholders)
	if err != nil {
		return text
	}
	key := field
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		key = field[i+1:]
	}
	for _, candidate := range []string{field, key} {
		if s, ok := ext.Fields[candidate].(string); ok && strings.TrimSpace(s) != "" {
			if ext.Method == extract.MethodRegexFallback &&
				(s == placeholders.TitlePlaceholder || s == placeholders.ContentPlaceholder) {
				continue
			}
			return s
		}
	}
	return text
}

// DefaultExpansionPrompt keeps the original request as context and asks for plain text.
func DefaultExpansionPrompt(originalPrompt, field, text string, minWords int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The %q text below is too short. Rewrite and expand it to at least %d words.\n", field, minWords)
	b.WriteString("Keep the same language, tone and facts. Return only the expanded text: no JSON, no markdown, no headings.\n\n")
	b.WriteString("Original request:\n")
	b.WriteString(originalPrompt)
	b.WriteString("\n\nText to expand:\n")
	b.WriteString(text)
	return b.String()
}

// TextPlaceholder is the localized placeholder for undetermined text fields.
func TextPlaceholder(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "vi", "vi-vn":
		return "Chưa xác định"
	default:
		return normalize.DefaultPlaceholder
	}
}
