// Package marketing implements the product analysis and copywriting use
// cases on top of the structured generation pipeline.
package marketing

import (
	"errors"
	"log/slog"

	"github.com/copyforge/copyforge/internal/invoke"
	"github.com/copyforge/copyforge/internal/pipeline"
	"github.com/copyforge/copyforge/internal/wordlimit"
)

// ErrInvalidInput marks errors caused by the caller's input.
var ErrInvalidInput = errors.New("invalid input")

// DefaultLanguage is the output language when none is configured.
const DefaultLanguage = "vi"

// WindowDocument keys the window for copy generated from documents.
const WindowDocument = "document"

// Variants holds the ordered model variants for each use case.
type Variants struct {
	Analysis   []invoke.Variant `mapstructure:"analysis" yaml:"analysis" json:"analysis"`
	Content    []invoke.Variant `mapstructure:"content" yaml:"content" json:"content"`
	Competitor []invoke.Variant `mapstructure:"competitor" yaml:"competitor" json:"competitor"`
	Document   []invoke.Variant `mapstructure:"document" yaml:"document" json:"document"`
}

// DefaultVariants prefers search-grounded calls for research and JSON mode
// for copywriting, falling back to a lighter model.
func DefaultVariants() Variants {
	research := []invoke.Variant{
		{ModelID: "gemini-2.5-flash", Advanced: true},
		{ModelID: "gemini-2.5-flash", Advanced: false},
		{ModelID: "gemini-2.0-flash", Advanced: true},
		{ModelID: "gemini-2.0-flash", Advanced: false},
	}
	writing := []invoke.Variant{
		{ModelID: "gemini-2.5-flash", Advanced: false},
		{ModelID: "gemini-2.0-flash", Advanced: false},
	}
	return Variants{
		Analysis:   research,
		Content:    writing,
		Competitor: research,
		Document:   writing,
	}
}

// DefaultWindows returns the word windows per format plus WindowDocument.
func DefaultWindows() map[string]wordlimit.Window {
	return map[string]wordlimit.Window{
		string(FormatFacebookPost): {MinWords: 150, MaxWords: 300},
		string(FormatAdCopy):       {MinWords: 40, MaxWords: 120},
		string(FormatVideoScript):  {MinWords: 90, MaxWords: 160},
		WindowDocument:             {MinWords: 80, MaxWords: 250},
	}
}

// Config holds Service dependencies and tuning.
type Config struct {
	Generator   *pipeline.Generator
	Variants    Variants
	MaxAttempts int
	// Windows maps a Format (or WindowDocument) to the content window.
	Windows  map[string]wordlimit.Window
	Language string
	Logger   *slog.Logger
}

// Service runs the marketing use cases. It is safe for concurrent use.
type Service struct {
	gen         *pipeline.Generator
	variants    Variants
	maxAttempts int
	windows     map[string]wordlimit.Window
	language    string
	logger      *slog.Logger
}

// NewService creates a Service. Unset variants and windows take defaults.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultVariants()
	v := cfg.Variants
	if len(v.Analysis) == 0 {
		v.Analysis = defaults.Analysis
	}
	if len(v.Content) == 0 {
		v.Content = defaults.Content
	}
	if len(v.Competitor) == 0 {
		v.Competitor = defaults.Competitor
	}
	if len(v.Document) == 0 {
		v.Document = defaults.Document
	}

	windows := DefaultWindows()
	for k, w := range cfg.Windows {
		windows[k] = w
	}

	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	return &Service{
		gen:         cfg.Generator,
		variants:    v,
		maxAttempts: cfg.MaxAttempts,
		windows:     windows,
		language:    lang,
		logger:      logger,
	}
}

// Window returns the content window for a format or WindowDocument.
func (s *Service) Window(key string) wordlimit.Window {
	return s.windows[key]
}

func (s *Service) request(prompt string, variants []invoke.Variant) pipeline.Request {
	return pipeline.Request{
		Prompt:      prompt,
		Variants:    variants,
		MaxAttempts: s.maxAttempts,
		Language:    s.language,
	}
}
