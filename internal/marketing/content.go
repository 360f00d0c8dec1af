package marketing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/copyforge/copyforge/internal/extract"
	"github.com/copyforge/copyforge/internal/invoke"
	"github.com/copyforge/copyforge/internal/normalize"
	"github.com/copyforge/copyforge/internal/wordlimit"
)

// ContentRequest selects what to write about and how.
type ContentRequest struct {
	ProductName   string   `json:"product_name"`
	TargetPersona string   `json:"target_persona"`
	SelectedUSPs  []string `json:"selected_usps"`
	Tone          Tone     `json:"selected_tone"`
	Format        Format   `json:"selected_format"`
	Infor         string   `json:"infor"`
}

// Validate checks required fields and normalizes the enums.
func (r *ContentRequest) Validate() error {
	if strings.TrimSpace(r.ProductName) == "" {
		return fmt.Errorf("%w: product_name is required", ErrInvalidInput)
	}
	tone, err := ParseTone(string(r.Tone))
	if err != nil {
		return err
	}
	format, err := ParseFormat(string(r.Format))
	if err != nil {
		return err
	}
	r.Tone, r.Format = tone, format
	return nil
}

// GeneratedContent is a piece of marketing copy.
type GeneratedContent struct {
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	PromptUsed string         `json:"prompt_used"`
	Method     extract.Method `json:"method"`
	Model      string         `json:"model"`
	Words      int            `json:"words"`
}

var contentSchema = normalize.Schema{
	{Name: "title", Shape: normalize.Text},
	{Name: "content", Shape: normalize.Text},
}

// GenerateContent writes copy for a product in the requested tone and format.
// The content is held to the format's word window.
func (s *Service) GenerateContent(ctx context.Context, req ContentRequest) (*GeneratedContent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	window := s.windows[string(req.Format)]

	usps := "-"
	if len(req.SelectedUSPs) > 0 {
		usps = strings.Join(req.SelectedUSPs, "; ")
	}
	prompt, err := render(contentTemplate, struct {
		ProductName, TargetPersona, USPs, Infor, Tone, Format, Language string
		MinWords, MaxWords                                              int
	}{
		ProductName:   req.ProductName,
		TargetPersona: orDash(req.TargetPersona),
		USPs:          usps,
		Infor:         orDash(req.Infor),
		Tone:          req.Tone.Label(),
		Format:        req.Format.Label(),
		Language:      languageName(s.language),
		MinWords:      window.MinWords,
		MaxWords:      window.MaxWords,
	})
	if err != nil {
		return nil, err
	}

	out, err := s.generateCopy(ctx, prompt, s.variants.Content, window)
	if err != nil {
		return nil, fmt.Errorf("generate %s for %q: %w", req.Format, req.ProductName, err)
	}
	s.logger.Info("content generated", "product", req.ProductName, "format", string(req.Format), "tone", string(req.Tone), "words", out.Words)
	return out, nil
}

// GenerateFromDocument writes copy grounded only in an uploaded document.
func (s *Service) GenerateFromDocument(ctx context.Context, productName, filename string, data []byte) (*GeneratedContent, error) {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return nil, fmt.Errorf("%w: product_name is required", ErrInvalidInput)
	}
	text, err := documentText(filename, data)
	if err != nil {
		return nil, err
	}
	window := s.windows[WindowDocument]

	prompt, err := render(documentContentTemplate, struct {
		ProductName, Language, Document string
		MinWords, MaxWords              int
	}{productName, languageName(s.language), text, window.MinWords, window.MaxWords})
	if err != nil {
		return nil, err
	}

	out, err := s.generateCopy(ctx, prompt, s.variants.Document, window)
	if err != nil {
		raw, ok := unparsedReply(err)
		if !ok {
			return nil, fmt.Errorf("generate from document %q: %w", filename, err)
		}
		s.logger.Warn("document reply had no JSON object, using raw text",
			"file", filename, "variant", raw.Variant.String())
		out = rawContent(raw, prompt)
	}
	s.logger.Info("document content generated", "file", filename, "product", productName, "words", out.Words)
	return out, nil
}

func (s *Service) generateCopy(ctx context.Context, prompt string, variants []invoke.Variant, window wordlimit.Window) (*GeneratedContent, error) {
	req := s.request(prompt, variants)
	req.Schema = contentSchema
	if window.Valid() {
		req.Windows = map[string]wordlimit.Window{"content": window}
	}
	out, err := s.gen.GenerateStructured(ctx, req)
	if err != nil {
		return nil, err
	}
	content := out.Record.Text("content")
	return &GeneratedContent{
		Title:      out.Record.Text("title"),
		Content:    content,
		PromptUsed: prompt,
		Method:     out.Method,
		Model:      out.Variant.String(),
		Words:      wordlimit.CountWords(content),
	}, nil
}

// unparsedReply returns the latest attempt whose reply held text but no
// extractable object.
func unparsedReply(err error) (invoke.Attempt, bool) {
	var exhausted *invoke.ExhaustedError
	if !errors.As(err, &exhausted) {
		return invoke.Attempt{}, false
	}
	for i := len(exhausted.Attempts) - 1; i >= 0; i-- {
		a := exhausted.Attempts[i]
		if strings.TrimSpace(a.Text) != "" && errors.Is(a.Err, extract.ErrNoObjectFound) {
			return a, true
		}
	}
	return invoke.Attempt{}, false
}

// rawContent uses a whole reply as content and its first line as title.
func rawContent(a invoke.Attempt, prompt string) *GeneratedContent {
	content := strings.TrimSpace(a.Text)
	title, _, _ := strings.Cut(content, "\n")
	title = strings.TrimSpace(strings.TrimLeft(title, "#* "))
	return &GeneratedContent{
		Title:      title,
		Content:    content,
		PromptUsed: prompt,
		Method:     extract.MethodRawText,
		Model:      a.Variant.String(),
		Words:      wordlimit.CountWords(content),
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
