package marketing

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Template names.
const (
	productTemplate          = "product.tmpl"
	contentTemplate          = "content.tmpl"
	competitorTemplate       = "competitor.tmpl"
	documentAnalysisTemplate = "document_analysis.tmpl"
	documentContentTemplate  = "document_content.tmpl"
)

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// languageName maps a language code to the name used in prompts. English
// needs no instruction.
func languageName(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "vi", "vi-vn":
		return "Vietnamese"
	case "", "en", "en-us":
		return ""
	default:
		return lang
	}
}
