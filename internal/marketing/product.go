package marketing

import (
	"context"
	"fmt"
	"strings"

	"github.com/copyforge/copyforge/internal/document"
	"github.com/copyforge/copyforge/internal/normalize"
)

// ProductAnalysis is the market research summary for one product.
type ProductAnalysis struct {
	ProductName   string   `json:"product_name"`
	USPs          []string `json:"usps"`
	PainPoints    []string `json:"pain_points"`
	TargetPersona string   `json:"target_persona"`
	Infor         string   `json:"infor"`
}

var productSchema = normalize.Schema{
	{Name: "usps", Shape: normalize.ListOfStrings},
	{Name: "pain_points", Shape: normalize.ListOfStrings},
	{Name: "target_persona", Shape: normalize.Text},
	{Name: "infor", Shape: normalize.Text},
}

var documentProductSchema = append(normalize.Schema{
	{Name: "product_name", Shape: normalize.Text},
}, productSchema...)

func productFromRecord(name string, rec normalize.Record) *ProductAnalysis {
	return &ProductAnalysis{
		ProductName:   name,
		USPs:          rec.List("usps"),
		PainPoints:    rec.List("pain_points"),
		TargetPersona: rec.Text("target_persona"),
		Infor:         rec.Text("infor"),
	}
}

// AnalyzeProduct researches a product by name.
func (s *Service) AnalyzeProduct(ctx context.Context, productName string) (*ProductAnalysis, error) {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return nil, fmt.Errorf("%w: product_name is required", ErrInvalidInput)
	}

	prompt, err := render(productTemplate, struct {
		ProductName string
		Language    string
	}{productName, languageName(s.language)})
	if err != nil {
		return nil, err
	}

	req := s.request(prompt, s.variants.Analysis)
	req.Schema = productSchema
	out, err := s.gen.GenerateStructured(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyze product %q: %w", productName, err)
	}
	s.logger.Info("product analyzed", "product", productName, "variant", out.Variant.String(), "usps", len(out.Record.List("usps")))
	return productFromRecord(productName, out.Record), nil
}

// AnalyzeDocument analyzes the product described by an uploaded document.
// The product name is taken from the model when productName is empty.
func (s *Service) AnalyzeDocument(ctx context.Context, productName, filename string, data []byte) (*ProductAnalysis, error) {
	text, err := documentText(filename, data)
	if err != nil {
		return nil, err
	}
	productName = strings.TrimSpace(productName)

	prompt, err := render(documentAnalysisTemplate, struct {
		ProductName string
		Language    string
		Document    string
	}{productName, languageName(s.language), text})
	if err != nil {
		return nil, err
	}

	req := s.request(prompt, s.variants.Document)
	req.Schema = documentProductSchema
	out, err := s.gen.GenerateStructured(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyze document %q: %w", filename, err)
	}

	name := productName
	if name == "" {
		name = out.Record.Text("product_name")
	}
	s.logger.Info("document analyzed", "file", filename, "chars", len(text), "product", name)
	return productFromRecord(name, out.Record), nil
}

// documentText extracts and caps the text of an upload.
func documentText(filename string, data []byte) (string, error) {
	text, err := document.Extract(filename, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return document.Truncate(text, document.MaxChars), nil
}
