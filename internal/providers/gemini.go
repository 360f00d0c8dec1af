package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	GeminiName         = "gemini"
	geminiDefaultModel = "gemini-2.5-flash"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	BaseURL      string       // Optional (tests)
	HTTPClient   *http.Client // Optional (tests)
}

// GeminiClient implements LLMClient using the Google GenAI SDK.
// Advanced requests enable Google Search grounding; plain requests ask for a
// JSON response body. The API does not allow both at once.
type GeminiClient struct {
	cfg GeminiConfig

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiClient creates a new Gemini client. The SDK client is built lazily
// on first use so construction never blocks or fails.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = geminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &GeminiClient{cfg: cfg}
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		httpClient := c.cfg.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: c.cfg.Timeout}
		}
		cc := &genai.ClientConfig{
			APIKey:     c.cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		}
		if c.cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
		}
		c.client, c.initErr = genai.NewClient(ctx, cc)
	})
	return c.client, c.initErr
}

// Chat sends a generate-content request.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.cfg.DefaultModel
	}
	result := &ChatResult{
		RequestID: requestID,
		Provider:  GeminiName,
		ModelUsed: model,
	}

	client, err := c.sdk(ctx)
	if err != nil {
		result.ErrorType = "client_init"
		result.ErrorMessage = err.Error()
		return result, fmt.Errorf("failed to create gemini client: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		genCfg.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Advanced {
		genCfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else {
		genCfg.ResponseMIMEType = "application/json"
		if req.ResponseFormat != nil && len(req.ResponseFormat.JSONSchema) > 0 {
			if _, schema, err := decodeSchema(req.ResponseFormat.JSONSchema); err == nil {
				genCfg.ResponseJsonSchema = schema
			}
		}
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(joinMessages(req.Messages)), genCfg)
	result.ExecutionTime = time.Since(start)
	if err != nil {
		err = geminiError(err)
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		return result, err
	}

	result.Success = true
	result.Content = resp.Text()
	if resp.ModelVersion != "" {
		result.ModelUsed = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		result.PromptTokens = int(u.PromptTokenCount)
		result.CompletionTokens = int(u.CandidatesTokenCount)
		result.TotalTokens = int(u.TotalTokenCount)
	}
	return result, nil
}

// geminiError maps SDK API errors to *APIError so callers can read the status.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: GeminiName, StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{Provider: GeminiName, StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return err
}

var _ LLMClient = (*GeminiClient)(nil)
