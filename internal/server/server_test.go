package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/copyforge/copyforge/internal/config"
	"github.com/copyforge/copyforge/internal/marketing"
	"github.com/copyforge/copyforge/internal/providers"
)

const testConfig = `
server:
  host: 127.0.0.1
  port: "0"
  max_upload_mb: 1
pipeline:
  max_attempts: 2
  backoff_base: 1ms
  backoff_cap: 2ms
  max_jitter: 0s
  request_timeout: 10s
  variants:
    analysis: [{model: test-model, advanced: true}]
    content: [{model: test-model, advanced: false}]
    competitor: [{model: test-model, advanced: true}]
    document: [{model: test-model, advanced: false}]
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newConfigManager(t *testing.T, content string) *config.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	mgr, err := config.NewManager(path, quietLogger())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return mgr
}

func newMockServer(t *testing.T, mock *providers.MockClient) *Server {
	t.Helper()
	reg := providers.NewRegistry()
	if mock != nil {
		reg.Register(providers.MockClientName, mock)
	}
	srv, err := New(Config{
		ConfigManager:   newConfigManager(t, testConfig),
		Registry:        reg,
		DefaultProvider: providers.MockClientName,
		Logger:          quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func do(t *testing.T, h http.Handler, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestServer_Endpoints(t *testing.T) {
	mock := providers.NewMockClient()
	srv := newMockServer(t, mock)
	h := srv.Handler()

	t.Run("health", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/health", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("ready", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/ready", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("analyze product", func(t *testing.T) {
		mock.Push(providers.MockReply{Text: "Here you go:\n```json\n" +
			`{"usps": ["Lightweight", "Waterproof"], "pain_points": "Heavy bags, Wet gear", "target_persona": "Commuters", "infor": ""}` +
			"\n```"})
		rec := do(t, h, http.MethodPost, "/api/analyze_product", "application/json",
			strings.NewReader(`{"product_name": "Trail Pack"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
		got := decode[marketing.ProductAnalysis](t, rec)
		if got.ProductName != "Trail Pack" || len(got.USPs) != 2 || got.TargetPersona != "Commuters" {
			t.Errorf("unexpected analysis: %+v", got)
		}
		if len(got.PainPoints) != 2 {
			t.Errorf("pain points not split: %v", got.PainPoints)
		}
	})

	t.Run("missing product name", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/analyze_product", "application/json", strings.NewReader(`{}`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/generate_content", "application/json", strings.NewReader(`{`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid tone", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/generate_content", "application/json",
			strings.NewReader(`{"product_name": "Trail Pack", "selected_tone": "sarcastic", "selected_format": "ad_copy"}`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("generate content", func(t *testing.T) {
		words := strings.TrimSpace(strings.Repeat("pack ", 60))
		mock.Push(providers.MockReply{Text: fmt.Sprintf(`{"title": "Go further", "content": "%s."}`, words)})
		rec := do(t, h, http.MethodPost, "/api/generate_content", "application/json",
			strings.NewReader(`{"product_name": "Trail Pack", "selected_usps": ["Light"], "selected_tone": "urgent", "selected_format": "ad_copy"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
		got := decode[marketing.GeneratedContent](t, rec)
		if got.Title != "Go further" || got.Words != 60 {
			t.Errorf("unexpected content: %+v", got)
		}
		if !strings.Contains(got.PromptUsed, "Trail Pack") {
			t.Error("prompt_used should include the product name")
		}
	})

	t.Run("overloaded", func(t *testing.T) {
		overloaded := &providers.APIError{Provider: "mock", StatusCode: http.StatusServiceUnavailable, Message: "overloaded"}
		mock.Push(providers.MockReply{Err: overloaded}, providers.MockReply{Err: overloaded})
		rec := do(t, h, http.MethodPost, "/api/analyze_competitor", "application/json",
			strings.NewReader(`{"competitor_name": "Rival"}`))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503 body = %s", rec.Code, rec.Body.String())
		}
		if got := decode[map[string]string](t, rec); !strings.Contains(got["error"], "overloaded") {
			t.Errorf("error = %q", got["error"])
		}
	})

	t.Run("fatal failure", func(t *testing.T) {
		bad := &providers.APIError{Provider: "mock", StatusCode: http.StatusBadRequest, Message: "bad key"}
		mock.Push(providers.MockReply{Err: bad})
		rec := do(t, h, http.MethodPost, "/api/analyze_competitor", "application/json",
			strings.NewReader(`{"competitor_name": "Rival"}`))
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", rec.Code)
		}
	})

	t.Run("analyze document upload", func(t *testing.T) {
		mock.Push(providers.MockReply{Text: `{"product_name": "Trail Pack", "usps": ["Light"], "pain_points": [], "target_persona": "Hikers", "infor": "20L"}`})
		body, ct := multipartBody(t, "brochure.txt", "Trail Pack weighs 400g.", "")
		rec := do(t, h, http.MethodPost, "/api/analyze_document", ct, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
		got := decode[marketing.ProductAnalysis](t, rec)
		if got.ProductName != "Trail Pack" || got.Infor != "20L" {
			t.Errorf("unexpected analysis: %+v", got)
		}
		if !strings.Contains(lastPrompt(mock), "400g") {
			t.Error("document text should reach the prompt")
		}
	})

	t.Run("unsupported upload", func(t *testing.T) {
		body, ct := multipartBody(t, "photo.png", "binary", "Trail Pack")
		rec := do(t, h, http.MethodPost, "/api/generate_from_document", ct, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("upload too large", func(t *testing.T) {
		body, ct := multipartBody(t, "big.txt", strings.Repeat("a", 2<<20), "Trail Pack")
		rec := do(t, h, http.MethodPost, "/api/analyze_document", ct, body)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("missing upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("product_name", "Trail Pack")
		mw.Close()
		rec := do(t, h, http.MethodPost, "/api/generate_from_document", mw.FormDataContentType(), &buf)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("llm calls recorded", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/llmcalls?limit=2", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decode[struct {
			Calls []struct {
				ID       string `json:"id"`
				Provider string `json:"provider"`
			} `json:"calls"`
		}](t, rec)
		if len(resp.Calls) != 2 || resp.Calls[0].Provider != providers.MockClientName {
			t.Fatalf("unexpected calls: %+v", resp)
		}

		rec = do(t, h, http.MethodGet, "/api/llmcalls/"+resp.Calls[0].ID, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("get status = %d", rec.Code)
		}
		rec = do(t, h, http.MethodGet, "/api/llmcalls/nope", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("missing call status = %d, want 404", rec.Code)
		}
		rec = do(t, h, http.MethodGet, "/api/llmcalls?success=maybe", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("bad filter status = %d, want 400", rec.Code)
		}
	})

	t.Run("status", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/status", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		got := decode[map[string]any](t, rec)
		if provs, _ := got["providers"].([]any); len(provs) != 1 {
			t.Errorf("providers = %v", got["providers"])
		}
	})
}

func TestServer_NoProviders(t *testing.T) {
	srv := newMockServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/analyze_product", "application/json", strings.NewReader(`{"product_name": "x"}`))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("generation status = %d, want 503", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestServer_Lifecycle(t *testing.T) {
	srv := newMockServer(t, providers.NewMockClient())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !srv.IsRunning() || srv.Addr() == "127.0.0.1:0" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	if err := srv.Start(ctx); err == nil {
		t.Error("expected error starting a running server")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
	if srv.IsRunning() {
		t.Error("server still marked running")
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(Config{Logger: quietLogger()}); err == nil {
		t.Error("expected error without a config manager")
	}
}

func multipartBody(t *testing.T, filename, content, productName string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if productName != "" {
		mw.WriteField("product_name", productName)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func lastPrompt(mock *providers.MockClient) string {
	reqs := mock.Requests()
	if len(reqs) == 0 {
		return ""
	}
	last := reqs[len(reqs)-1]
	var parts []string
	for _, m := range last.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}
