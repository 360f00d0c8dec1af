package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func openRouterReply(content string) map[string]any {
	return map[string]any{
		"id":    "test-id",
		"model": "google/gemini-2.5-flash",
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18},
	}
}

func TestOpenRouterClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterReply(`{"title":"hi"}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
		result, err := client.Chat(context.Background(), UserPrompt("", "Hello", false))
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Content != `{"title":"hi"}` {
			t.Errorf("Content = %q", result.Content)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.RequestID == "" {
			t.Error("expected a request id")
		}
	})

	t.Run("advanced requests json object format", func(t *testing.T) {
		var got openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(openRouterReply("{}"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		if _, err := client.Chat(context.Background(), UserPrompt("m", "p", true)); err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v", got.ResponseFormat)
		}
		if got.Model != "m" {
			t.Errorf("model = %q", got.Model)
		}
	})

	t.Run("503 returns status-coded error without retry", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"overloaded"}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Chat(context.Background(), UserPrompt("m", "p", false))
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.HTTPStatus() != http.StatusServiceUnavailable {
			t.Fatalf("error = %v, want 503 APIError", err)
		}
		if hits.Load() != 1 {
			t.Errorf("hits = %d, want 1", hits.Load())
		}
	})

	t.Run("retries with nonce when configured", func(t *testing.T) {
		var bodies []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req openRouterRequest
			json.NewDecoder(r.Body).Decode(&req)
			bodies = append(bodies, req.Messages[0].Content.(string))
			if len(bodies) == 1 {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
			json.NewEncoder(w).Encode(openRouterReply("ok"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL, MaxAttempts: 2, RetryDelay: 1})
		result, err := client.Chat(context.Background(), UserPrompt("m", "p", false))
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != "ok" {
			t.Errorf("Content = %q", result.Content)
		}
		if len(bodies) != 2 || !strings.Contains(bodies[1], "retry_1_id") {
			t.Errorf("bodies = %q", bodies)
		}
	})

	t.Run("in-body upstream error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"upstream overloaded","code":"overloaded"}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Chat(context.Background(), UserPrompt("m", "p", false))
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("error = %v, want 503 APIError", err)
		}
	})

	t.Run("schema request forwards json_schema format", func(t *testing.T) {
		var got openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(openRouterReply("```json\n{\"usps\":[\"a\"]}\n```"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		req := UserPrompt("m", "p", false)
		req.ResponseFormat = &ResponseFormat{
			Type:       "json_schema",
			JSONSchema: schemaEnvelope(json.RawMessage(`{"type":"object","required":["usps"]}`)),
		}
		result, err := client.Chat(context.Background(), req)
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success || result.ParsedJSON != nil {
			t.Errorf("result = %+v, want raw success", result)
		}
		if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_schema" {
			t.Fatalf("response_format = %+v", got.ResponseFormat)
		}
		if !strings.Contains(string(got.ResponseFormat.JSONSchema), `"required":["usps"]`) {
			t.Errorf("json_schema = %s", got.ResponseFormat.JSONSchema)
		}
	})
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{413, true},
		{422, true},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		if got := shouldRetry(tt.status); got != tt.want {
			t.Errorf("shouldRetry(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
