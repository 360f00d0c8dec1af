package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/swaggo/swag"

	"github.com/copyforge/copyforge/internal/invoke"
	"github.com/copyforge/copyforge/internal/marketing"
	"github.com/copyforge/copyforge/internal/pipeline"
)

func TestGenerationStatus(t *testing.T) {
	transient := &invoke.ExhaustedError{
		LastReason: errors.New("503"),
		Attempts:   []invoke.Attempt{{Outcome: invoke.OutcomeTransient}},
	}
	fatal := &invoke.ExhaustedError{
		LastReason: errors.New("bad key"),
		Attempts:   []invoke.Attempt{{Outcome: invoke.OutcomeTransient}, {Outcome: invoke.OutcomeFatal}},
	}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", fmt.Errorf("%w: product_name is required", marketing.ErrInvalidInput), http.StatusBadRequest},
		{"invalid request", fmt.Errorf("%w: no variants", pipeline.ErrInvalidRequest), http.StatusBadRequest},
		{"overloaded", fmt.Errorf("analyze product: %w", transient), http.StatusServiceUnavailable},
		{"fatal ending", fmt.Errorf("analyze product: %w", fatal), http.StatusBadGateway},
		{"timeout", fmt.Errorf("analyze product: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := generationStatus(tt.err)
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if msg == "" {
				t.Error("expected a message")
			}
		})
	}

	if _, msg := generationStatus(transient); msg != overloadedMessage {
		t.Errorf("overloaded message = %q", msg)
	}
}

func TestGenerationContext(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/analyze_product", nil)
		ctx, cancel := generationContext(r)
		defer cancel()
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected a deadline")
		}
		if left := time.Until(deadline); left < 170*time.Second || left > 180*time.Second {
			t.Errorf("deadline in %s, want about 180s", left)
		}
	})
}

func TestMarketingService_Missing(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/analyze_product", nil)
	if svc := marketingService(rec, r); svc != nil {
		t.Fatal("expected nil service")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

type staticDoc string

func (d staticDoc) ReadDoc() string { return string(d) }

func TestSwaggerEndpoint(t *testing.T) {
	swag.Register("endpoints-test", staticDoc(`{"swagger":"2.0"}`))

	t.Run("registered", func(t *testing.T) {
		_, _, h := (&SwaggerEndpoint{InstanceName: "endpoints-test"}).Route()
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/swagger.json", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec.Body.String() != `{"swagger":"2.0"}` {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("unknown instance", func(t *testing.T) {
		_, _, h := (&SwaggerEndpoint{InstanceName: "missing"}).Route()
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/swagger.json", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestAll_UniqueRoutes(t *testing.T) {
	seen := make(map[string]bool)
	for _, ep := range All() {
		method, path, handler := ep.Route()
		if handler == nil {
			t.Errorf("%s %s has no handler", method, path)
		}
		key := method + " " + path
		if seen[key] {
			t.Errorf("duplicate route %s", key)
		}
		seen[key] = true
	}

	for _, route := range []string{
		"POST /api/analyze_product",
		"POST /api/generate_content",
		"POST /api/analyze_competitor",
		"POST /api/analyze_document",
		"POST /api/generate_from_document",
	} {
		if !seen[route] {
			t.Errorf("missing route %s", route)
		}
	}
}

func TestJoinOptions(t *testing.T) {
	if got := joinTones(); got == "" {
		t.Error("joinTones() is empty")
	}
	if got := joinFormats(); got == "" {
		t.Error("joinFormats() is empty")
	}
}

func TestParseCallFilter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f, err := parseCallFilter(url.Values{})
		if err != nil {
			t.Fatal(err)
		}
		if f.Limit != defaultCallLimit || f.Success != nil || f.After != nil {
			t.Errorf("unexpected filter: %+v", f)
		}
	})

	t.Run("all fields", func(t *testing.T) {
		q := url.Values{
			"provider": {"gemini"},
			"model":    {"gemini-2.5-flash"},
			"success":  {"false"},
			"limit":    {"5"},
			"offset":   {"10"},
			"after":    {"2026-01-15T00:00:00Z"},
		}
		f, err := parseCallFilter(q)
		if err != nil {
			t.Fatal(err)
		}
		if f.Provider != "gemini" || f.Model != "gemini-2.5-flash" || f.Limit != 5 || f.Offset != 10 {
			t.Errorf("unexpected filter: %+v", f)
		}
		if f.Success == nil || *f.Success {
			t.Error("success filter should be false")
		}
		if f.After == nil || !f.After.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("after = %v", f.After)
		}
	})

	for _, q := range []url.Values{
		{"success": {"maybe"}},
		{"limit": {"ten"}},
		{"offset": {"-1"}},
		{"before": {"yesterday"}},
	} {
		if _, err := parseCallFilter(q); err == nil {
			t.Errorf("expected error for %v", q)
		}
	}
}
