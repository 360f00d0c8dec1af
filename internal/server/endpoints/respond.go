package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/copyforge/copyforge/internal/invoke"
	"github.com/copyforge/copyforge/internal/marketing"
	"github.com/copyforge/copyforge/internal/pipeline"
	"github.com/copyforge/copyforge/internal/svcctx"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// overloadedMessage is returned when every variant ended on a transient failure.
const overloadedMessage = "model is overloaded, please try again later"

// generationStatus maps a use-case error to an HTTP status and message.
//
//	invalid input               -> 400
//	exhausted, transient ending -> 503
//	deadline exceeded           -> 504
//	any other failure           -> 502
func generationStatus(err error) (int, string) {
	var exhausted *invoke.ExhaustedError
	switch {
	case errors.Is(err, marketing.ErrInvalidInput), errors.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &exhausted) && exhausted.Transient():
		return http.StatusServiceUnavailable, overloadedMessage
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "generation timed out"
	default:
		return http.StatusBadGateway, err.Error()
	}
}

// writeGenerationError logs a failed use case and writes the mapped response.
func writeGenerationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := generationStatus(err)
	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Warn("generation failed", "op", op, "status", status, "error", err)
	}
	writeError(w, status, msg)
}

// generationContext bounds a request by the configured pipeline timeout.
func generationContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := 180 * time.Second
	if cfg := svcctx.ConfigFrom(r.Context()); cfg != nil && cfg.Pipeline.RequestTimeout > 0 {
		timeout = cfg.Pipeline.RequestTimeout
	}
	return context.WithTimeout(r.Context(), timeout)
}

// marketingService returns the service or writes a 503.
func marketingService(w http.ResponseWriter, r *http.Request) *marketing.Service {
	svc := svcctx.MarketingFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "generation service not initialized")
	}
	return svc
}

// decodeJSON decodes the request body into v or writes a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
