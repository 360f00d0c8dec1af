package invoke

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// transientMarkers are matched case-insensitively against error messages.
var transientMarkers = []string{"unavailable", "overloaded", "timeout", "temporarily", "503"}

// statusCoder is implemented by provider errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// ErrEmptyResponse marks a call that returned no text and no error.
var ErrEmptyResponse = errors.New("model returned empty response")

// Classify maps the result of one call to an Outcome.
func Classify(text string, err error) Outcome {
	if err == nil {
		if strings.TrimSpace(text) == "" {
			return OutcomeFatal
		}
		return OutcomeSuccess
	}
	if IsTransient(err) {
		return OutcomeTransient
	}
	return OutcomeFatal
}

// IsTransient reports whether err belongs to the overload/timeout class.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() == http.StatusServiceUnavailable {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
