package providers

import (
	"context"
	"sync"
	"time"
)

// DefaultRequestsPerMinute applies when a provider has no configured limit.
const DefaultRequestsPerMinute = 60

// RateLimiter is a token bucket refilled continuously at requestsPerMinute/60
// tokens per second, holding at most requestsPerMinute tokens.
type RateLimiter struct {
	mu sync.Mutex

	perMinute int
	tokens    float64
	updated   time.Time
	now       func() time.Time

	consumed    int64
	waited      time.Duration
	lastLimited time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	LastRateLimited time.Time     `json:"last_rate_limited,omitempty"`
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	r := &RateLimiter{perMinute: requestsPerMinute, now: time.Now}
	r.tokens = float64(requestsPerMinute)
	r.updated = r.now()
	return r
}

// Limit returns the configured requests per minute.
func (r *RateLimiter) Limit() int {
	return r.perMinute
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.consumed++
			r.mu.Unlock()
			return nil
		}
		wait := r.untilNextToken()
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			r.mu.Lock()
			r.waited += wait
			r.mu.Unlock()
		}
	}
}

// TryConsume takes a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		r.consumed++
		return true
	}
	return false
}

// RecordRateLimited drains the bucket after the backend returned 429.
func (r *RateLimiter) RecordRateLimited() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimited = r.now()
	r.tokens = 0
}

// Status returns current limiter state.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		TokensLimit:     r.perMinute,
		TotalConsumed:   r.consumed,
		TotalWaited:     r.waited,
		LastRateLimited: r.lastLimited,
	}
}

// refill must be called with mu held.
func (r *RateLimiter) refill() {
	now := r.now()
	r.tokens += now.Sub(r.updated).Seconds() * float64(r.perMinute) / 60
	r.updated = now
	if max := float64(r.perMinute); r.tokens > max {
		r.tokens = max
	}
}

// untilNextToken must be called with mu held.
func (r *RateLimiter) untilNextToken() time.Duration {
	perSecond := float64(r.perMinute) / 60
	return time.Duration((1 - r.tokens) / perSecond * float64(time.Second))
}
