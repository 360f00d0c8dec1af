package invoke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	DefaultBackoffBase       = time.Second
	DefaultBackoffCap        = 8 * time.Second
	DefaultMaxJitter         = 500 * time.Millisecond
	DefaultRetriesPerVariant = 1
)

// Options configures an Orchestrator.
type Options struct {
	// RetriesPerVariant is how many extra calls a variant gets after a transient
	// failure (default 1). Negative disables same-variant retries.
	RetriesPerVariant int
	// BackoffBase is multiplied by 2^n for the n-th transient failure (default 1s).
	BackoffBase time.Duration
	// BackoffCap bounds every single sleep (default 8s).
	BackoffCap time.Duration
	// MaxJitter is the upper bound of the uniform jitter added to each sleep (default 0.5s).
	MaxJitter time.Duration

	// Accept, if set, vets a non-empty response. A non-nil error turns the
	// call into a fatal failure so the next variant is tried.
	Accept func(text string) error

	// Timer and Jitter are injectable for tests.
	Timer  Timer
	Jitter func(max time.Duration) time.Duration

	Logger *slog.Logger
}

// Orchestrator issues calls strictly in variant order, one at a time.
// It holds no per-request state, so one instance can serve concurrent requests.
type Orchestrator struct {
	caller ModelCaller
	opts   Options
	logger *slog.Logger
}

// New creates an orchestrator around caller.
func New(caller ModelCaller, opts Options) *Orchestrator {
	if opts.RetriesPerVariant == 0 {
		opts.RetriesPerVariant = DefaultRetriesPerVariant
	}
	if opts.RetriesPerVariant < 0 {
		opts.RetriesPerVariant = 0
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = DefaultBackoffCap
	}
	if opts.MaxJitter < 0 {
		opts.MaxJitter = 0
	} else if opts.MaxJitter == 0 {
		opts.MaxJitter = DefaultMaxJitter
	}
	if opts.Timer == nil {
		opts.Timer = realTimer{}
	}
	if opts.Jitter == nil {
		opts.Jitter = uniformJitter
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{caller: caller, opts: opts, logger: logger}
}

// WithAccept returns a copy of o that vets responses with accept.
func (o *Orchestrator) WithAccept(accept func(text string) error) *Orchestrator {
	cp := *o
	cp.opts.Accept = accept
	return &cp
}

// Backoff returns the sleep before the call following the n-th transient failure
// (n is 0-based): min(base*2^n + jitter, cap).
func (o *Orchestrator) Backoff(n int) time.Duration {
	if n > 30 {
		n = 30
	}
	d := o.opts.BackoffBase * time.Duration(1<<n)
	if o.opts.MaxJitter > 0 {
		d += o.opts.Jitter(o.opts.MaxJitter)
	}
	if d > o.opts.BackoffCap || d < 0 {
		d = o.opts.BackoffCap
	}
	return d
}

// attemptError carries the classification of a failed call through retry-go.
type attemptError struct {
	outcome Outcome
	err     error
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

// Invoke runs prompt through variants. maxAttempts is the total call budget; it is
// raised to len(variants) so every variant is tried at least once.
func (o *Orchestrator) Invoke(ctx context.Context, prompt string, variants []Variant, maxAttempts int) (Result, error) {
	if len(variants) == 0 {
		return Result{}, &ExhaustedError{LastReason: errors.New("no model variants configured")}
	}
	if maxAttempts < len(variants) {
		maxAttempts = len(variants)
	}

	var (
		attempts   []Attempt
		lastErr    error
		failures   int
		used       int
		successful string
	)

	for vi, variant := range variants {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		untried := len(variants) - vi - 1
		extra := maxAttempts - used - untried - 1
		if extra > o.opts.RetriesPerVariant {
			extra = o.opts.RetriesPerVariant
		}
		if extra < 0 {
			extra = 0
		}

		call := func() error {
			used++
			started := time.Now()
			text, err := o.caller.CallModel(ctx, variant.ModelID, variant.Advanced, prompt)
			outcome := Classify(text, err)
			if err == nil && outcome == OutcomeFatal {
				err = ErrEmptyResponse
			}
			if outcome == OutcomeSuccess && o.opts.Accept != nil {
				if aerr := o.opts.Accept(text); aerr != nil {
					outcome = OutcomeFatal
					err = aerr
				}
			}
			attempts = append(attempts, Attempt{
				Variant:   variant,
				StartedAt: started,
				Duration:  time.Since(started),
				Outcome:   outcome,
				Text:      text,
				Err:       err,
			})

			o.logger.Debug("model attempt",
				"attempt", used,
				"variant", variant.String(),
				"outcome", outcome.String(),
				"duration", time.Since(started))

			if outcome == OutcomeSuccess {
				successful = text
				return nil
			}
			if outcome == OutcomeTransient {
				failures++
			}
			return &attemptError{outcome: outcome, err: err}
		}

		err := retry.Do(call,
			retry.Context(ctx),
			retry.Attempts(uint(1+extra)),
			retry.LastErrorOnly(true),
			retry.WithTimer(o.opts.Timer),
			retry.RetryIf(func(err error) bool {
				var ae *attemptError
				return errors.As(err, &ae) && ae.outcome == OutcomeTransient
			}),
			retry.DelayType(func(_ uint, _ error, _ *retry.Config) time.Duration {
				d := o.Backoff(failures - 1)
				o.logger.Info("retrying model variant after transient failure",
					"variant", variant.String(),
					"delay", d)
				return d
			}),
		)
		if err == nil {
			return Result{Text: successful, Variant: variant, Attempts: attempts}, nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return Result{}, cerr
		}

		var ae *attemptError
		if !errors.As(err, &ae) {
			return Result{}, fmt.Errorf("invoke %s: %w", variant, err)
		}
		lastErr = ae.err

		o.logger.Warn("model variant failed",
			"variant", variant.String(),
			"outcome", ae.outcome.String(),
			"error", ae.err)

		// Space out the hand-off to the next variant after an overload as well.
		if ae.outcome == OutcomeTransient && untried > 0 {
			d := o.Backoff(failures - 1)
			select {
			case <-o.opts.Timer.After(d):
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}
	}

	return Result{}, &ExhaustedError{LastReason: lastErr, Attempts: attempts}
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}
