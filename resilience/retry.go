package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry executor.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the maximum delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	// Default: 2.0
	Multiplier float64

	// Jitter adds randomness to delays to prevent thundering herd.
	Jitter bool

	// RetryIf determines if an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt with the computed
	// delay. The attempt passed is the one that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Rand supplies the jitter source for tests. Nil uses the shared
	// generator.
	Rand *rand.Rand
}

// Report describes one completed retry execution.
type Report struct {
	// Attempts is the number of times the operation ran.
	Attempts int

	// Elapsed is the total wall time including backoff delays.
	Elapsed time.Duration
}

// Retry executes operations with exponential backoff between attempts.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry executor.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{config: config}
}

// Execute runs the operation with retry logic.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := r.ExecuteReport(ctx, op)
	return err
}

// ExecuteReport runs the operation with retry logic and reports how many
// attempts it took.
//
// On exhaustion or a non-retryable error the original last error is
// returned unchanged so callers can inspect the root cause; any wrapping
// into user-facing failures happens above this layer.
func (r *Retry) ExecuteReport(ctx context.Context, op func(context.Context) error) (Report, error) {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)

		if err == nil {
			return Report{Attempts: attempt, Elapsed: time.Since(start)}, nil
		}

		lastErr = err

		if !r.config.RetryIf(err) {
			return Report{Attempts: attempt, Elapsed: time.Since(start)}, err
		}

		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := Backoff(attempt, BackoffConfig{
			InitialDelay: r.config.InitialDelay,
			MaxDelay:     r.config.MaxDelay,
			Factor:       r.config.Multiplier,
			Jitter:       r.config.Jitter,
			Rand:         r.config.Rand,
		})

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		// Wait for delay or context cancellation so a caller that has
		// given up does not leak delayed retries.
		select {
		case <-ctx.Done():
			return Report{Attempts: attempt, Elapsed: time.Since(start)}, ctx.Err()
		case <-time.After(delay):
		}
	}

	return Report{Attempts: r.config.MaxAttempts, Elapsed: time.Since(start)}, lastErr
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
