package policy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/washpoint/washpoint/resilience"
)

// PaymentConfig tunes the payment policy. Zero values use the
// documented defaults.
type PaymentConfig struct {
	// MaxAttempts default: 3
	MaxAttempts int
	// InitialDelay default: 2s
	InitialDelay time.Duration
	// MaxDelay default: 30s
	MaxDelay time.Duration
	// Multiplier default: 2.0
	Multiplier float64
}

// Payment is the resilience policy for the payment gateway: three
// attempts with 2s exponential backoff, retrying only server-side and
// transport failures. Declined or insufficient-funds answers are
// terminal on the first attempt.
type Payment struct {
	exec *resilience.Executor
	log  zerolog.Logger
}

// NewPayment builds the payment policy around the gateway's shared
// circuit breaker. cb may be nil in tests.
func NewPayment(cfg PaymentConfig, cb *resilience.CircuitBreaker, log zerolog.Logger) *Payment {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 2 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}

	log = log.With().Str("policy", "payment").Logger()

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		Jitter:       true,
		RetryIf:      paymentRetryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.Warn().
				Int("attempt", attempt).
				Dur("next_delay", delay).
				Err(err).
				Msg("payment attempt failed, retrying")
		},
	})

	opts := []resilience.ExecutorOption{resilience.WithRetry(retry)}
	if cb != nil {
		opts = append(opts, resilience.WithCircuitBreaker(cb))
	}

	return &Payment{exec: resilience.NewExecutor(opts...), log: log}
}

// Execute runs the gateway operation under the policy. On terminal
// failure the original cause is wrapped into a *PaymentError carrying a
// user-safe message; the report always holds the real attempt count.
func (p *Payment) Execute(ctx context.Context, op func(context.Context) error) (resilience.Report, error) {
	report, err := p.exec.ExecuteReport(ctx, op)
	if err == nil {
		return report, nil
	}

	return report, &PaymentError{
		Message:   paymentMessage(err),
		Attempts:  report.Attempts,
		Retryable: paymentRetryable(err),
		Cause:     err,
	}
}
