package policy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/washpoint/washpoint/resilience"
)

// IoTConfig tunes the IoT policy. Zero values use the documented
// defaults.
type IoTConfig struct {
	// MaxAttempts default: 5
	MaxAttempts int
	// InitialDelay default: 1s
	InitialDelay time.Duration
	// MaxDelay default: 15s
	MaxDelay time.Duration
	// Multiplier default: 1.5
	Multiplier float64

	// OfflineFallback, when set together with AllowDegraded, runs once
	// after retries are exhausted. A nil return from the fallback counts
	// as success; a fallback failure surfaces the original error.
	OfflineFallback func(context.Context) error

	// AllowDegraded opts the caller into degraded-mode operation.
	AllowDegraded bool
}

// IoT is the resilience policy for the machine controller channel: five
// attempts with gentle 1.5x backoff, retrying transport failures only.
// A machine that reports offline, maintenance, or not-found is terminal
// on the first attempt because the device has told us its state.
type IoT struct {
	exec     *resilience.Executor
	fallback func(context.Context) error
	log      zerolog.Logger
}

// NewIoT builds the IoT policy around the controller's shared circuit
// breaker. cb may be nil in tests.
func NewIoT(cfg IoTConfig, cb *resilience.CircuitBreaker, log zerolog.Logger) *IoT {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 15 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1.5
	}

	log = log.With().Str("policy", "iot").Logger()

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		Jitter:       true,
		RetryIf:      iotRetryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.Warn().
				Int("attempt", attempt).
				Dur("next_delay", delay).
				Err(err).
				Msg("machine command failed, retrying")
		},
	})

	opts := []resilience.ExecutorOption{resilience.WithRetry(retry)}
	if cb != nil {
		opts = append(opts, resilience.WithCircuitBreaker(cb))
	}

	p := &IoT{exec: resilience.NewExecutor(opts...), log: log}
	if cfg.AllowDegraded {
		p.fallback = cfg.OfflineFallback
	}
	return p
}

// Execute runs the controller operation under the policy. After
// exhaustion the degraded-mode fallback gets one chance before the
// failure is wrapped into a *IoTError with a user-safe message.
func (p *IoT) Execute(ctx context.Context, op func(context.Context) error) (resilience.Report, error) {
	report, err := p.exec.ExecuteReport(ctx, op)
	if err == nil {
		return report, nil
	}

	if p.fallback != nil {
		if fbErr := p.fallback(ctx); fbErr == nil {
			p.log.Warn().Err(err).Msg("machine command served by degraded-mode fallback")
			return report, nil
		}
		// The fallback's own failure is not surfaced; the original
		// error describes what the customer ran into.
	}

	return report, &IoTError{
		Message:   iotMessage(err),
		Attempts:  report.Attempts,
		Retryable: iotRetryable(err),
		Cause:     err,
	}
}
