package policy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/washpoint/washpoint/resilience"
)

// ExternalConfig tunes a generic external-service policy.
type ExternalConfig struct {
	// MaxAttempts default: 3
	MaxAttempts int
	// InitialDelay default: 1.5s
	InitialDelay time.Duration
	// MaxDelay default: 30s
	MaxDelay time.Duration
	// Multiplier default: 2.5
	Multiplier float64
}

// External is the resilience policy for dependencies that have no
// dedicated policy of their own.
type External struct {
	service string
	exec    *resilience.Executor
}

// NewExternal builds a policy for the named service. cb may be nil.
func NewExternal(service string, cfg ExternalConfig, cb *resilience.CircuitBreaker, log zerolog.Logger) *External {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 1500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.5
	}

	log = log.With().Str("policy", "external").Str("service", service).Logger()

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		Jitter:       true,
		RetryIf:      externalRetryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.Warn().
				Int("attempt", attempt).
				Dur("next_delay", delay).
				Err(err).
				Msg("external call failed, retrying")
		},
	})

	opts := []resilience.ExecutorOption{resilience.WithRetry(retry)}
	if cb != nil {
		opts = append(opts, resilience.WithCircuitBreaker(cb))
	}

	return &External{service: service, exec: resilience.NewExecutor(opts...)}
}

// Execute runs the operation under the policy, wrapping terminal
// failures as *ExternalServiceError.
func (p *External) Execute(ctx context.Context, op func(context.Context) error) (resilience.Report, error) {
	report, err := p.exec.ExecuteReport(ctx, op)
	if err == nil {
		return report, nil
	}

	return report, &ExternalServiceError{
		Service:  p.service,
		Attempts: report.Attempts,
		Cause:    err,
	}
}
