// Package resilience provides the retry, backoff, and circuit breaking
// primitives used to call unreliable external dependencies.
//
// The package is domain-agnostic: it never classifies errors itself.
// Retryability predicates, attempt budgets, and the translation of
// terminal failures into user-facing errors are supplied by callers
// (see package policy).
//
// # Patterns
//
//   - Backoff: a pure calculator for exponential delays with optional
//     multiplicative jitter.
//
//   - Retry: runs an operation up to MaxAttempts times, sleeping a
//     Backoff-computed delay between attempts. The delay is cancellable
//     through the context. On exhaustion the original last error is
//     propagated unchanged.
//
//   - CircuitBreaker: a per-dependency consecutive-failure tracker with
//     closed/open/half-open states and a hard per-call timeout. One
//     instance guards one dependency and is shared by all its callers.
//
// # Usage
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    CallTimeout:  10 * time.Second,
//	    ResetTimeout: time.Minute,
//	})
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  5,
//	    InitialDelay: time.Second,
//	    Multiplier:   1.5,
//	    Jitter:       true,
//	    RetryIf:      isTransient,
//	})
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRetry(retry),
//	    resilience.WithCircuitBreaker(cb),
//	)
//
//	report, err := exec.ExecuteReport(ctx, func(ctx context.Context) error {
//	    return controller.Activate(ctx, machineID, minutes)
//	})
package resilience
