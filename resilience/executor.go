package resilience

import (
	"context"
)

// Executor composes retry and circuit breaking around an operation.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// Execute runs the operation through the configured patterns.
//
// The retry executor drives the circuit breaker: each attempt passes
// through the breaker, which bounds the individual call with its
// CallTimeout. An open breaker therefore rejects attempts without ever
// invoking the operation.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := e.ExecuteReport(ctx, op)
	return err
}

// ExecuteReport is Execute with the attempt count of the run.
func (e *Executor) ExecuteReport(ctx context.Context, op func(context.Context) error) (Report, error) {
	execute := op

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		return e.retry.ExecuteReport(ctx, execute)
	}

	err := execute(ctx)
	report := Report{Attempts: 1}
	return report, err
}
