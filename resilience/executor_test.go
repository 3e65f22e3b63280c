package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_RetryDrivesBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	exec := NewExecutor(
		WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  5,
			InitialDelay: time.Millisecond,
		})),
		WithCircuitBreaker(cb),
	)

	attempts := 0
	testErr := errors.New("boom")
	report, err := exec.ExecuteReport(context.Background(), func(ctx context.Context) error {
		attempts++
		return testErr
	})

	// The breaker opens after two failures; the remaining retry attempts
	// are rejected without reaching the operation.
	if attempts != 2 {
		t.Errorf("operation attempts = %d, want 2", attempts)
	}
	if report.Attempts != 5 {
		t.Errorf("report.Attempts = %d, want 5", report.Attempts)
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("ExecuteReport() error = %v, want ErrCircuitOpen", err)
	}
}

func TestExecutor_NoPatternsConfigured(t *testing.T) {
	exec := NewExecutor()

	report, err := exec.ExecuteReport(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("ExecuteReport() error = %v", err)
	}
	if report.Attempts != 1 {
		t.Errorf("report.Attempts = %d, want 1", report.Attempts)
	}
}

func TestExecutor_RetryOnly(t *testing.T) {
	exec := NewExecutor(WithRetry(NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	})))

	attempts := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}
