package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	// without invoking the underlying operation.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrTimeout is returned when a protected call exceeds the breaker's
	// CallTimeout.
	ErrTimeout = errors.New("resilience: operation timed out")
)
