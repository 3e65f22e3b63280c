package policy

import "fmt"

// PaymentError is the terminal failure a payment policy produces after
// exhausting its retries. Message is safe to show to the customer.
type PaymentError struct {
	Message   string
	Attempts  int
	Retryable bool // whether the underlying condition was transient
	Cause     error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed after %d attempt(s): %s", e.Attempts, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.Cause }

// Kind identifies the error class for transport mapping.
func (e *PaymentError) Kind() string { return "payment" }

// IoTError is the terminal failure the IoT policy produces after
// exhausting retries and any degraded-mode fallback.
type IoTError struct {
	Message   string
	Attempts  int
	Retryable bool
	Cause     error
}

func (e *IoTError) Error() string {
	return fmt.Sprintf("machine command failed after %d attempt(s): %s", e.Attempts, e.Message)
}

func (e *IoTError) Unwrap() error { return e.Cause }

// Kind identifies the error class for transport mapping.
func (e *IoTError) Kind() string { return "iot" }

// ExternalServiceError wraps a generic dependency failure with the name
// of the service that failed.
type ExternalServiceError struct {
	Service  string
	Attempts int
	Cause    error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable after %d attempt(s)", e.Service, e.Attempts)
}

func (e *ExternalServiceError) Unwrap() error { return e.Cause }

// Kind identifies the error class for transport mapping.
func (e *ExternalServiceError) Kind() string { return "external" }
