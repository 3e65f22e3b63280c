// Package policy parameterizes the generic resilience executor for the
// engine's external dependencies.
//
// Each policy pairs an attempt budget with a domain retryability
// predicate and a terminal translation step: while the retry executor
// and circuit breaker propagate the original cause untouched, a policy
// wraps the final failure into a typed, user-safe error (PaymentError,
// IoTError, ExternalServiceError) once retries are exhausted.
//
// Classification prefers the structured kinds carried by payment.Error
// and iot.Error; free-text matching is only a fallback for foreign
// errors.
package policy
