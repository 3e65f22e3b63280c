package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/washpoint/washpoint/policy"
	"github.com/washpoint/washpoint/session"
)

// kinder is satisfied by domain errors that carry a classification
// kind.
type kinder interface {
	Kind() string
}

// kindToStatus maps error classification kinds to HTTP status codes.
var kindToStatus = map[string]int{
	"validation":     http.StatusBadRequest,
	"conflict":       http.StatusConflict,
	"state_conflict": http.StatusConflict,
	"not_found":      http.StatusNotFound,
	"payment":        http.StatusPaymentRequired,
	"iot":            http.StatusServiceUnavailable,
	"external":       http.StatusBadGateway,
	"timeout":        http.StatusGatewayTimeout,
	"canceled":       http.StatusRequestTimeout,
}

// errorKind returns the classification kind of an error.
func errorKind(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrMachineNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

func httpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[errorKind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// errorMessage returns a customer-safe description. Policy errors carry
// a vetted message; domain errors word their own. Anything else stays
// opaque.
func errorMessage(err error) string {
	var perr *policy.PaymentError
	if errors.As(err, &perr) {
		return perr.Message
	}
	var ierr *policy.IoTError
	if errors.As(err, &ierr) {
		return ierr.Message
	}

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return "session not found"
	case errors.Is(err, session.ErrMachineNotFound):
		return "machine not found"
	}

	var k kinder
	if errors.As(err, &k) {
		return err.Error()
	}
	return "internal error"
}
