// Package payment defines the payment gateway port used to charge and
// refund usage sessions, and an HTTP adapter speaking to the gateway.
//
// Gateway failures carry a structured Kind so callers can decide
// retryability without parsing message text.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Receipt statuses reported by the gateway.
const (
	// StatusCaptured means the funds were taken.
	StatusCaptured = "captured"
	// StatusPending means the charge was initiated and awaits an
	// out-of-band confirmation (instant payment push).
	StatusPending = "pending"
)

// ChargeRequest describes one charge attempt.
type ChargeRequest struct {
	// Amount is the exact amount to charge.
	Amount decimal.Decimal

	// Method is the payment method identifier forwarded to the gateway.
	Method string

	// Reference is the idempotency reference for this charge, typically
	// the session id. Repeating a charge with the same reference must
	// not double-charge.
	Reference string
}

// Receipt is the gateway's answer to a successful charge call.
type Receipt struct {
	// ExternalID identifies the charge inside the gateway.
	ExternalID string

	// Status is StatusCaptured or StatusPending.
	Status string
}

// Captured reports whether funds were actually taken.
func (r *Receipt) Captured() bool {
	return r != nil && r.Status == StatusCaptured
}

// Gateway is the payment processor port.
type Gateway interface {
	// Charge attempts to take Amount via Method. A non-nil error means
	// no receipt; inspect the error's Kind for retryability.
	Charge(ctx context.Context, req ChargeRequest) (*Receipt, error)

	// Refund returns previously captured funds for the given charge.
	Refund(ctx context.Context, externalID string, amount decimal.Decimal) error
}
