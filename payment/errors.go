package payment

import "fmt"

// Kind classifies a gateway failure.
type Kind string

// Gateway failure kinds. Declined, insufficient funds, and invalid
// requests are terminal; the rest are transient conditions worth
// retrying.
const (
	KindDeclined          Kind = "declined"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindInvalid           Kind = "invalid"
	KindUnavailable       Kind = "unavailable"
	KindNetwork           Kind = "network"
	KindTimeout           Kind = "timeout"
)

// Error is a classified payment gateway failure.
type Error struct {
	Kind    Kind
	Status  int // HTTP status when the gateway answered, 0 otherwise
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("payment gateway: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("payment gateway: %s: %s", e.Kind, e.Message)
}
