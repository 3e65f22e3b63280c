package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a usage session.
type Status string

const (
	// StatusPending means the session is created and awaits payment
	// confirmation and machine activation.
	StatusPending Status = "pending"
	// StatusActive means the machine is running.
	StatusActive Status = "active"
	// StatusCompleted means the session ended normally.
	StatusCompleted Status = "completed"
	// StatusCancelled means the session was withdrawn before activation.
	StatusCancelled Status = "cancelled"
	// StatusFailed means payment or activation could not be completed.
	StatusFailed Status = "failed"
)

// transitions is the single source of truth for legal status moves.
// Completed, cancelled, and failed are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusCancelled, StatusFailed},
	StatusActive:  {StatusCompleted},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransition reports whether s may move to the target status.
func (s Status) CanTransition(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a *StateConflictError when the move is
// illegal. All transition legality checks go through here.
func CheckTransition(sessionID string, from, to Status) error {
	if !from.CanTransition(to) {
		return &StateConflictError{SessionID: sessionID, From: from, To: to}
	}
	return nil
}

// PaymentMethod identifies how a session is paid.
type PaymentMethod string

const (
	// MethodAccountBalance debits the customer's prepaid balance.
	MethodAccountBalance PaymentMethod = "account_balance"
	// MethodInstantPayment initiates an instant-payment push that is
	// confirmed out of band.
	MethodInstantPayment PaymentMethod = "instant_payment"
	// MethodAdminCredit is granted by an operator and skips the gateway.
	MethodAdminCredit PaymentMethod = "admin_credit"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodAccountBalance, MethodInstantPayment, MethodAdminCredit:
		return true
	}
	return false
}

// RequiresConfirmation reports whether the charge is confirmed
// asynchronously, parking the session in pending until ConfirmPayment.
func (m PaymentMethod) RequiresConfirmation() bool {
	return m == MethodInstantPayment
}

// Session is one time-boxed rental of a machine.
//
// Cost is fixed at creation and never recomputed. EndTime is only set
// after StartTime. Only the orchestrator mutates a session.
type Session struct {
	ID        string
	UserID    string
	MachineID string

	// Minutes is the requested duration, within the machine's bounds.
	Minutes int

	// Cost is the price charged for the session.
	Cost decimal.Decimal

	Method PaymentMethod
	Status Status

	// PaymentRef is the gateway's charge id once a charge was initiated.
	PaymentRef string

	// Captured records whether funds were actually taken; it decides
	// whether a compensating refund is owed on failure.
	Captured bool

	StartTime *time.Time
	EndTime   *time.Time
	CreatedAt time.Time
}

// ScheduledEnd returns the instant the session is due to auto-complete.
// Zero when the session has not started.
func (s *Session) ScheduledEnd() time.Time {
	if s.StartTime == nil {
		return time.Time{}
	}
	return s.StartTime.Add(time.Duration(s.Minutes) * time.Minute)
}

// Clone returns a deep copy so store internals never alias caller state.
func (s *Session) Clone() *Session {
	c := *s
	if s.StartTime != nil {
		t := *s.StartTime
		c.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return &c
}
