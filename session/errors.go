package session

import (
	"errors"
	"fmt"
)

// Store sentinel errors.
var (
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMachineNotFound is returned when a machine id is unknown.
	ErrMachineNotFound = errors.New("machine not found")

	// ErrMachineHeld is returned by the atomic check-and-reserve when
	// the machine already has a pending or active session.
	ErrMachineHeld = errors.New("machine already has a pending or active session")

	// ErrStaleStatus is returned by a status compare-and-swap when the
	// session moved concurrently.
	ErrStaleStatus = errors.New("session status changed concurrently")
)

// ValidationError rejects bad input. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Kind identifies the error class for transport mapping.
func (e *ValidationError) Kind() string { return "validation" }

// ConflictError reports an exclusivity violation: the machine already
// has a non-terminal session. The caller must pick another machine or
// wait. Never retried.
type ConflictError struct {
	MachineID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("machine %s is currently in use", e.MachineID)
}

// Kind identifies the error class for transport mapping.
func (e *ConflictError) Kind() string { return "conflict" }

// StateConflictError reports an illegal session status transition.
type StateConflictError struct {
	SessionID string
	From      Status
	To        Status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("session %s: illegal transition %s -> %s", e.SessionID, e.From, e.To)
}

// Kind identifies the error class for transport mapping.
func (e *StateConflictError) Kind() string { return "state_conflict" }
