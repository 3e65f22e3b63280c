package session

import (
	"context"
	"time"
)

// Store is the persistence port for sessions and machines.
//
// Implementations must provide the atomicity the engine relies on: the
// conditional insert in CreateSession and the status compare-and-swap
// in Transition are the only cross-request synchronization points, so a
// plain read-then-write is not an acceptable implementation of either.
type Store interface {
	// GetMachine returns the machine or ErrMachineNotFound.
	GetMachine(ctx context.Context, id string) (*Machine, error)

	// PutMachine creates or replaces a machine.
	PutMachine(ctx context.Context, m *Machine) error

	// CreateSession atomically checks that the session's machine has no
	// pending or active session, reserves it, and inserts the session.
	// Returns ErrMachineHeld when the reservation is taken; in that
	// case nothing is inserted.
	CreateSession(ctx context.Context, s *Session) error

	// GetSession returns the session or ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// Transition atomically applies mutate to the session if its status
	// still equals from, persisting the result. Returns ErrStaleStatus
	// when the status moved concurrently and ErrSessionNotFound when the
	// id is unknown. Transition legality is the caller's concern (see
	// CheckTransition); the store only guarantees the compare-and-swap.
	Transition(ctx context.Context, id string, from Status, mutate func(*Session)) (*Session, error)

	// ReleaseMachine drops the machine's exclusivity reservation if it
	// is held by the given session. Releasing an already-released or
	// differently-held reservation is a no-op.
	ReleaseMachine(ctx context.Context, machineID, sessionID string) error

	// ListActiveBefore returns active sessions whose scheduled end is at
	// or before the cutoff, for auto-completion.
	ListActiveBefore(ctx context.Context, cutoff time.Time) ([]*Session, error)
}
