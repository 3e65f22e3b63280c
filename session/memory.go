package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-node setups.
// All invariants are enforced under one mutex.
type MemoryStore struct {
	mu       sync.Mutex
	machines map[string]*Machine
	sessions map[string]*Session
	holders  map[string]string // machineID -> session holding the reservation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		machines: make(map[string]*Machine),
		sessions: make(map[string]*Session),
		holders:  make(map[string]string),
	}
}

// GetMachine returns the machine or ErrMachineNotFound.
func (ms *MemoryStore) GetMachine(ctx context.Context, id string) (*Machine, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	m, ok := ms.machines[id]
	if !ok {
		return nil, ErrMachineNotFound
	}
	return m.Clone(), nil
}

// PutMachine creates or replaces a machine.
func (ms *MemoryStore) PutMachine(ctx context.Context, m *Machine) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.machines[m.ID] = m.Clone()
	return nil
}

// CreateSession inserts the session and reserves its machine in one
// critical section.
func (ms *MemoryStore) CreateSession(ctx context.Context, s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, held := ms.holders[s.MachineID]; held {
		return ErrMachineHeld
	}
	ms.holders[s.MachineID] = s.ID
	ms.sessions[s.ID] = s.Clone()
	return nil
}

// GetSession returns the session or ErrSessionNotFound.
func (ms *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Transition compare-and-swaps the session status under the lock.
func (ms *MemoryStore) Transition(ctx context.Context, id string, from Status, mutate func(*Session)) (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Status != from {
		return nil, ErrStaleStatus
	}

	updated := s.Clone()
	mutate(updated)
	ms.sessions[id] = updated
	return updated.Clone(), nil
}

// ReleaseMachine drops the reservation if held by sessionID.
func (ms *MemoryStore) ReleaseMachine(ctx context.Context, machineID, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.holders[machineID] == sessionID {
		delete(ms.holders, machineID)
	}
	return nil
}

// ListActiveBefore returns active sessions due at or before cutoff.
func (ms *MemoryStore) ListActiveBefore(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var due []*Session
	for _, s := range ms.sessions {
		if s.Status != StatusActive || s.StartTime == nil {
			continue
		}
		if !s.ScheduledEnd().After(cutoff) {
			due = append(due, s.Clone())
		}
	}
	return due, nil
}
