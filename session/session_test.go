package session

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusActive, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusCancelled, false},
		{StatusActive, StatusFailed, false},
		{StatusCompleted, StatusActive, false},
		{StatusCancelled, StatusPending, false},
		{StatusFailed, StatusActive, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusActive} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
	if Status("bogus").Terminal() {
		t.Error(`Status("bogus").Terminal() = true, want false`)
	}
}

func TestCheckTransition(t *testing.T) {
	if err := CheckTransition("s1", StatusPending, StatusActive); err != nil {
		t.Errorf("pending -> active: unexpected error %v", err)
	}

	err := CheckTransition("s1", StatusCompleted, StatusActive)
	conflict, ok := err.(*StateConflictError)
	if !ok {
		t.Fatalf("error = %v, want *StateConflictError", err)
	}
	if conflict.From != StatusCompleted || conflict.To != StatusActive {
		t.Errorf("conflict = %s -> %s, want completed -> active", conflict.From, conflict.To)
	}
}

func TestMachineValidateMinutes(t *testing.T) {
	m := &Machine{ID: "w1", MinMinutes: 10, MaxMinutes: 120}

	for _, minutes := range []int{10, 60, 120} {
		if err := m.ValidateMinutes(minutes); err != nil {
			t.Errorf("ValidateMinutes(%d) = %v, want nil", minutes, err)
		}
	}
	for _, minutes := range []int{0, 9, 121, -5} {
		err := m.ValidateMinutes(minutes)
		var verr *ValidationError
		if verr, _ = err.(*ValidationError); verr == nil {
			t.Errorf("ValidateMinutes(%d) = %v, want *ValidationError", minutes, err)
		}
	}
}

func TestMachineCost(t *testing.T) {
	m := &Machine{ID: "w1", RatePerMinute: decimal.RequireFromString("0.15")}

	got := m.Cost(60)
	want := decimal.RequireFromString("9.00")
	if !got.Equal(want) {
		t.Errorf("Cost(60) = %s, want %s", got, want)
	}
}

func TestSessionScheduledEnd(t *testing.T) {
	s := &Session{Minutes: 45}
	if !s.ScheduledEnd().IsZero() {
		t.Error("ScheduledEnd() before start should be zero")
	}

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.StartTime = &start
	want := start.Add(45 * time.Minute)
	if got := s.ScheduledEnd(); !got.Equal(want) {
		t.Errorf("ScheduledEnd() = %v, want %v", got, want)
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	start := time.Now()
	s := &Session{ID: "s1", StartTime: &start}

	c := s.Clone()
	*c.StartTime = c.StartTime.Add(time.Hour)

	if !s.StartTime.Equal(start) {
		t.Error("mutating the clone's StartTime changed the original")
	}
}
