package session

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Machine is a rentable IoT-controlled appliance.
type Machine struct {
	ID   string
	Name string

	// RatePerMinute prices the machine's time.
	RatePerMinute decimal.Decimal

	// MinMinutes and MaxMinutes bound the requestable duration.
	MinMinutes int
	MaxMinutes int

	// Enabled gates whether new sessions may be created at all.
	Enabled bool
}

// ValidateMinutes checks the requested duration against the machine's
// configured bounds.
func (m *Machine) ValidateMinutes(minutes int) error {
	if minutes < m.MinMinutes || minutes > m.MaxMinutes {
		return &ValidationError{
			Field: "minutes",
			Message: fmt.Sprintf("duration must be between %d and %d minutes",
				m.MinMinutes, m.MaxMinutes),
		}
	}
	return nil
}

// Cost computes the deterministic price for the requested duration.
func (m *Machine) Cost(minutes int) decimal.Decimal {
	return m.RatePerMinute.Mul(decimal.NewFromInt(int64(minutes)))
}

// Clone returns a copy so store internals never alias caller state.
func (m *Machine) Clone() *Machine {
	c := *m
	return &c
}
