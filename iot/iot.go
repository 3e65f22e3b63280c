// Package iot defines the command channel to the machine controllers
// and an HTTP adapter for the controller bridge.
//
// Controller failures expose the machine state (offline, maintenance,
// busy) as a structured Kind so callers can tell a device that has
// reported its state apart from a link that merely flaked.
package iot

import "context"

// Controller is the machine command port.
type Controller interface {
	// Activate powers the machine on for the given number of minutes.
	// A nil error is the controller's ack.
	Activate(ctx context.Context, machineID string, minutes int) error

	// Deactivate powers the machine off.
	Deactivate(ctx context.Context, machineID string) error
}
