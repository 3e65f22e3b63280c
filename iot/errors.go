package iot

import "fmt"

// Kind classifies a controller failure.
type Kind string

// Controller failure kinds. Offline, maintenance, and not-found are
// terminal: the device has told us its state and retrying is pointless.
// The rest are transient link conditions.
const (
	KindOffline     Kind = "offline"
	KindMaintenance Kind = "maintenance"
	KindBusy        Kind = "busy"
	KindNotFound    Kind = "not_found"
	KindTimeout     Kind = "timeout"
	KindUnreachable Kind = "unreachable"
)

// Error is a classified controller failure.
type Error struct {
	Kind      Kind
	MachineID string
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("iot controller: machine %s: %s: %s", e.MachineID, e.Kind, e.Message)
}
