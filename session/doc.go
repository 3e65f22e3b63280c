// Package session implements the usage session engine: the session and
// machine models, the status state machine, the store port with its
// in-memory backend, and the orchestrator that turns an activation
// request into a paid, hardware-activated, guaranteed-exclusive session.
//
// At most one session per machine may be pending or active at any
// instant. The store enforces this with an atomic check-and-reserve on
// session creation; the orchestrator is the only component that mutates
// sessions and the only one allowed to run compensating actions (refund,
// reservation release) when a later step fails.
package session
