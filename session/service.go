package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/washpoint/washpoint/iot"
	"github.com/washpoint/washpoint/metrics"
	"github.com/washpoint/washpoint/payment"
	"github.com/washpoint/washpoint/policy"
)

// Service orchestrates the session lifecycle: it enforces the
// one-active-session-per-machine invariant, drives payment
// confirmation, sends machine commands through the resilience layer,
// and runs the compensating actions when a later step fails.
//
// Service is the only component that mutates sessions. Its operations
// are safe under arbitrary interleaving: every cross-request decision
// rides on the store's atomic primitives, and no lock is held across a
// gateway or controller call.
type Service struct {
	store      Store
	gateway    payment.Gateway
	controller iot.Controller
	payPolicy  *policy.Payment
	iotPolicy  *policy.IoT
	log        zerolog.Logger

	// now is the clock, replaced in tests.
	now func() time.Time
}

// NewService wires the orchestrator.
func NewService(store Store, gateway payment.Gateway, controller iot.Controller,
	payPolicy *policy.Payment, iotPolicy *policy.IoT, log zerolog.Logger) *Service {
	return &Service{
		store:      store,
		gateway:    gateway,
		controller: controller,
		payPolicy:  payPolicy,
		iotPolicy:  iotPolicy,
		log:        log.With().Str("component", "session_service").Logger(),
		now:        time.Now,
	}
}

// CreateSession admits a rental request: validates the duration against
// the machine's bounds, atomically reserves the machine, prices the
// session, and drives payment. Methods confirmed out of band return the
// session still pending; everything else proceeds straight to
// activation.
func (s *Service) CreateSession(ctx context.Context, userID, machineID string, minutes int, method PaymentMethod) (*Session, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "required"}
	}
	if machineID == "" {
		return nil, &ValidationError{Field: "machineId", Message: "required"}
	}
	if !method.Valid() {
		return nil, &ValidationError{Field: "paymentMethod", Message: fmt.Sprintf("unknown method %q", method)}
	}

	machine, err := s.store.GetMachine(ctx, machineID)
	if errors.Is(err, ErrMachineNotFound) {
		return nil, &ValidationError{Field: "machineId", Message: "unknown machine"}
	}
	if err != nil {
		return nil, err
	}
	if !machine.Enabled {
		return nil, &ValidationError{Field: "machineId", Message: "machine is not available for rental"}
	}
	if err := machine.ValidateMinutes(minutes); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		MachineID: machineID,
		Minutes:   minutes,
		Cost:      machine.Cost(minutes),
		Method:    method,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.CreateSession(ctx, sess); err != nil {
		if errors.Is(err, ErrMachineHeld) {
			return nil, &ConflictError{MachineID: machineID}
		}
		return nil, err
	}

	metrics.SessionsCreated.WithLabelValues(string(method)).Inc()
	s.log.Info().
		Str("session_id", sess.ID).
		Str("machine_id", machineID).
		Int("minutes", minutes).
		Str("method", string(method)).
		Str("cost", sess.Cost.StringFixed(2)).
		Msg("session created")

	if method == MethodAdminCredit {
		// Operator-granted time skips the gateway entirely.
		return s.activate(ctx, sess)
	}

	charged, err := s.charge(ctx, sess)
	if err != nil {
		if failed, ferr := s.failSession(ctx, sess); ferr == nil {
			sess = failed
		}
		return sess, err
	}
	sess = charged

	if sess.Method.RequiresConfirmation() && !sess.Captured {
		// Awaiting the gateway's out-of-band confirmation.
		return sess, nil
	}

	return s.activate(ctx, sess)
}

// ConfirmPayment records the out-of-band confirmation of an instant
// payment and proceeds to activation. Redelivered confirmations for an
// already-active session are a no-op.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID, externalRef string) (*Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case StatusPending:
	case StatusActive:
		return sess, nil
	default:
		return sess, &StateConflictError{SessionID: sessionID, From: sess.Status, To: StatusActive}
	}

	sess, err = s.store.Transition(ctx, sessionID, StatusPending, func(cur *Session) {
		if externalRef != "" {
			cur.PaymentRef = externalRef
		}
		cur.Captured = true
	})
	if err != nil {
		return nil, err
	}

	return s.activate(ctx, sess)
}

// ActivateSession sends the activation command for a pending session.
// Calling it on an already-active session is an idempotent no-op: no
// state change, no duplicate machine command.
func (s *Service) ActivateSession(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case StatusPending:
	case StatusActive:
		return sess, nil
	default:
		return sess, &StateConflictError{SessionID: sessionID, From: sess.Status, To: StatusActive}
	}

	if sess.Method.RequiresConfirmation() && !sess.Captured {
		return sess, &ValidationError{Field: "payment", Message: "payment has not been confirmed"}
	}

	return s.activate(ctx, sess)
}

// TerminateSession ends an active session: completed status, end time,
// reservation release, and a best-effort deactivation command. A
// deactivation failure never reopens the session.
func (s *Service) TerminateSession(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(sessionID, sess.Status, StatusCompleted); err != nil {
		return sess, err
	}

	end := s.now().UTC()
	updated, err := s.store.Transition(ctx, sessionID, StatusActive, func(cur *Session) {
		cur.Status = StatusCompleted
		cur.EndTime = &end
	})
	if err != nil {
		return sess, err
	}

	if rerr := s.store.ReleaseMachine(ctx, updated.MachineID, updated.ID); rerr != nil {
		s.log.Warn().Err(rerr).Str("session_id", updated.ID).Msg("reservation release failed")
	}

	if _, derr := s.iotPolicy.Execute(ctx, func(ctx context.Context) error {
		return s.controller.Deactivate(ctx, updated.MachineID)
	}); derr != nil {
		s.log.Warn().Err(derr).Str("session_id", updated.ID).Msg("machine deactivation failed")
	}

	metrics.SessionTransitions.WithLabelValues(string(StatusCompleted)).Inc()
	s.log.Info().Str("session_id", updated.ID).Msg("session completed")
	return updated, nil
}

// CancelSession withdraws a pending session before activation,
// releasing the machine and refunding any captured charge.
func (s *Service) CancelSession(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(sessionID, sess.Status, StatusCancelled); err != nil {
		return sess, err
	}

	updated, err := s.store.Transition(ctx, sessionID, StatusPending, func(cur *Session) {
		cur.Status = StatusCancelled
	})
	if err != nil {
		return sess, err
	}

	if rerr := s.store.ReleaseMachine(ctx, updated.MachineID, updated.ID); rerr != nil {
		s.log.Warn().Err(rerr).Str("session_id", updated.ID).Msg("reservation release failed")
	}
	if updated.Captured && updated.PaymentRef != "" {
		s.refund(ctx, updated)
	}

	metrics.SessionTransitions.WithLabelValues(string(StatusCancelled)).Inc()
	s.log.Info().Str("session_id", updated.ID).Msg("session cancelled")
	return updated, nil
}

// GetSession returns the current session snapshot.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// charge runs the gateway charge under the payment policy and stamps
// the resulting reference onto the still-pending session.
func (s *Service) charge(ctx context.Context, sess *Session) (*Session, error) {
	var receipt *payment.Receipt
	report, err := s.payPolicy.Execute(ctx, func(ctx context.Context) error {
		r, cerr := s.gateway.Charge(ctx, payment.ChargeRequest{
			Amount:    sess.Cost,
			Method:    string(sess.Method),
			Reference: sess.ID,
		})
		if cerr != nil {
			return cerr
		}
		receipt = r
		return nil
	})
	metrics.DependencyAttempts.WithLabelValues("payment").Add(float64(report.Attempts))
	if err != nil {
		return nil, err
	}

	return s.store.Transition(ctx, sess.ID, StatusPending, func(cur *Session) {
		cur.PaymentRef = receipt.ExternalID
		cur.Captured = receipt.Captured()
	})
}

// activate sends the machine command through the IoT policy and flips
// the session to active. Concurrent activators race on the status
// compare-and-swap; the loser adopts the winner's result.
func (s *Service) activate(ctx context.Context, sess *Session) (*Session, error) {
	if err := CheckTransition(sess.ID, sess.Status, StatusActive); err != nil {
		return sess, err
	}

	report, err := s.iotPolicy.Execute(ctx, func(ctx context.Context) error {
		return s.controller.Activate(ctx, sess.MachineID, sess.Minutes)
	})
	metrics.DependencyAttempts.WithLabelValues("iot").Add(float64(report.Attempts))
	if err != nil {
		metrics.SessionActivations.WithLabelValues("failed").Inc()
		s.log.Error().Err(err).
			Str("session_id", sess.ID).
			Int("attempts", report.Attempts).
			Msg("machine activation failed")

		if failed, ferr := s.failSession(ctx, sess); ferr == nil {
			sess = failed
		}
		return sess, err
	}

	start := s.now().UTC()
	updated, terr := s.store.Transition(ctx, sess.ID, StatusPending, func(cur *Session) {
		cur.Status = StatusActive
		cur.StartTime = &start
	})
	if terr != nil {
		if errors.Is(terr, ErrStaleStatus) {
			cur, gerr := s.store.GetSession(ctx, sess.ID)
			if gerr != nil {
				return nil, gerr
			}
			if cur.Status == StatusActive {
				return cur, nil
			}
			return cur, &StateConflictError{SessionID: sess.ID, From: cur.Status, To: StatusActive}
		}
		return sess, terr
	}

	metrics.SessionActivations.WithLabelValues("success").Inc()
	s.log.Info().
		Str("session_id", updated.ID).
		Str("machine_id", updated.MachineID).
		Int("attempts", report.Attempts).
		Msg("session active")
	return updated, nil
}

// failSession is the compensation path for a pending session: failed
// status, reservation release, and a refund when funds were captured.
func (s *Service) failSession(ctx context.Context, sess *Session) (*Session, error) {
	failed, err := s.store.Transition(ctx, sess.ID, StatusPending, func(cur *Session) {
		cur.Status = StatusFailed
	})
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID).Msg("could not mark session failed")
		return nil, err
	}

	if rerr := s.store.ReleaseMachine(ctx, failed.MachineID, failed.ID); rerr != nil {
		s.log.Error().Err(rerr).Str("session_id", failed.ID).Msg("reservation release failed")
	}

	metrics.SessionTransitions.WithLabelValues(string(StatusFailed)).Inc()

	if failed.Captured && failed.PaymentRef != "" {
		s.refund(ctx, failed)
	}
	return failed, nil
}

// refund compensates a captured charge. A refund failure is logged for
// manual review; there is nothing further to unwind.
func (s *Service) refund(ctx context.Context, sess *Session) {
	_, err := s.payPolicy.Execute(ctx, func(ctx context.Context) error {
		return s.gateway.Refund(ctx, sess.PaymentRef, sess.Cost)
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("session_id", sess.ID).
			Str("payment_ref", sess.PaymentRef).
			Msg("compensating refund failed, needs manual review")
		return
	}

	metrics.RefundsTotal.Inc()
	s.log.Info().
		Str("session_id", sess.ID).
		Str("payment_ref", sess.PaymentRef).
		Str("amount", sess.Cost.StringFixed(2)).
		Msg("compensating refund issued")
}
