package httpapi

import (
	"time"

	"github.com/washpoint/washpoint/session"
)

// createSessionRequest is the body of POST /api/v1/sessions.
type createSessionRequest struct {
	UserID        string `json:"userId"`
	MachineID     string `json:"machineId"`
	Minutes       int    `json:"minutes"`
	PaymentMethod string `json:"paymentMethod"`
}

// confirmPaymentRequest is the body of POST /api/v1/sessions/{id}/confirm-payment.
type confirmPaymentRequest struct {
	ExternalRef string `json:"externalRef"`
}

// errorPayload carries a machine-readable kind and a customer-safe
// message.
type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// sessionResponse is the wire form of a session.
type sessionResponse struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	MachineID     string     `json:"machineId"`
	Minutes       int        `json:"minutes"`
	Cost          string     `json:"cost"`
	PaymentMethod string     `json:"paymentMethod"`
	Status        string     `json:"status"`
	PaymentRef    string     `json:"paymentRef,omitempty"`
	StartTime     *time.Time `json:"startTime,omitempty"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	ScheduledEnd  *time.Time `json:"scheduledEnd,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// sessionEnvelope wraps every session endpoint's response.
type sessionEnvelope struct {
	Session *sessionResponse `json:"session,omitempty"`
	Error   *errorPayload    `json:"error,omitempty"`
}

func toSessionResponse(s *session.Session) *sessionResponse {
	resp := &sessionResponse{
		ID:            s.ID,
		UserID:        s.UserID,
		MachineID:     s.MachineID,
		Minutes:       s.Minutes,
		Cost:          s.Cost.StringFixed(2),
		PaymentMethod: string(s.Method),
		Status:        string(s.Status),
		PaymentRef:    s.PaymentRef,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		CreatedAt:     s.CreatedAt,
	}
	if s.StartTime != nil {
		end := s.ScheduledEnd()
		resp.ScheduledEnd = &end
	}
	return resp
}
