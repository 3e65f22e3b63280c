// Package httpapi implements the HTTP transport for the session
// service. Handlers translate wire requests into service calls and map
// domain errors onto HTTP statuses by their classification kind.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/washpoint/washpoint/session"
)

type sessionService interface {
	CreateSession(ctx context.Context, userID, machineID string, minutes int, method session.PaymentMethod) (*session.Session, error)
	ActivateSession(ctx context.Context, sessionID string) (*session.Session, error)
	ConfirmPayment(ctx context.Context, sessionID, externalRef string) (*session.Session, error)
	TerminateSession(ctx context.Context, sessionID string) (*session.Session, error)
	CancelSession(ctx context.Context, sessionID string) (*session.Session, error)
	GetSession(ctx context.Context, sessionID string) (*session.Session, error)
}

// Handler serves the session API.
type Handler struct {
	service sessionService
	log     zerolog.Logger
}

// New returns a Handler for the given session service. It panics if
// service is nil.
func New(service sessionService, log zerolog.Logger) *Handler {
	if service == nil {
		panic("httpapi.New: nil session service")
	}
	return &Handler{
		service: service,
		log:     log.With().Str("component", "httpapi").Logger(),
	}
}

// Routes returns the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions", h.handleCreate)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.handleGet)
	mux.HandleFunc("POST /api/v1/sessions/{id}/activate", h.handleActivate)
	mux.HandleFunc("POST /api/v1/sessions/{id}/confirm-payment", h.handleConfirmPayment)
	mux.HandleFunc("POST /api/v1/sessions/{id}/terminate", h.handleTerminate)
	mux.HandleFunc("POST /api/v1/sessions/{id}/cancel", h.handleCancel)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, sessionEnvelope{
			Error: &errorPayload{Kind: "bad_request", Message: "invalid JSON"},
		})
		return
	}

	sess, err := h.service.CreateSession(r.Context(), req.UserID, req.MachineID, req.Minutes, session.PaymentMethod(req.PaymentMethod))
	if err == nil {
		writeJSON(w, http.StatusCreated, sessionEnvelope{Session: toSessionResponse(sess)})
		return
	}
	h.writeResult(w, r, sess, err)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.GetSession(r.Context(), r.PathValue("id"))
	h.writeResult(w, r, sess, err)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.ActivateSession(r.Context(), r.PathValue("id"))
	h.writeResult(w, r, sess, err)
}

func (h *Handler) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, sessionEnvelope{
				Error: &errorPayload{Kind: "bad_request", Message: "invalid JSON"},
			})
			return
		}
	}

	sess, err := h.service.ConfirmPayment(r.Context(), r.PathValue("id"), req.ExternalRef)
	h.writeResult(w, r, sess, err)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.TerminateSession(r.Context(), r.PathValue("id"))
	h.writeResult(w, r, sess, err)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.CancelSession(r.Context(), r.PathValue("id"))
	h.writeResult(w, r, sess, err)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeResult renders the session plus any error. A failed operation
// can still carry the session's final state, e.g. a failed activation
// returns the session marked failed next to the error payload.
func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	env := sessionEnvelope{}
	if sess != nil {
		env.Session = toSessionResponse(sess)
	}
	if err != nil {
		kind := errorKind(err)
		env.Error = &errorPayload{Kind: kind, Message: errorMessage(err)}
		if kind == "internal" {
			h.log.Error().Err(err).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request failed")
		}
	}
	writeJSON(w, httpStatus(err), env)
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
