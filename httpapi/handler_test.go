package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/washpoint/washpoint/iot"
	"github.com/washpoint/washpoint/payment"
	"github.com/washpoint/washpoint/policy"
	"github.com/washpoint/washpoint/session"
)

// okGateway captures every charge.
type okGateway struct{}

func (okGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.Receipt, error) {
	return &payment.Receipt{ExternalID: "ch_" + req.Reference, Status: payment.StatusCaptured}, nil
}

func (okGateway) Refund(ctx context.Context, externalID string, amount decimal.Decimal) error {
	return nil
}

// okController acks every command; offlineController reports the
// machine offline.
type okController struct{}

func (okController) Activate(ctx context.Context, machineID string, minutes int) error { return nil }

func (okController) Deactivate(ctx context.Context, machineID string) error { return nil }

type offlineController struct{}

func (offlineController) Activate(ctx context.Context, machineID string, minutes int) error {
	return &iot.Error{Kind: iot.KindOffline, MachineID: machineID, Message: "offline"}
}

func (offlineController) Deactivate(ctx context.Context, machineID string) error { return nil }

func newTestServer(t *testing.T, gw payment.Gateway, ctrl iot.Controller) *httptest.Server {
	t.Helper()

	store := session.NewMemoryStore()
	err := store.PutMachine(context.Background(), &session.Machine{
		ID:            "washer-1",
		Name:          "Washer 1",
		RatePerMinute: decimal.RequireFromString("0.50"),
		MinMinutes:    10,
		MaxMinutes:    120,
		Enabled:       true,
	})
	if err != nil {
		t.Fatalf("PutMachine: %v", err)
	}

	pay := policy.NewPayment(policy.PaymentConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}, nil, zerolog.Nop())
	iotp := policy.NewIoT(policy.IoTConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}, nil, zerolog.Nop())

	svc := session.NewService(store, gw, ctrl, pay, iotp, zerolog.Nop())
	srv := httptest.NewServer(New(svc, zerolog.Nop()).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, sessionEnvelope) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var env sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, env
}

func TestCreateSession_Created(t *testing.T) {
	srv := newTestServer(t, okGateway{}, okController{})

	resp, env := postJSON(t, srv.URL+"/api/v1/sessions",
		`{"userId":"u1","machineId":"washer-1","minutes":30,"paymentMethod":"account_balance"}`)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if env.Session == nil {
		t.Fatal("response has no session")
	}
	if env.Session.Status != "active" {
		t.Errorf("Status = %q, want active", env.Session.Status)
	}
	if env.Session.Cost != "15.00" {
		t.Errorf("Cost = %q, want 15.00", env.Session.Cost)
	}
	if env.Session.ScheduledEnd == nil {
		t.Error("ScheduledEnd missing on an active session")
	}
}

func TestCreateSession_BadRequests(t *testing.T) {
	srv := newTestServer(t, okGateway{}, okController{})

	tests := []struct {
		name string
		body string
		kind string
	}{
		{"invalid json", `{`, "bad_request"},
		{"unknown field", `{"user":"u1"}`, "bad_request"},
		{"missing user", `{"machineId":"washer-1","minutes":30,"paymentMethod":"account_balance"}`, "validation"},
		{"bad minutes", `{"userId":"u1","machineId":"washer-1","minutes":2,"paymentMethod":"account_balance"}`, "validation"},
		{"bad method", `{"userId":"u1","machineId":"washer-1","minutes":30,"paymentMethod":"barter"}`, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := postJSON(t, srv.URL+"/api/v1/sessions", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if env.Error == nil || env.Error.Kind != tt.kind {
				t.Errorf("error = %+v, want kind %q", env.Error, tt.kind)
			}
		})
	}
}

func TestCreateSession_MachineConflict(t *testing.T) {
	srv := newTestServer(t, okGateway{}, okController{})
	body := `{"userId":"u1","machineId":"washer-1","minutes":30,"paymentMethod":"account_balance"}`

	if resp, _ := postJSON(t, srv.URL+"/api/v1/sessions", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create status = %d, want 201", resp.StatusCode)
	}

	resp, env := postJSON(t, srv.URL+"/api/v1/sessions", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second create status = %d, want 409", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Kind != "conflict" {
		t.Errorf("error = %+v, want kind conflict", env.Error)
	}
}

func TestCreateSession_MachineOffline(t *testing.T) {
	srv := newTestServer(t, okGateway{}, offlineController{})

	resp, env := postJSON(t, srv.URL+"/api/v1/sessions",
		`{"userId":"u1","machineId":"washer-1","minutes":30,"paymentMethod":"account_balance"}`)

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Kind != "iot" {
		t.Fatalf("error = %+v, want kind iot", env.Error)
	}
	// The failed session still rides along so the client can show it.
	if env.Session == nil || env.Session.Status != "failed" {
		t.Errorf("session = %+v, want status failed", env.Session)
	}
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t, okGateway{}, okController{})

	_, created := postJSON(t, srv.URL+"/api/v1/sessions",
		`{"userId":"u1","machineId":"washer-1","minutes":30,"paymentMethod":"account_balance"}`)
	id := created.Session.ID

	// Redelivered activation is a 200 no-op.
	resp, env := postJSON(t, srv.URL+"/api/v1/sessions/"+id+"/activate", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d, want 200", resp.StatusCode)
	}
	if env.Session.Status != "active" {
		t.Errorf("Status = %q, want active", env.Session.Status)
	}

	// GET returns the same session.
	getResp, err := http.Get(srv.URL + "/api/v1/sessions/" + id)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", getResp.StatusCode)
	}

	// Terminate completes the session.
	resp, env = postJSON(t, srv.URL+"/api/v1/sessions/"+id+"/terminate", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("terminate status = %d, want 200", resp.StatusCode)
	}
	if env.Session.Status != "completed" {
		t.Errorf("Status = %q, want completed", env.Session.Status)
	}

	// Cancelling a completed session is a state conflict.
	resp, env = postJSON(t, srv.URL+"/api/v1/sessions/"+id+"/cancel", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cancel status = %d, want 409", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Kind != "state_conflict" {
		t.Errorf("error = %+v, want kind state_conflict", env.Error)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	srv := newTestServer(t, okGateway{}, okController{})

	resp, err := http.Get(srv.URL + "/api/v1/sessions/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var env sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if env.Error == nil || env.Error.Kind != "not_found" {
		t.Errorf("error = %+v, want kind not_found", env.Error)
	}
}
