package iot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPController talks JSON to the controller bridge that relays
// commands to the machines.
type HTTPController struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPController creates a bridge client for the given base URL.
func NewHTTPController(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPController {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPController{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "iot_controller").Logger(),
	}
}

type commandBody struct {
	Minutes int `json:"minutes,omitempty"`
}

// bridgeError is the bridge's structured error payload. State carries
// the machine's own report (offline, maintenance, busy) when known.
type bridgeError struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

// Activate sends the activation command for the machine.
func (c *HTTPController) Activate(ctx context.Context, machineID string, minutes int) error {
	return c.send(ctx, machineID, "activate", commandBody{Minutes: minutes})
}

// Deactivate sends the deactivation command for the machine.
func (c *HTTPController) Deactivate(ctx context.Context, machineID string) error {
	return c.send(ctx, machineID, "deactivate", commandBody{})
}

func (c *HTTPController) send(ctx context.Context, machineID, command string, body commandBody) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindUnreachable, MachineID: machineID, Message: err.Error()}
	}

	url := fmt.Sprintf("%s/machines/%s/%s", c.baseURL, machineID, command)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindUnreachable, MachineID: machineID, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		kind := KindUnreachable
		var nerr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
			kind = KindTimeout
		}
		return &Error{Kind: kind, MachineID: machineID, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		c.log.Debug().Str("machine_id", machineID).Str("command", command).Msg("command acknowledged")
		return nil
	}

	var be bridgeError
	_ = json.NewDecoder(resp.Body).Decode(&be)

	return &Error{
		Kind:      classify(resp.StatusCode, be.State),
		MachineID: machineID,
		Message:   be.Message,
	}
}

func classify(status int, state string) Kind {
	switch state {
	case "offline":
		return KindOffline
	case "maintenance":
		return KindMaintenance
	case "busy":
		return KindBusy
	}

	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindBusy
	case status == http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindUnreachable
	}
}
