package payment

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
	"github.com/shopspring/decimal"
)

// HTTPGateway talks JSON to the payment processor.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// HTTPGatewayOption configures an HTTPGateway.
type HTTPGatewayOption func(*HTTPGateway)

// WithAPIKey sends the key as a bearer token on every request.
func WithAPIKey(key string) HTTPGatewayOption {
	return func(g *HTTPGateway) {
		g.apiKey = key
	}
}

// NewHTTPGateway creates a gateway client for the given base URL.
func NewHTTPGateway(baseURL string, timeout time.Duration, log zerolog.Logger, opts ...HTTPGatewayOption) *HTTPGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	g := &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "payment_gateway").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type chargeBody struct {
	Amount    string `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

type chargeResponse struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Charge posts the charge to the gateway.
func (g *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (*Receipt, error) {
	body, err := json.Marshal(chargeBody{
		Amount:    req.Amount.StringFixed(2),
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Message: err.Error()}
	}
	g.setHeaders(httpReq)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var cr chargeResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return nil, &Error{Kind: KindUnavailable, Status: resp.StatusCode, Message: "malformed gateway response"}
		}
		g.log.Debug().Str("reference", req.Reference).Str("status", cr.Status).Msg("charge accepted")
		return &Receipt{ExternalID: cr.ExternalID, Status: cr.Status}, nil
	}

	return nil, g.responseError(resp)
}

// Refund reverses a captured charge. The gateway treats refunds as
// idempotent on externalID.
func (g *HTTPGateway) Refund(ctx context.Context, externalID string, amount decimal.Decimal) error {
	body, err := json.Marshal(map[string]string{"amount": amount.StringFixed(2)})
	if err != nil {
		return &Error{Kind: KindInvalid, Message: err.Error()}
	}

	url := fmt.Sprintf("%s/charges/%s/refund", g.baseURL, externalID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindInvalid, Message: err.Error()}
	}
	g.setHeaders(httpReq)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		g.log.Info().Str("external_id", externalID).Str("amount", amount.StringFixed(2)).Msg("refund issued")
		return nil
	}

	return g.responseError(resp)
}

func (g *HTTPGateway) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}

func (g *HTTPGateway) responseError(resp *http.Response) *Error {
	var er errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&er)

	kind := KindUnavailable
	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		kind = KindDeclined
		if er.Code == "insufficient_funds" {
			kind = KindInsufficientFunds
		}
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest:
		kind = KindInvalid
	case resp.StatusCode >= 500:
		kind = KindUnavailable
	}

	return &Error{Kind: kind, Status: resp.StatusCode, Message: er.Message}
}

func transportError(err error) *Error {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return &Error{Kind: KindTimeout, Message: err.Error()}
	}
	return &Error{Kind: KindNetwork, Message: err.Error()}
}
