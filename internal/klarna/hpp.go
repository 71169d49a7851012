package klarna

import (
	"context"
	"net/http"
	"net/url"
)

// PlaceOrderMode controls what the hosted payment page does once the
// customer completes the flow.
type PlaceOrderMode string

const (
	PlaceOrderModePlaceOrder   PlaceOrderMode = "PLACE_ORDER"
	PlaceOrderModeCaptureOrder PlaceOrderMode = "CAPTURE_ORDER"
	PlaceOrderModeNone         PlaceOrderMode = "NONE"
)

// HPPSessionRequest creates a hosted-payment-page session around an
// existing payment session.
type HPPSessionRequest struct {
	PaymentSessionURL string             `json:"payment_session_url"`
	MerchantURLs      HPPMerchantURLs    `json:"merchant_urls"`
	Options           *HPPSessionOptions `json:"options,omitempty"`
}

// HPPMerchantURLs are the return URLs the hosted page redirects to.
type HPPMerchantURLs struct {
	Success      string `json:"success"`
	Cancel       string `json:"cancel"`
	Back         string `json:"back"`
	Failure      string `json:"failure"`
	Error        string `json:"error"`
	StatusUpdate string `json:"status_update,omitempty"`
}

// HPPSessionOptions tune hosted page behaviour.
type HPPSessionOptions struct {
	PlaceOrderMode PlaceOrderMode `json:"place_order_mode,omitempty"`
}

// HPPSessionResponse describes a hosted-payment-page session.
type HPPSessionResponse struct {
	SessionID          string `json:"session_id,omitempty"`
	SessionURL         string `json:"session_url,omitempty"`
	PaymentSessionURL  string `json:"payment_session_url,omitempty"`
	AuthorizationToken string `json:"authorization_token,omitempty"`
	OrderID            string `json:"order_id,omitempty"`
	Status             string `json:"status,omitempty"`
}

// HPPService manages hosted-payment-page sessions.
type HPPService struct {
	client *Client
}

// NewHPPService binds the service to a client.
func NewHPPService(client *Client) *HPPService {
	return &HPPService{client: client}
}

// CreateSession opens a hosted-payment-page session.
//
// POST /hpp/v1/sessions
func (s *HPPService) CreateSession(ctx context.Context, req HPPSessionRequest) (*HPPSessionResponse, error) {
	resp, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/hpp/v1/sessions",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	var out HPPSessionResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession reads a hosted-payment-page session by id.
//
// GET /hpp/v1/sessions/{sessionID}
func (s *HPPService) GetSession(ctx context.Context, sessionID string) (*HPPSessionResponse, error) {
	return s.getSession(ctx, "/hpp/v1/sessions/"+url.PathEscape(sessionID))
}

// GetSessionByURL reads a hosted-payment-page session via the absolute
// session URL the provider handed back.
func (s *HPPService) GetSessionByURL(ctx context.Context, sessionURL string) (*HPPSessionResponse, error) {
	return s.getSession(ctx, sessionURL)
}

func (s *HPPService) getSession(ctx context.Context, path string) (*HPPSessionResponse, error) {
	resp, err := s.client.Do(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	var out HPPSessionResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
