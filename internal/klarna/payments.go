package klarna

import (
	"context"
	"net/http"
	"net/url"
)

// PaymentsService drives the payment-session half of the checkout flow:
// session creation before the customer authorizes, order creation after.
type PaymentsService struct {
	client *Client
}

// NewPaymentsService binds the service to a client.
func NewPaymentsService(client *Client) *PaymentsService {
	return &PaymentsService{client: client}
}

// CreateSession creates a new payment session.
//
// POST /payments/v1/sessions
func (s *PaymentsService) CreateSession(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	resp, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/payments/v1/sessions",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	var out SessionResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder places an order using the authorization token obtained from
// the client-side authorize step. The token is single-use; reuse is
// rejected server-side.
//
// POST /payments/v1/authorizations/{authorizationToken}/order
func (s *PaymentsService) CreateOrder(ctx context.Context, authorizationToken string, req OrderRequest) (*OrderResponse, error) {
	resp, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/payments/v1/authorizations/" + url.PathEscape(authorizationToken) + "/order",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	var out OrderResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCustomerToken exchanges an authorization for a reusable customer
// token.
//
// POST /payments/v1/authorizations/{authorizationToken}/customer-token
func (s *PaymentsService) CreateCustomerToken(ctx context.Context, authorizationToken string, req CustomerTokenCreateRequest) (*CustomerTokenResponse, error) {
	resp, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/payments/v1/authorizations/" + url.PathEscape(authorizationToken) + "/customer-token",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	var out CustomerTokenResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
