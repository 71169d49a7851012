package klarna

import (
	"context"
	"net/http"
	"net/url"
)

// CustomerTokenCreateRequest is the body for creating a customer token.
type CustomerTokenCreateRequest struct {
	Customer       *Customer `json:"customer,omitempty"`
	BillingAddress *Address  `json:"billing_address,omitempty"`
	Description    string    `json:"description,omitempty"`
}

// CustomerTokenResponse is returned when a customer token is created.
type CustomerTokenResponse struct {
	CustomerTokenID   string `json:"customer_token_id"`
	Status            string `json:"status,omitempty"`
	PaymentMethodType string `json:"payment_method_type,omitempty"`
	RedirectURL       string `json:"redirect_url,omitempty"`
}

// CustomerTokenDetails is the full token record read back by id.
type CustomerTokenDetails struct {
	CustomerTokenID   string                      `json:"customer_token_id"`
	Status            string                      `json:"status,omitempty"`
	PaymentMethodType string                      `json:"payment_method_type,omitempty"`
	PaymentMethod     *CustomerTokenPaymentMethod `json:"payment_method,omitempty"`
	BillingAddress    *Address                    `json:"billing_address,omitempty"`
	Customer          *Customer                   `json:"customer,omitempty"`
}

// CustomerTokenPaymentMethod describes the stored payment method.
type CustomerTokenPaymentMethod struct {
	Type    string `json:"type,omitempty"`
	TokenID string `json:"token_id,omitempty"`
}

// CustomerTokensService reads customer tokens and places orders with them.
type CustomerTokensService struct {
	client *Client
}

// NewCustomerTokensService binds the service to a client.
func NewCustomerTokensService(client *Client) *CustomerTokensService {
	return &CustomerTokensService{client: client}
}

// Read fetches the details of an existing customer token.
//
// GET /customer-token/v1/tokens/{customerToken}
func (s *CustomerTokensService) Read(ctx context.Context, customerToken string) (*CustomerTokenDetails, error) {
	resp, err := s.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "/customer-token/v1/tokens/" + url.PathEscape(customerToken),
	})
	if err != nil {
		return nil, err
	}
	var out CustomerTokenDetails
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder places an order against a stored customer token.
//
// POST /customer-token/v1/tokens/{customerToken}/order
func (s *CustomerTokensService) CreateOrder(ctx context.Context, customerToken string, req OrderRequest) (*OrderResponse, error) {
	resp, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/customer-token/v1/tokens/" + url.PathEscape(customerToken) + "/order",
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
