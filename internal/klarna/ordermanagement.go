package klarna

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

const headerIdempotencyKey = "Klarna-Idempotency-Key"

// OrderDetails is the order-management view of an order.
type OrderDetails struct {
	OrderID                   string      `json:"order_id"`
	Status                    string      `json:"status,omitempty"`
	FraudStatus               string      `json:"fraud_status,omitempty"`
	PurchaseCountry           string      `json:"purchase_country,omitempty"`
	PurchaseCurrency          string      `json:"purchase_currency,omitempty"`
	Locale                    string      `json:"locale,omitempty"`
	OrderAmount               int64       `json:"order_amount,omitempty"`
	CapturedAmount            int64       `json:"captured_amount,omitempty"`
	RefundedAmount            int64       `json:"refunded_amount,omitempty"`
	RemainingAuthorizedAmount int64       `json:"remaining_authorized_amount,omitempty"`
	OrderLines                []OrderLine `json:"order_lines,omitempty"`
	MerchantReference1        string      `json:"merchant_reference1,omitempty"`
}

// Capture is a recorded capture against an order.
type Capture struct {
	CaptureID      string      `json:"capture_id"`
	CapturedAmount int64       `json:"captured_amount"`
	Description    string      `json:"description,omitempty"`
	CapturedAt     string      `json:"captured_at,omitempty"`
	OrderLines     []OrderLine `json:"order_lines,omitempty"`
}

// CaptureRequest converts part or all of an authorized amount into a charge.
type CaptureRequest struct {
	CapturedAmount int64             `json:"captured_amount"`
	Description    string            `json:"description,omitempty"`
	OrderLines     []OrderLine       `json:"order_lines,omitempty"`
	ShippingInfo   []ShippingInfo    `json:"shipping_info,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ShippingInfo is tracking detail attached to a capture.
type ShippingInfo struct {
	ShippingCompany string `json:"shipping_company,omitempty"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	TrackingURI     string `json:"tracking_uri,omitempty"`
}

// RefundRequest returns part or all of a captured amount.
type RefundRequest struct {
	RefundedAmount int64       `json:"refunded_amount"`
	Description    string      `json:"description,omitempty"`
	OrderLines     []OrderLine `json:"order_lines,omitempty"`
}

// CancelOrderRequest cancels an authorized, uncaptured order.
type CancelOrderRequest struct {
	CancellationNote string `json:"cancellation_note,omitempty"`
}

// OrderManagementService performs post-order operations. All operations
// address an existing order by id; none of them is terminal or exclusive —
// an order can be captured and later refunded.
type OrderManagementService struct {
	client *Client
}

// NewOrderManagementService binds the service to a client.
func NewOrderManagementService(client *Client) *OrderManagementService {
	return &OrderManagementService{client: client}
}

// Get fetches an order.
//
// GET /ordermanagement/v1/orders/{orderID}
func (s *OrderManagementService) Get(ctx context.Context, orderID string) (*OrderDetails, error) {
	resp, err := s.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   orderPath(orderID, ""),
	})
	if err != nil {
		return nil, err
	}
	var out OrderDetails
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Captures lists the captures recorded against an order.
//
// GET /ordermanagement/v1/orders/{orderID}/captures
func (s *OrderManagementService) Captures(ctx context.Context, orderID string) ([]Capture, error) {
	resp, err := s.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   orderPath(orderID, "captures"),
	})
	if err != nil {
		return nil, err
	}
	var out []Capture
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Capture charges part or all of the authorized amount.
//
// POST /ordermanagement/v1/orders/{orderID}/captures
func (s *OrderManagementService) Capture(ctx context.Context, orderID string, req CaptureRequest) error {
	_, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   orderPath(orderID, "captures"),
		Body:   req,
	})
	return err
}

// Refund returns part or all of a captured amount to the customer.
//
// POST /ordermanagement/v1/orders/{orderID}/refunds
func (s *OrderManagementService) Refund(ctx context.Context, orderID string, req RefundRequest) error {
	_, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   orderPath(orderID, "refunds"),
		Body:   req,
	})
	return err
}

// Cancel cancels an authorized order. The request body is optional.
//
// POST /ordermanagement/v1/orders/{orderID}/cancel
func (s *OrderManagementService) Cancel(ctx context.Context, orderID string, req *CancelOrderRequest) error {
	var body any
	if req != nil {
		body = req
	}
	_, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   orderPath(orderID, "cancel"),
		Body:   body,
	})
	return err
}

// ReleaseRemainingAuthorization releases the part of the authorization
// that has not been captured. An empty idempotencyKey generates a fresh
// random key for this single call; automatic retries are not replay-safe
// unless the caller supplies a stable key.
//
// POST /ordermanagement/v1/orders/{orderID}/release-remaining-authorization
func (s *OrderManagementService) ReleaseRemainingAuthorization(ctx context.Context, orderID, idempotencyKey string) error {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	_, err := s.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   orderPath(orderID, "release-remaining-authorization"),
		Header: map[string]string{headerIdempotencyKey: idempotencyKey},
	})
	return err
}

func orderPath(orderID, suffix string) string {
	path := "/ordermanagement/v1/orders/" + url.PathEscape(orderID)
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}
