package klarna

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// DisputeSummary is a read-only dispute record.
type DisputeSummary struct {
	DisputeID string `json:"dispute_id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// DisputeList is one page of disputes. A non-empty continuation token in
// Pagination means more pages follow.
type DisputeList struct {
	Disputes   []DisputeSummary   `json:"disputes"`
	Pagination *DisputePagination `json:"pagination,omitempty"`
}

// DisputePagination carries the opaque continuation token.
type DisputePagination struct {
	ContinuationToken string `json:"continuation_token,omitempty"`
}

// DisputeListOptions control dispute pagination. The zero value lists the
// first page with the provider's default size.
type DisputeListOptions struct {
	ContinuationToken string
	Limit             int
}

// DisputesService lists disputes raised against the merchant.
type DisputesService struct {
	client *Client
}

// NewDisputesService binds the service to a client.
func NewDisputesService(client *Client) *DisputesService {
	return &DisputesService{client: client}
}

// List fetches one page of disputes.
//
// GET /disputes/v3/disputes
func (s *DisputesService) List(ctx context.Context, opts DisputeListOptions) (*DisputeList, error) {
	path := "/disputes/v3/disputes"
	query := url.Values{}
	if opts.ContinuationToken != "" {
		query.Set("continuation_token", opts.ContinuationToken)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	resp, err := s.client.Do(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	var out DisputeList
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
