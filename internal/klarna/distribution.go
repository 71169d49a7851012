package klarna

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

// AssetKind discriminates the three shapes a distribution fetch can
// produce. The discriminant is the Content-Type of the response, computed
// once per fetch.
type AssetKind int

const (
	// AssetImage is a raw image payload.
	AssetImage AssetKind = iota
	// AssetStatus is a JSON status document, optionally with a QR image
	// fetched as a follow-up request.
	AssetStatus
	// AssetOpaque is an unrecognised payload passed through as-is.
	AssetOpaque
)

// DistributionStatus is the JSON status document variant.
type DistributionStatus struct {
	Status    string `json:"status,omitempty"`
	QR        string `json:"qr,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Asset is the result of a distribution fetch: a shareable artifact that
// lets a customer complete payment on another device.
type Asset struct {
	Kind        AssetKind
	Payload     []byte
	ContentType string
	SourceURL   string
	// Status is set when Kind is AssetStatus.
	Status *DistributionStatus
	// QRImage holds the QR code image bytes when the status document
	// carried a QR URL and that fetch succeeded. Nil otherwise.
	QRImage []byte
}

// DataURL renders the asset as a data URL for preview. With preferQR set
// the QR image wins when present.
func (a *Asset) DataURL(preferQR bool) string {
	data := a.Payload
	if preferQR && len(a.QRImage) > 0 {
		data = a.QRImage
	}
	if len(data) == 0 {
		return ""
	}
	return "data:" + a.ContentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DistributionService fetches distribution assets.
type DistributionService struct {
	client *Client
}

// NewDistributionService binds the service to a client.
func NewDistributionService(client *Client) *DistributionService {
	return &DistributionService{client: client}
}

// Fetch resolves resultURL against the base URL if needed and retrieves
// the asset, branching on the response Content-Type. When the JSON status
// variant carries a QR URL, a second unauthenticated request fetches the
// QR image; failure of that sub-fetch leaves QRImage nil and does not fail
// the overall call.
func (s *DistributionService) Fetch(ctx context.Context, resultURL string) (*Asset, error) {
	resolved, err := s.client.ResolveURL(resultURL)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   resolved,
		Accept: "image/png, image/jpeg, application/json;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, err
	}

	contentType := resp.ContentType()
	lowered := strings.ToLower(contentType)

	if strings.HasPrefix(lowered, "image/") {
		return &Asset{
			Kind:        AssetImage,
			Payload:     resp.Body,
			ContentType: contentType,
			SourceURL:   resolved,
		}, nil
	}

	if strings.Contains(lowered, "application/json") {
		var status DistributionStatus
		if err := resp.Decode(&status); err != nil {
			return nil, err
		}
		asset := &Asset{
			Kind:        AssetStatus,
			Payload:     resp.Body,
			ContentType: contentType,
			SourceURL:   resolved,
			Status:      &status,
		}
		if status.QR != "" {
			if qr, err := s.client.Do(ctx, Request{
				Method: http.MethodGet,
				Path:   status.QR,
				Accept: "image/png,image/jpeg,image/gif;q=0.9,*/*;q=0.8",
				NoAuth: true,
			}); err == nil {
				asset.QRImage = qr.Body
			}
		}
		return asset, nil
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Asset{
		Kind:        AssetOpaque,
		Payload:     resp.Body,
		ContentType: contentType,
		SourceURL:   resolved,
	}, nil
}
