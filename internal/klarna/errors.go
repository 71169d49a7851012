package klarna

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the closed set of failure categories a client or
// service call can produce. Every error returned by this package is a
// *Error carrying exactly one Kind.
type Kind string

const (
	KindInvalidURL         Kind = "invalid_url"
	KindNetwork            Kind = "network"
	KindDecoding           Kind = "decoding"
	KindAPI                Kind = "api"
	KindMissingCredentials Kind = "missing_credentials"
	KindInvalidResponse    Kind = "invalid_response"
	KindInvalidBody        Kind = "invalid_body"
)

// Error is the single error type crossing the service boundary. No raw
// transport or parse errors escape without being wrapped in one.
type Error struct {
	Kind       Kind
	StatusCode int    // set when Kind is KindAPI
	Message    string // raw response body for API errors
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindAPI:
		return fmt.Sprintf("klarna: api error (%d): %s", e.StatusCode, e.Message)
	case KindNetwork:
		return fmt.Sprintf("klarna: network error: %v", e.Err)
	case KindDecoding:
		return fmt.Sprintf("klarna: decoding error: %v", e.Err)
	case KindInvalidURL:
		return "klarna: invalid URL"
	case KindMissingCredentials:
		return "klarna: missing API credentials"
	case KindInvalidResponse:
		return "klarna: invalid response"
	case KindInvalidBody:
		return "klarna: unable to encode request body"
	default:
		return fmt.Sprintf("klarna: %s", e.Kind)
	}
}

// Unwrap allows errors.Is/As to inspect the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf returns the Kind carried by err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// APIErrorDetails is the structured error payload the provider returns
// alongside non-2xx statuses.
type APIErrorDetails struct {
	CorrelationID string   `json:"correlation_id,omitempty"`
	ErrorCode     string   `json:"error_code,omitempty"`
	ErrorMessages []string `json:"error_messages,omitempty"`
}

// APIDetails decodes the raw API error body into its structured form.
// Returns nil when the error is not an API error or the body is not the
// documented shape; the raw Message remains authoritative either way.
func (e *Error) APIDetails() *APIErrorDetails {
	if e == nil || e.Kind != KindAPI {
		return nil
	}
	body := strings.TrimSpace(e.Message)
	if body == "" {
		return nil
	}
	var details APIErrorDetails
	if err := json.Unmarshal([]byte(body), &details); err != nil {
		return nil
	}
	if details.CorrelationID == "" && details.ErrorCode == "" && len(details.ErrorMessages) == 0 {
		return nil
	}
	return &details
}

func apiError(statusCode int, message string) *Error {
	return &Error{Kind: KindAPI, StatusCode: statusCode, Message: message}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

func decodingError(err error) *Error {
	return &Error{Kind: KindDecoding, Err: err}
}

func invalidURLError(err error) *Error {
	return &Error{Kind: KindInvalidURL, Err: err}
}

func invalidBodyError(err error) *Error {
	return &Error{Kind: KindInvalidBody, Err: err}
}
