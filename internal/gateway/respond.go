package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/klarna-bridge/internal/klarna"
)

// ErrorBody represents a consistent error payload returned by the gateway.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeServiceError maps a klarna error onto a gateway HTTP response.
// Provider API errors keep their upstream status code; everything else
// collapses into the closed taxonomy.
func writeServiceError(w http.ResponseWriter, err error) {
	switch klarna.KindOf(err) {
	case klarna.KindAPI:
		var svcErr *klarna.Error
		if errors.As(err, &svcErr) {
			JSONError(w, svcErr.StatusCode, "PROVIDER_ERROR", svcErr.Message, svcErr.APIDetails())
			return
		}
		JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error(), nil)
	case klarna.KindMissingCredentials:
		JSONError(w, http.StatusInternalServerError, "NOT_CONFIGURED", "provider credentials are not configured", nil)
	case klarna.KindInvalidURL, klarna.KindInvalidBody:
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case klarna.KindNetwork, klarna.KindDecoding, klarna.KindInvalidResponse:
		JSONError(w, http.StatusBadGateway, "UPSTREAM_FAILED", err.Error(), nil)
	default:
		JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
