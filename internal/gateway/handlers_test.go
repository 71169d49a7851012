package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/klarna-bridge/internal/klarna"
)

func newTestRouter(t *testing.T, upstream http.HandlerFunc) chi.Router {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	client := klarna.NewClient(klarna.ClientConfig{BaseURL: srv.URL, Username: "uid", Password: "key"})
	handler := NewHandler(klarna.NewServices(client), zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api/v1", func(api chi.Router) {
		handler.Mount(api, Idem{})
	})
	return r
}

const validSessionJSON = `{
	"purchase_country": "US",
	"purchase_currency": "USD",
	"locale": "en-US",
	"order_amount": 25900,
	"order_tax_amount": 0,
	"order_lines": [{
		"type": "physical",
		"reference": "TSHIRT-XL",
		"name": "T-shirt",
		"quantity": 1,
		"quantity_unit": "pcs",
		"unit_price": 25900,
		"tax_rate": 0,
		"total_amount": 25900,
		"total_tax_amount": 0
	}]
}`

func TestCreateSessionProxiesUpstream(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/payments/v1/sessions", req.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"client_token":"ct-secret","session_id":"sess-1"}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(validSessionJSON)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp klarna.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ct-secret", resp.ClientToken)
}

func TestCreateSessionValidationFailure(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("upstream must not be called for invalid input")
	})

	body := `{"purchase_country":"USA","purchase_currency":"USD","locale":"en-US","order_lines":[]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
}

func TestCreateSessionMapsProviderError(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"PERMISSION_DENIED","correlation_id":"corr-1"}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(validSessionJSON)))

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body struct {
		Error struct {
			Code    string                  `json:"code"`
			Details *klarna.APIErrorDetails `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "PROVIDER_ERROR", body.Error.Code)
	require.Equal(t, "corr-1", body.Error.Details.CorrelationID)
}

func TestCreateOrderUsesAuthorizationToken(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/payments/v1/authorizations/auth-1/order", req.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id":"order-1","fraud_status":"ACCEPTED"}`))
	})

	body := `{"authorization_token":"auth-1","merchant_reference1":"ref-1","order":` + validSessionJSON + `}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "order-1")
}

func TestCaptureOrderRejectsNonPositiveAmount(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("upstream must not be called")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/order-1/captures", strings.NewReader(`{"captured_amount":0}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "captured_amount must be positive")
}

func TestCaptureAndRefundAndCancel(t *testing.T) {
	var paths []string
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		paths = append(paths, req.Method+" "+req.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	for _, tc := range []struct {
		path string
		body string
	}{
		{path: "/api/v1/orders/order-1/captures", body: `{"captured_amount":10000}`},
		{path: "/api/v1/orders/order-1/refunds", body: `{"refunded_amount":5000}`},
		{path: "/api/v1/orders/order-1/cancel", body: ""},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body)))
		require.Equal(t, http.StatusNoContent, rec.Code, tc.path)
	}
	require.Equal(t, []string{
		"POST /ordermanagement/v1/orders/order-1/captures",
		"POST /ordermanagement/v1/orders/order-1/refunds",
		"POST /ordermanagement/v1/orders/order-1/cancel",
	}, paths)
}

func TestReleaseAuthorizationForwardsKey(t *testing.T) {
	var seenKey string
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		seenKey = req.Header.Get("Klarna-Idempotency-Key")
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/order-1/release-remaining-authorization", nil)
	req.Header.Set("Klarna-Idempotency-Key", "release-key-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "release-key-1", seenKey)
}

func TestGetOrderAndCaptures(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch req.URL.Path {
		case "/ordermanagement/v1/orders/order-1":
			_, _ = w.Write([]byte(`{"order_id":"order-1","status":"CAPTURED","captured_amount":25900}`))
		case "/ordermanagement/v1/orders/order-1/captures":
			_, _ = w.Write([]byte(`[{"capture_id":"cap-1","captured_amount":25900}]`))
		}
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/order-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "CAPTURED")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/order-1/captures", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "cap-1")
}

func TestListDisputesForwardsPagination(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/disputes/v3/disputes", req.URL.Path)
		require.Equal(t, "tok-1", req.URL.Query().Get("continuation_token"))
		require.Equal(t, "5", req.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"disputes":[]}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/disputes?continuation_token=tok-1&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFetchDistributionRendersStatus(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"pending"}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/distribution?url=/distribution/result", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Kind   string                     `json:"kind"`
		Status *klarna.DistributionStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "status", resp.Kind)
	require.Equal(t, "pending", resp.Status.Status)
}

func TestFetchDistributionRequiresURL(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("upstream must not be called")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/distribution", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHPPSessionRoutes(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case req.Method == http.MethodPost && req.URL.Path == "/hpp/v1/sessions":
			_, _ = w.Write([]byte(`{"session_id":"hpp-1","session_url":"https://hpp.example/hpp-1"}`))
		case req.Method == http.MethodGet && req.URL.Path == "/hpp/v1/sessions/hpp-1":
			_, _ = w.Write([]byte(`{"session_id":"hpp-1","status":"COMPLETED"}`))
		}
	})

	createBody := `{"payment_session_url":"https://api.example/payments/v1/sessions/sess-1","merchant_urls":{"success":"https://m.example/s","cancel":"https://m.example/c","back":"https://m.example/b","failure":"https://m.example/f","error":"https://m.example/e"}}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/hpp/sessions", strings.NewReader(createBody)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "hpp-1")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hpp/sessions/hpp-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "COMPLETED")
}

func TestHPPSessionRequiresPaymentSessionURL(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("upstream must not be called")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/hpp/sessions", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
