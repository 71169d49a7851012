package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatusRecorderCapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := NewStatusRecorder(rec)

	sr.WriteHeader(http.StatusTeapot)
	n, err := sr.Write([]byte("short and stout"))
	require.NoError(t, err)
	require.Equal(t, 15, n)
	require.Equal(t, http.StatusTeapot, sr.Status())
	require.Equal(t, int64(15), sr.BytesWritten())
}

func TestStatusRecorderDefaultsTo200(t *testing.T) {
	sr := NewStatusRecorder(httptest.NewRecorder())
	_, err := sr.Write([]byte("ok"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, sr.Status())
}

func TestHTTPObsRecordsPerRouteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics("test_gateway", nil, reg)

	r := chi.NewRouter()
	r.Use(RoutePatternMiddleware, HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/orders/{orderID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/order-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	count := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/orders/{orderID}", "200"))
	require.Equal(t, float64(1), count)
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewHTTPMetrics("test_gateway", nil, reg)
	second := NewHTTPMetrics("test_gateway", nil, reg)
	require.Same(t, first.ReqTotal, second.ReqTotal)
	require.Same(t, first.ReqDur, second.ReqDur)
}

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, ParseBucketsCSV("  "))
	require.Equal(t, []float64{5, 50, 250}, ParseBucketsCSV("5, 50,250"))
	require.Equal(t, []float64{10}, ParseBucketsCSV("10,nonsense,-5,0"))
}

func TestRoutePatternContextRoundTrip(t *testing.T) {
	ctx := WithRoutePattern(nil, "/orders/{orderID}")
	require.Equal(t, "/orders/{orderID}", RoutePatternFromContext(ctx))
	require.Empty(t, RoutePatternFromContext(nil))
}
