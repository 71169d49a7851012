package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newIdem(t *testing.T) (Idem, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}, mr
}

func TestIdemFirstRequestPassesDuplicateConflicts(t *testing.T) {
	idem, _ := newIdem(t)

	var calls int
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	first.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, calls)

	duplicate := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	duplicate.Header.Set("Idempotency-Key", "key-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, duplicate)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "IDEMPOTENT_REPLAY")
	require.Equal(t, 1, calls)
}

func TestIdemDistinctKeysDoNotCollide(t *testing.T) {
	idem, _ := newIdem(t)

	var calls int
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, key := range []string{"key-a", "key-b"} {
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	require.Equal(t, 2, calls)
}

func TestIdemKeyReusableAfterExpiry(t *testing.T) {
	idem, mr := newIdem(t)

	var calls int
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	mr.FastForward(2 * time.Minute)

	retry := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	retry.Header.Set("Idempotency-Key", "key-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, retry)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 2, calls)
}

func TestIdemNoHeaderOrNoRedisPassesThrough(t *testing.T) {
	var calls int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	})

	idem, _ := newIdem(t)
	rec := httptest.NewRecorder()
	idem.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	disabled := Idem{}
	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	rec = httptest.NewRecorder()
	disabled.Middleware(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 2, calls)
}
