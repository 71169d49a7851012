package resilience

import (
	"bytes"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that guards an upstream with a
// circuit breaker and retries transient failures. Only GET and HEAD
// requests are retried: payment mutations are not replay-safe at this
// layer, so they get exactly one attempt.
type Transport struct {
	Base    http.RoundTripper
	Breaker *Breaker
	// MaxAttempts bounds retries for idempotent requests; <=1 disables
	// retrying.
	MaxAttempts int
	BaseBackoff time.Duration
	// Jitter is a fraction of the backoff, e.g. 0.2 for 20%.
	Jitter float64
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Breaker != nil && !t.Breaker.Allow() {
		return nil, ErrOpenCircuit
	}

	attempts := 1
	if t.MaxAttempts > 1 && retryable(req.Method) {
		attempts = t.MaxAttempts
	}

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if t.Breaker != nil && !t.Breaker.Allow() {
				break
			}
			timer := time.NewTimer(t.backoff(attempt - 1))
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}
		attemptReq := req
		if body != nil {
			attemptReq = req.Clone(req.Context())
			attemptReq.Body = io.NopCloser(bytes.NewReader(body))
		}
		resp, lastErr = base.RoundTrip(attemptReq)
		success := lastErr == nil && resp.StatusCode < http.StatusInternalServerError
		if t.Breaker != nil {
			t.Breaker.Report(success)
		}
		if success {
			return resp, nil
		}
		if lastErr == nil {
			// a 5xx response; drain it before a possible retry
			if attempt < attempts {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			} else {
				return resp, nil
			}
		}
	}
	if lastErr == nil {
		lastErr = ErrOpenCircuit
	}
	return nil, lastErr
}

func (t *Transport) backoff(attempt int) time.Duration {
	base := t.BaseBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if t.Jitter <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * t.Jitter
	return d + time.Duration(delta)
}

func retryable(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}
