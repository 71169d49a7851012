package klarna

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "https://api.example.com/", Username: "u", Password: "p"})

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "absolute passthrough", path: "https://other.example.com/x/y", want: "https://other.example.com/x/y"},
		{name: "leading slash", path: "/payments/v1/sessions", want: "https://api.example.com/payments/v1/sessions"},
		{name: "no leading slash", path: "payments/v1/sessions", want: "https://api.example.com/payments/v1/sessions"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := client.ResolveURL(tc.path)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDoSetsDefaultHeadersAndBasicAuth(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Username: "uid", Password: "key"})
	_, err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/payments/v1/sessions",
		Body:   map[string]string{"k": "v"},
	})
	require.NoError(t, err)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("uid:key"))
	require.Equal(t, wantAuth, seen.Get("Authorization"))
	require.Equal(t, "application/json", seen.Get("Accept"))
	require.Equal(t, "application/json", seen.Get("Content-Type"))
	require.Equal(t, "klarna-bridge/1.0", seen.Get("User-Agent"))
}

func TestDoPreservesCallerAuthorizationHeader(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Username: "uid", Password: "key"})
	_, err := client.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/x",
		Header: map[string]string{"Authorization": "Bearer custom"},
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer custom", seen)
}

func TestDoNoAuthSuppressesAuthorization(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Username: "uid", Password: "key"})
	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x", NoAuth: true})
	require.NoError(t, err)
	require.Empty(t, seen)
}

type blockedTransport struct {
	calls int
}

func (t *blockedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	t.calls++
	return nil, errors.New("unexpected network call")
}

func TestDoMissingCredentialsFailsBeforeNetworkIO(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "key"},
		{name: "empty password", username: "uid", password: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			transport := &blockedTransport{}
			client := NewClient(ClientConfig{
				BaseURL:    "https://api.example.com",
				Username:   tc.username,
				Password:   tc.password,
				HTTPClient: &http.Client{Transport: transport},
			})
			_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
			require.True(t, IsKind(err, KindMissingCredentials))
			require.Zero(t, transport.calls)
		})
	}
}

func TestDoClassifiesStatusCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/client-error":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error_code":"VALIDATION"}`))
		case "/empty-error":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Username: "u", Password: "p"})

	resp, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/ok"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, err = client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/client-error"})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, KindAPI, svcErr.Kind)
	require.Equal(t, http.StatusUnprocessableEntity, svcErr.StatusCode)
	require.Equal(t, `{"error_code":"VALIDATION"}`, svcErr.Message)

	_, err = client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/empty-error"})
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "Unknown error", svcErr.Message)
}

func TestDoWrapsTransportFailureAsNetworkError(t *testing.T) {
	client := NewClient(ClientConfig{
		BaseURL:  "http://127.0.0.1:1",
		Username: "u",
		Password: "p",
	})
	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	require.True(t, IsKind(err, KindNetwork))
}

func TestResponseDecodeWrapsFailures(t *testing.T) {
	resp := &Response{Body: []byte("not json"), StatusCode: http.StatusOK, Header: http.Header{}}
	var out map[string]any
	err := resp.Decode(&out)
	require.True(t, IsKind(err, KindDecoding))
}

func TestResponseContentTypeIsCaseInsensitive(t *testing.T) {
	header := http.Header{}
	header.Set("content-type", "image/png")
	resp := &Response{Header: header}
	require.Equal(t, "image/png", resp.ContentType())
}

func TestAPIErrorDetails(t *testing.T) {
	err := apiError(http.StatusBadRequest, `{"correlation_id":"abc","error_code":"BAD_VALUE","error_messages":["order_amount mismatch"]}`)
	details := err.APIDetails()
	require.NotNil(t, details)
	require.Equal(t, "abc", details.CorrelationID)
	require.Equal(t, "BAD_VALUE", details.ErrorCode)
	require.Equal(t, []string{"order_amount mismatch"}, details.ErrorMessages)

	plain := apiError(http.StatusBadRequest, "plain text failure")
	require.Nil(t, plain.APIDetails())
}
