package klarna

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PlaygroundBaseURL is the Klarna playground API host used when no base
// URL is configured.
const PlaygroundBaseURL = "https://api.playground.klarna.com"

const (
	defaultUserAgent = "klarna-bridge/1.0"
	defaultAccept    = "application/json"
)

// ClientConfig carries the immutable transport configuration. Credentials
// are supplied explicitly at construction; there is no default credential
// pair baked into the binary.
type ClientConfig struct {
	BaseURL   string // defaults to PlaygroundBaseURL
	Username  string // API UID
	Password  string // API key
	UserAgent string
	// HTTPClient overrides the underlying client, mainly for tests. The
	// default client carries an otelhttp transport so outbound calls are
	// traced.
	HTTPClient *http.Client
	Metrics    *ClientMetrics
}

// Client executes authenticated HTTP exchanges against the provider API.
// It is safe for unlimited concurrent use: all fields are read-only after
// construction.
type Client struct {
	baseURL   string
	username  string
	password  string
	userAgent string
	http      *http.Client
	metrics   *ClientMetrics
}

// NewClient builds a Client from the given configuration.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = PlaygroundBaseURL
	}
	agent := strings.TrimSpace(cfg.UserAgent)
	if agent == "" {
		agent = defaultUserAgent
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		}
	}
	return &Client{
		baseURL:   base,
		username:  cfg.Username,
		password:  cfg.Password,
		userAgent: agent,
		http:      hc,
		metrics:   cfg.Metrics,
	}
}

// BaseURL exposes the configured base URL, useful for building absolute
// URLs elsewhere.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes a single HTTP exchange.
type Request struct {
	Method string
	// Path is resolved against the base URL unless it already parses as an
	// absolute URL with a scheme, in which case it is used verbatim.
	Path string
	// Body, when non-nil, is serialised as JSON.
	Body   any
	Header map[string]string
	// Accept overrides the default "application/json" Accept header.
	Accept string
	// OmitAccept suppresses the Accept header entirely.
	OmitAccept bool
	// NoAuth suppresses the Authorization header. Used when following
	// third-party asset URLs that must not receive provider credentials.
	NoAuth bool
}

// Response is the normalised result of a successful exchange (status < 400).
type Response struct {
	Body       []byte
	StatusCode int
	Header     http.Header
}

// ContentType returns the Content-Type response header. Lookup is
// case-insensitive per http.Header semantics.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Decode unmarshals the body into v, wrapping any failure as a decoding
// error so parse failures never cross the service boundary raw.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return decodingError(err)
	}
	return nil
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Do executes one exchange. Non-2xx/3xx statuses are returned as API
// errors carrying the status code and raw body; lower-level transport
// failures are wrapped as network errors. Authentication is verified
// before any network I/O happens.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target, err := c.ResolveURL(req.Path)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{}
	for k, v := range req.Header {
		headers[k] = v
	}
	if _, ok := headers["User-Agent"]; !ok {
		headers["User-Agent"] = c.userAgent
	}
	if !req.OmitAccept {
		accept := req.Accept
		if accept == "" {
			accept = defaultAccept
		}
		headers["Accept"] = accept
	}
	if !req.NoAuth {
		if _, ok := headers["Authorization"]; !ok {
			auth, err := c.authorizationHeader()
			if err != nil {
				return nil, err
			}
			headers["Authorization"] = auth
		}
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, invalidBodyError(err)
		}
		body = bytes.NewReader(encoded)
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, invalidURLError(err)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req.Method, httpReq.URL.Host, 0, start)
		return nil, networkError(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.observe(req.Method, httpReq.URL.Host, httpResp.StatusCode, start)
		return nil, &Error{Kind: KindInvalidResponse, Err: err}
	}
	c.observe(req.Method, httpReq.URL.Host, httpResp.StatusCode, start)

	if httpResp.StatusCode >= 400 {
		message := string(data)
		if len(data) == 0 || !utf8.Valid(data) {
			message = "Unknown error"
		}
		return nil, apiError(httpResp.StatusCode, message)
	}

	return &Response{
		Body:       data,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
	}, nil
}

// ResolveURL turns a path into an absolute URL: absolute inputs pass
// through verbatim, relative ones are joined with the base URL with
// exactly one slash between them.
func (c *Client) ResolveURL(path string) (string, error) {
	if parsed, err := url.Parse(path); err == nil && parsed.Scheme != "" {
		return path, nil
	}
	joined := strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if _, err := url.Parse(joined); err != nil {
		return "", invalidURLError(err)
	}
	return joined, nil
}

func (c *Client) authorizationHeader() (string, error) {
	if c.username == "" || c.password == "" {
		return "", &Error{Kind: KindMissingCredentials}
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	return "Basic " + credentials, nil
}

func (c *Client) observe(method, host string, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.Observe(method, host, status, time.Since(start))
}
