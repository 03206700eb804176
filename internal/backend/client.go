// Package backend talks to the REST services behind the relay: auth, catalog,
// venue, schedule and users. Each family has its own independently configured
// base URL.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cineadmin/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
)

// maxResponseBytes bounds how much of a backend response is read.
const maxResponseBytes = 10 << 20

var (
	// ErrMalformedResponse is returned when a backend answers 2xx with a body that is not JSON.
	ErrMalformedResponse = errors.New("malformed backend response")

	// ErrResponseTooLarge is returned when a backend response exceeds maxResponseBytes.
	ErrResponseTooLarge = errors.New("backend response too large")
)

// StatusError is returned when a backend answers with a non-2xx status.
type StatusError struct {
	Family     Family
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s backend returned HTTP %d", e.Family, e.StatusCode)
}

// Request is one outbound call. It is built per call and never shared.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      []byte
	Token     string
	RequestID string
}

// Response is a successful backend answer. Payload is nil when the backend sent no body.
type Response struct {
	StatusCode int
	Payload    json.RawMessage
}

// Client calls a single backend family.
type Client struct {
	family    Family
	baseURL   *url.URL
	transport http.RoundTripper
	timeout   time.Duration
}

// NewClient creates a client for family rooted at baseURL. A nil transport
// uses http.DefaultTransport; a zero timeout leaves timing to the transport.
func NewClient(family Family, baseURL string, transport http.RoundTripper, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%s backend URL is required", family)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s backend URL: %w", family, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid %s backend URL %q: scheme must be http or https", family, baseURL)
	}

	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		family:    family,
		baseURL:   u,
		transport: transport,
		timeout:   timeout,
	}, nil
}

// Family returns the backend family this client calls.
func (c *Client) Family() Family {
	return c.family
}

// URL resolves path and query against the family's base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	u.RawQuery = query.Encode()
	return u.String()
}

// Do performs one round trip. There are no retries: every failure is terminal
// for this call and is returned to the caller to decide what to surface.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	started := time.Now()
	resp, err := c.do(ctx, req)

	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(
		attribute.String("family", string(c.family)),
		attribute.String("method", req.Method),
	)
	m.BackendRequestsTotal.Add(ctx, 1, attrs)
	m.BackendDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)
	if err != nil {
		m.BackendErrorsTotal.Add(ctx, 1, attrs)
	}

	return resp, err
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	target := c.URL(req.Path, req.Query)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.family, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-Id", req.RequestID)
	}

	zerolog.Ctx(ctx).Debug().
		Str("family", string(c.family)).
		Str("method", req.Method).
		Str("url", target).
		Bool("bearer", req.Token != "").
		Msg("calling backend")

	httpResp, err := c.httpClient(req.Token).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s backend request failed: %w", c.family, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s backend response: %w", c.family, err)
	}
	if len(data) > maxResponseBytes {
		return nil, ErrResponseTooLarge
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{Family: c.family, StatusCode: httpResp.StatusCode, Body: data}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Response{StatusCode: httpResp.StatusCode}, nil
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: %w", c.family, ErrMalformedResponse)
	}

	return &Response{StatusCode: httpResp.StatusCode, Payload: json.RawMessage(data)}, nil
}

// httpClient returns a client that attaches "Authorization: Bearer <token>"
// when a token is present.
func (c *Client) httpClient(token string) *http.Client {
	transport := c.transport
	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   c.transport,
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
