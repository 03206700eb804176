// Package proxy is the authenticated relay between the admin UI and the
// backend services. Every protected endpoint is the same round trip: check
// for a credential, forward verb, body and query to the family's base URL
// with the token as a bearer credential, then relay the JSON answer.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cineadmin/internal/backend"
	httpmiddleware "github.com/wolfeidau/cineadmin/internal/http"
	"github.com/wolfeidau/cineadmin/internal/models"
	"github.com/wolfeidau/cineadmin/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outward messages. Backend failure details are only logged.
const (
	MessageNotAuthenticated = "Not authenticated"
	MessageServerError      = "Server error"
	MessageNotFound         = "Not found"
)

// maxRequestBytes bounds the body accepted from callers.
const maxRequestBytes = 1 << 20

// profilePath is the auth backend's "who am I" endpoint.
const profilePath = "/user/user-profile"

// ErrNotAuthenticated is returned by WhoAmI when no token is supplied.
var ErrNotAuthenticated = errors.New("not authenticated")

// Forwarder relays requests to the backend families in a registry.
type Forwarder struct {
	backends *backend.Registry
}

// NewForwarder creates a forwarder over backends.
func NewForwarder(backends *backend.Registry) *Forwarder {
	return &Forwarder{backends: backends}
}

// Handler returns the relay handler for route.
func (f *Forwarder) Handler(route Route) (http.Handler, error) {
	client, err := f.backends.Client(route.Family)
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.forward(w, r, client, route)
	}), nil
}

func (f *Forwarder) forward(w http.ResponseWriter, r *http.Request, client *backend.Client, route Route) {
	ctx := r.Context()
	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(
		attribute.String("family", string(route.Family)),
		attribute.String("method", route.Method),
	)
	m.ProxyRequestsTotal.Add(ctx, 1, attrs)

	token, ok := Credential(r)
	if !route.Public && !ok {
		m.ProxyRejectedTotal.Add(ctx, 1, attrs)
		zerolog.Ctx(ctx).Debug().Msg("no credential, rejecting before backend call")
		httpmiddleware.WriteMessage(w, r, http.StatusUnauthorized, MessageNotAuthenticated)
		return
	}
	if route.Public {
		token = ""
	}

	path, ok := route.expandPath(r)
	if !ok {
		httpmiddleware.WriteMessage(w, r, http.StatusNotFound, MessageNotFound)
		return
	}

	body := route.Body
	if body == nil && route.hasBody() {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err != nil {
			f.serverError(w, r, fmt.Errorf("failed to read request body: %w", err))
			return
		}
	}

	resp, err := client.Do(ctx, &backend.Request{
		Method:    route.Method,
		Path:      path,
		Query:     route.query(r),
		Body:      body,
		Token:     token,
		RequestID: httpmiddleware.RequestIDFromContext(ctx),
	})
	if err != nil {
		f.serverError(w, r, err)
		return
	}

	if resp.Payload == nil {
		httpmiddleware.WriteMessage(w, r, http.StatusOK, emptyMessage(route))
		return
	}

	if route.Method == http.MethodGet {
		httpmiddleware.WriteRevalidatedJSON(w, r, resp.StatusCode, resp.Payload)
		return
	}

	httpmiddleware.WriteRawJSON(w, r, resp.StatusCode, resp.Payload)
}

func (f *Forwarder) serverError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	telemetry.GetMetrics().ProxyServerErrorTotal.Add(ctx, 1)

	event := zerolog.Ctx(ctx).Error().Err(err)
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		event = event.Int("backend_status", statusErr.StatusCode).Bytes("backend_body", truncate(statusErr.Body, 512))
	}
	event.Msg("backend call failed")

	httpmiddleware.WriteMessage(w, r, http.StatusInternalServerError, MessageServerError)
}

// WhoAmI asks the auth backend for the profile that token belongs to.
func (f *Forwarder) WhoAmI(ctx context.Context, token string) (*models.Profile, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	client, err := f.backends.Client(backend.FamilyAuth)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(ctx, &backend.Request{
		Method:    http.MethodGet,
		Path:      profilePath,
		Token:     token,
		RequestID: httpmiddleware.RequestIDFromContext(ctx),
	})
	if err != nil {
		return nil, err
	}
	if resp.Payload == nil {
		return nil, fmt.Errorf("empty profile: %w", backend.ErrMalformedResponse)
	}

	var profile models.Profile
	if err := json.Unmarshal(resp.Payload, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return &profile, nil
}

func emptyMessage(route Route) string {
	if route.EmptyMessage != "" {
		return route.EmptyMessage
	}
	return "OK"
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
