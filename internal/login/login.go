// Package login exchanges credentials for a backend token and keeps that token
// in an HTTP-only cookie so browser code never handles it.
package login

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cineadmin/internal/backend"
	httpmiddleware "github.com/wolfeidau/cineadmin/internal/http"
	"github.com/wolfeidau/cineadmin/internal/proxy"
	"github.com/wolfeidau/cineadmin/internal/telemetry"
)

// MessageInvalidCredentials is returned when the auth backend rejects a login.
const MessageInvalidCredentials = "Invalid credentials"

const (
	loginPath     = "/auth/login"
	maxLoginBytes = 64 << 10
)

// ErrMissingToken is returned when the auth backend accepts a login but sends no token.
var ErrMissingToken = errors.New("login response has no token")

// Response is the body returned by a successful login or logout.
type Response struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

// Handler serves the login and logout endpoints.
type Handler struct {
	auth    *backend.Client
	cookies Cookies
}

// NewHandler creates a login handler that authenticates against the auth family.
func NewHandler(backends *backend.Registry, cookies Cookies) (*Handler, error) {
	if cookies.TTL <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}

	auth, err := backends.Client(backend.FamilyAuth)
	if err != nil {
		return nil, err
	}

	return &Handler{auth: auth, cookies: cookies}, nil
}

// Cookies returns the cookie settings used by the handler.
func (h *Handler) Cookies() Cookies {
	return h.cookies
}

// Login forwards the credential body to the auth backend and, on success, sets
// the session cookie and returns the token for header based callers.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m := telemetry.GetMetrics()
	logger := zerolog.Ctx(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLoginBytes))
	if err != nil {
		m.LoginFailuresTotal.Add(ctx, 1)
		logger.Error().Err(err).Msg("failed to read login body")
		httpmiddleware.WriteMessage(w, r, http.StatusInternalServerError, proxy.MessageServerError)
		return
	}

	resp, err := h.auth.Do(ctx, &backend.Request{
		Method:    http.MethodPost,
		Path:      loginPath,
		Body:      body,
		RequestID: httpmiddleware.RequestIDFromContext(ctx),
	})
	if err != nil {
		m.LoginFailuresTotal.Add(ctx, 1)

		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
			logger.Info().Int("backend_status", statusErr.StatusCode).Msg("login rejected")
			httpmiddleware.WriteMessage(w, r, http.StatusUnauthorized, MessageInvalidCredentials)
			return
		}

		logger.Error().Err(err).Msg("login failed")
		httpmiddleware.WriteMessage(w, r, http.StatusInternalServerError, proxy.MessageServerError)
		return
	}

	token, err := tokenFrom(resp)
	if err != nil {
		m.LoginFailuresTotal.Add(ctx, 1)
		logger.Error().Err(err).Msg("login failed")
		httpmiddleware.WriteMessage(w, r, http.StatusInternalServerError, proxy.MessageServerError)
		return
	}

	h.cookies.Set(w, token)
	m.LoginsTotal.Add(ctx, 1)
	logger.Info().Msg("login succeeded")

	httpmiddleware.WriteJSON(w, r, http.StatusOK, Response{Success: true, Token: token})
}

// Logout expires the session cookie. The backend keeps no session state, so
// there is nothing else to revoke.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	telemetry.GetMetrics().LogoutsTotal.Add(r.Context(), 1)
	zerolog.Ctx(r.Context()).Debug().Msg("session cookie cleared")

	httpmiddleware.WriteJSON(w, r, http.StatusOK, Response{Success: true})
}

func tokenFrom(resp *backend.Response) (string, error) {
	if resp.Payload == nil {
		return "", ErrMissingToken
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Payload, &payload); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if payload.Token == "" {
		return "", ErrMissingToken
	}

	return payload.Token, nil
}
