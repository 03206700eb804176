// Package client is the operator CLI's HTTP client for the admin relay. It
// sends the session token as a bearer credential and decodes the relay's
// {"message": ...} error bodies.
package client

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

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cineadmin/internal/models"
	"github.com/wolfeidau/cineadmin/internal/session"
)

// ErrNotAuthenticated is returned when the relay answers 401.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a non-2xx relay response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match 401 responses against ErrNotAuthenticated.
func (e *APIError) Is(target error) bool {
	return target == ErrNotAuthenticated && e.StatusCode == http.StatusUnauthorized
}

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	// CacheDir enables an on-disk HTTP cache, empty keeps it in memory.
	CacheDir string
	// Transport is the base transport, nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "https://localhost:8443",
		Timeout:   30 * time.Second,
	}
}

// Client calls the relay on behalf of the session in store.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *session.Store
}

// New creates a relay client. Requests carry the token held in store, if any.
func New(cfg Config, store *session.Store) (*Client, error) {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", cfg.ServerURL)
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &Client{
		baseURL: u,
		http: &http.Client{
			Transport: NewCachingTransport(cfg.CacheDir, base),
			Timeout:   cfg.Timeout,
		},
		session: store,
	}, nil
}

// Do sends one request to the relay and returns the JSON body. body is
// encoded as JSON unless it is already a json.RawMessage.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	token, _ := c.session.Token()
	return c.do(ctx, method, path, query, body, token)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string) (json.RawMessage, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, ok := body.(json.RawMessage)
		if !ok {
			var err error
			data, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request body: %w", err)
			}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug().Str("method", method).Str("url", u.String()).Msg("calling relay")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return nil, apiErr
	}

	return json.RawMessage(bytes.TrimSpace(data)), nil
}

// Login exchanges credentials for a token. The token is returned, not stored.
func (c *Client) Login(ctx context.Context, form models.LoginForm) (string, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, form, "")
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("login response has no token")
	}

	return resp.Token, nil
}

// Logout tells the relay to expire its session cookie.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, "")
	return err
}

// WhoAmI fetches the profile token belongs to. It matches guard.WhoAmIFunc.
func (c *Client) WhoAmI(ctx context.Context, token string) (*models.Profile, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	data, err := c.do(ctx, http.MethodGet, "/api/user/user-profile", nil, nil, token)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return &profile, nil
}
