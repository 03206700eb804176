package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cineadmin/internal/backend/backendtest"
	"github.com/wolfeidau/cineadmin/internal/guard"
	"github.com/wolfeidau/cineadmin/internal/login"
	"github.com/wolfeidau/cineadmin/internal/models"
	"github.com/wolfeidau/cineadmin/internal/proxy"
	"github.com/wolfeidau/cineadmin/internal/session"
)

var ada = models.Profile{FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com", Role: models.RoleAdmin}

func newTestRelay(t *testing.T) *httptest.Server {
	t.Helper()

	auth := backendtest.NewAuth(t)
	auth.AddUser("engine42", ada)
	reg := auth.Registry(t)

	h, err := login.NewHandler(reg, login.Cookies{TTL: time.Hour})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/logout", h.Logout)
	require.NoError(t, proxy.NewForwarder(reg).Mount(r))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_loginGuardLogout(t *testing.T) {
	relay := newTestRelay(t)
	ctx := context.Background()

	store := session.NewStore()
	c, err := New(Config{ServerURL: relay.URL, Timeout: 5 * time.Second}, store)
	require.NoError(t, err)

	token, err := c.Login(ctx, models.LoginForm{Email: "ada@x.com", Password: "engine42"})
	require.NoError(t, err)
	store.SetToken(token)

	g := guard.New(c.WhoAmI, nil)
	profile, err := g.Check(ctx, store)
	require.NoError(t, err)
	require.Equal(t, ada, profile)

	require.NoError(t, c.Logout(ctx))
	require.NoError(t, store.Logout(ctx))

	_, err = c.Do(ctx, http.MethodGet, "/api/genres", nil, nil)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Not authenticated", apiErr.Message)
}

func TestClient_loginRejected(t *testing.T) {
	relay := newTestRelay(t)

	c, err := New(Config{ServerURL: relay.URL}, session.NewStore())
	require.NoError(t, err)

	_, err = c.Login(context.Background(), models.LoginForm{Email: "ada@x.com", Password: "wrong-password"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestClient_invalidServerURL(t *testing.T) {
	_, err := New(Config{ServerURL: "ftp://example.com"}, session.NewStore())
	require.Error(t, err)
}

// recordingTransport records what actually crossed the wire below the cache.
type recordingTransport struct {
	mu          sync.Mutex
	statuses    []int
	ifNoneMatch []string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.statuses = append(rt.statuses, resp.StatusCode)
	rt.ifNoneMatch = append(rt.ifNoneMatch, req.Header.Get("If-None-Match"))
	return resp, nil
}

func TestClient_revalidatesCachedResponses(t *testing.T) {
	tests := []struct {
		name     string
		cacheDir func(t *testing.T) string
	}{
		{name: "memory", cacheDir: func(*testing.T) string { return "" }},
		{name: "disk", cacheDir: func(t *testing.T) string { return filepath.Join(t.TempDir(), "cache") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := newTestRelay(t)
			ctx := t.Context()
			wire := &recordingTransport{}
			cacheDir := tt.cacheDir(t)

			store := session.NewStore()
			c, err := New(Config{ServerURL: relay.URL, CacheDir: cacheDir, Transport: wire}, store)
			require.NoError(t, err)

			token, err := c.Login(ctx, models.LoginForm{Email: "ada@x.com", Password: "engine42"})
			require.NoError(t, err)
			store.SetToken(token)

			first, err := c.Do(ctx, http.MethodGet, "/api/user/user-profile", nil, nil)
			require.NoError(t, err)
			second, err := c.Do(ctx, http.MethodGet, "/api/user/user-profile", nil, nil)
			require.NoError(t, err)

			require.JSONEq(t, string(first), string(second))

			wire.mu.Lock()
			defer wire.mu.Unlock()
			// login, first fetch, revalidation
			require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusNotModified}, wire.statuses)
			require.Empty(t, wire.ifNoneMatch[1])
			require.NotEmpty(t, wire.ifNoneMatch[2])

			if cacheDir != "" {
				info, err := os.Stat(cacheDir)
				require.NoError(t, err)
				require.Equal(t, os.FileMode(0o700), info.Mode().Perm())
			}
		})
	}
}

func TestClient_cacheDoesNotCrossTokens(t *testing.T) {
	relay := newTestRelay(t)
	ctx := t.Context()
	wire := &recordingTransport{}

	store := session.NewStore()
	c, err := New(Config{ServerURL: relay.URL, Transport: wire}, store)
	require.NoError(t, err)

	token, err := c.Login(ctx, models.LoginForm{Email: "ada@x.com", Password: "engine42"})
	require.NoError(t, err)
	store.SetToken(token)

	_, err = c.Do(ctx, http.MethodGet, "/api/user/user-profile", nil, nil)
	require.NoError(t, err)

	store.SetToken("not-a-real-token")
	_, err = c.Do(ctx, http.MethodGet, "/api/user/user-profile", nil, nil)
	require.Error(t, err)

	wire.mu.Lock()
	defer wire.mu.Unlock()
	require.Empty(t, wire.ifNoneMatch[2])
}
