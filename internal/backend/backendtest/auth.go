// Package backendtest provides an in-process auth backend for tests. It issues
// signed tokens on login and only honours tokens it issued itself, so callers
// can exercise the relay against a backend that validates credentials.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cineadmin/internal/backend"
	"github.com/wolfeidau/cineadmin/internal/models"
)

const issuer = "backendtest"

type account struct {
	password string
	profile  models.Profile
}

// Auth is a fake auth backend serving /auth/login and /user/user-profile.
type Auth struct {
	Server *httptest.Server

	key      []byte
	mu       sync.Mutex
	accounts map[string]account

	loginCalls   atomic.Int64
	profileCalls atomic.Int64
}

// NewAuth starts a fake auth backend that is closed when the test ends.
func NewAuth(t *testing.T) *Auth {
	t.Helper()

	a := &Auth{
		key:      []byte("backendtest-signing-key-0123456789"),
		accounts: make(map[string]account),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", a.login)
	mux.HandleFunc("GET /user/user-profile", a.userProfile)

	a.Server = httptest.NewServer(mux)
	t.Cleanup(a.Server.Close)

	return a
}

// AddUser registers an account that can log in with password.
func (a *Auth) AddUser(password string, profile models.Profile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[profile.Email] = account{password: password, profile: profile}
}

// IssueToken returns a valid token for email without going through login.
func (a *Auth) IssueToken(t *testing.T, email string) string {
	t.Helper()

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		Subject:   email,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(a.key)
	require.NoError(t, err)

	return token
}

// LoginCalls reports how many login requests the backend received.
func (a *Auth) LoginCalls() int64 {
	return a.loginCalls.Load()
}

// ProfileCalls reports how many who-am-I requests the backend received.
func (a *Auth) ProfileCalls() int64 {
	return a.profileCalls.Load()
}

// Registry returns a backend registry whose auth family targets this server.
// The other families point at the same server and answer 404.
func (a *Auth) Registry(t *testing.T) *backend.Registry {
	t.Helper()

	reg, err := backend.NewRegistry(backend.Config{
		AuthURL:     a.Server.URL,
		CatalogURL:  a.Server.URL,
		VenueURL:    a.Server.URL,
		ScheduleURL: a.Server.URL,
		UsersURL:    a.Server.URL,
	})
	require.NoError(t, err)

	return reg
}

func (a *Auth) login(w http.ResponseWriter, r *http.Request) {
	a.loginCalls.Add(1)

	var form models.LoginForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	acct, ok := a.accounts[form.Email]
	a.mu.Unlock()
	if !ok || acct.password != form.Password {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
		return
	}

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		Subject:   form.Email,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(a.key)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (a *Auth) userProfile(w http.ResponseWriter, r *http.Request) {
	a.profileCalls.Add(1)

	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	a.mu.Lock()
	acct, ok := a.accounts[claims.Subject]
	a.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(acct.profile)
}
