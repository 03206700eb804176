package login

import (
	"net/http"
	"time"

	"github.com/wolfeidau/cineadmin/internal/proxy"
)

// Cookies issues and clears the HTTP-only session cookie that carries the
// backend token.
type Cookies struct {
	// Secure marks the cookie HTTPS only. Disable for local development.
	Secure bool
	// TTL is the cookie lifetime.
	TTL time.Duration
}

// Set stores token in the session cookie.
func (c Cookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     proxy.TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.TTL.Seconds()),
	})
}

// Clear expires the session cookie.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     proxy.TokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
