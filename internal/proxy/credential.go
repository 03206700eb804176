package proxy

import (
	"net/http"
	"strings"
)

// TokenCookieName is the HTTP-only cookie set at login.
const TokenCookieName = "token"

// Credential returns the caller's session token. The HTTP-only cookie is
// preferred; an explicit "Authorization: Bearer" header is accepted for
// callers that hold the token themselves.
func Credential(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	if token := bearerToken(r); token != "" {
		return token, true
	}

	return "", false
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
