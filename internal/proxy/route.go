package proxy

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfeidau/cineadmin/internal/backend"
)

// Route describes one relayed endpoint.
type Route struct {
	// Family selects the backend base URL.
	Family backend.Family
	// Method is the verb used for the outbound call.
	Method string
	// Path is the backend path; "{name}" segments are filled from URL params.
	Path string
	// Query builds the outbound query, nil passes the caller's query through.
	Query func(*http.Request) url.Values
	// Public routes are forwarded without a credential.
	Public bool
	// Body replaces the caller's body when set.
	Body []byte
	// EmptyMessage is returned when the backend answers without a body.
	EmptyMessage string
}

func (rt Route) hasBody() bool {
	switch rt.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func (rt Route) query(r *http.Request) url.Values {
	if rt.Query != nil {
		return rt.Query(r)
	}
	return r.URL.Query()
}

// expandPath fills "{name}" placeholders from chi URL params. It reports false
// when a param is empty or would step outside its path segment.
func (rt Route) expandPath(r *http.Request) (string, bool) {
	path := rt.Path
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return path, !strings.Contains(path, "{")
	}

	for i, key := range rctx.URLParams.Keys {
		placeholder := "{" + key + "}"
		if !strings.Contains(path, placeholder) {
			continue
		}

		value := rctx.URLParams.Values[i]
		if unescaped, err := url.PathUnescape(value); err == nil {
			value = unescaped
		}
		if value == "" || value == "." || value == ".." || strings.Contains(value, "/") {
			return "", false
		}

		path = strings.ReplaceAll(path, placeholder, value)
	}

	return path, !strings.Contains(path, "{")
}
