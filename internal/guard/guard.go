// Package guard gates access to the dashboard on a successful "who am I" call.
//
// The same check is used in two places: as HTTP middleware in front of the
// server rendered pages, and by the CLI before every protected command. Both
// re-validate against the auth backend each time; a cached profile alone
// never grants access.
package guard

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cineadmin/internal/models"
	"github.com/wolfeidau/cineadmin/internal/proxy"
	"github.com/wolfeidau/cineadmin/internal/session"
	"github.com/wolfeidau/cineadmin/internal/telemetry"
)

// State is the outcome of the most recent check.
type State int32

const (
	StatePending State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// WhoAmIFunc returns the profile that token belongs to.
type WhoAmIFunc func(ctx context.Context, token string) (*models.Profile, error)

// CookieClearer expires the session cookie on a response.
type CookieClearer interface {
	Clear(w http.ResponseWriter)
}

type contextKey string

const profileContextKey contextKey = "profile"

// Guard validates sessions with a who-am-I call.
type Guard struct {
	whoAmI  WhoAmIFunc
	cookies CookieClearer
	state   atomic.Int32
}

// New creates a guard. cookies may be nil when only Check is used.
func New(whoAmI WhoAmIFunc, cookies CookieClearer) *Guard {
	return &Guard{whoAmI: whoAmI, cookies: cookies}
}

// State reports the outcome of the most recent Check. It is StatePending
// before the first check and while a check is in flight.
func (g *Guard) State() State {
	return State(g.state.Load())
}

// Check validates the token held by store. On success the profile is cached
// in store exactly as received. On failure store is logged out. Nothing is
// rendered by the caller until Check returns.
func (g *Guard) Check(ctx context.Context, store *session.Store) (models.Profile, error) {
	g.state.Store(int32(StatePending))

	token, _ := store.Token()
	profile, err := g.whoAmI(ctx, token)
	if err != nil {
		telemetry.GetMetrics().GuardRedirectsTotal.Add(ctx, 1)
		zerolog.Ctx(ctx).Debug().Err(err).Msg("session check failed")

		if logoutErr := store.Logout(ctx); logoutErr != nil {
			zerolog.Ctx(ctx).Warn().Err(logoutErr).Msg("logout after failed session check")
		}
		g.state.Store(int32(StateUnauthenticated))

		return models.Profile{}, err
	}

	store.SetProfile(*profile)
	g.state.Store(int32(StateAuthenticated))

	return *profile, nil
}

// Middleware redirects to loginPath unless the request carries a credential
// the auth backend accepts. The validated profile is available to next via
// ProfileFromContext.
func (g *Guard) Middleware(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := zerolog.Ctx(ctx)

			token, ok := proxy.Credential(r)
			if !ok {
				logger.Debug().Str("path", r.URL.Path).Msg("no session, redirecting to login")
				g.redirect(w, r, loginPath)
				return
			}

			profile, err := g.whoAmI(ctx, token)
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("session rejected, redirecting to login")
				g.redirect(w, r, loginPath)
				return
			}

			logger.Debug().Str("user", profile.Email).Str("path", r.URL.Path).Msg("session validated")

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, profileContextKey, profile)))
		})
	}
}

func (g *Guard) redirect(w http.ResponseWriter, r *http.Request, loginPath string) {
	telemetry.GetMetrics().GuardRedirectsTotal.Add(r.Context(), 1)
	if g.cookies != nil {
		g.cookies.Clear(w)
	}
	http.Redirect(w, r, loginPath, http.StatusFound)
}

// ProfileFromContext returns the profile placed in ctx by Middleware.
func ProfileFromContext(ctx context.Context) (*models.Profile, bool) {
	profile, ok := ctx.Value(profileContextKey).(*models.Profile)
	return profile, ok
}
