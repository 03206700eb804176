package commands

import (
	"fmt"
	"net/http"
	"strings"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/cineadmin/internal/backend"
	"github.com/wolfeidau/cineadmin/internal/guard"
	httpmiddleware "github.com/wolfeidau/cineadmin/internal/http"
	"github.com/wolfeidau/cineadmin/internal/logger"
	"github.com/wolfeidau/cineadmin/internal/login"
	"github.com/wolfeidau/cineadmin/internal/proxy"
	"github.com/wolfeidau/cineadmin/internal/web"
)

const loginPage = "/login"

// RouterConfig holds everything the relay router needs.
type RouterConfig struct {
	Logger       zerolog.Logger
	Backends     *backend.Registry
	Cookies      login.Cookies
	CORSOrigins  []string
	LoginLimiter *httpmiddleware.RateLimiter

	// TrustedProxies may set X-Forwarded-For; everyone else is keyed on RemoteAddr.
	TrustedProxies httpmiddleware.TrustedProxies
}

// NewRouter assembles the relay: pages, login and logout, and every proxied
// API endpoint.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	forwarder := proxy.NewForwarder(cfg.Backends)

	loginHandler, err := login.NewHandler(cfg.Backends, cfg.Cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to create login handler: %w", err)
	}

	pages, err := web.New("/")
	if err != nil {
		return nil, err
	}

	sessionGuard := guard.New(forwarder.WhoAmI, cfg.Cookies)

	r := chi.NewRouter()
	r.Use(
		logger.Requests(cfg.Logger),
		httpmiddleware.RequestIDMiddleware(),
		httpmiddleware.ClientIPMiddleware(cfg.TrustedProxies),
		withAPICORS(cfg.CORSOrigins),
		func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) },
	)

	r.Get("/healthz", web.Health)
	r.Get(loginPage, pages.Login)
	r.With(sessionGuard.Middleware(loginPage)).Get("/", pages.Dashboard)

	r.With(httpmiddleware.RateLimitMiddleware(cfg.LoginLimiter)).Post("/api/auth/login", loginHandler.Login)
	r.Post("/api/auth/logout", loginHandler.Logout)

	if err := forwarder.Mount(r); err != nil {
		return nil, err
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			httpmiddleware.WriteMessage(w, r, http.StatusNotFound, proxy.MessageNotFound)
			return
		}
		http.NotFound(w, r)
	})

	// Cookie authenticated writes must come from this origin or a configured CORS origin.
	protection := csrf.New()
	for _, origin := range cfg.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid CORS origin %q: %w", origin, err)
		}
	}

	return protection.Handler(r), nil
}

// isAPIRoute returns true if the path is an API route that needs CORS.
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// withAPICORS adds CORS support to API routes only.
func withAPICORS(allowedOrigins []string) func(http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
		ExposedHeaders:   []string{httpmiddleware.RequestIDHeader},
		AllowCredentials: true, // Required for cookie-based authentication
	})

	return func(next http.Handler) http.Handler {
		withCORS := middleware.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isAPIRoute(r.URL.Path) {
				withCORS.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
