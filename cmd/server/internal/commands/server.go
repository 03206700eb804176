package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cineadmin/internal/backend"
	httpmiddleware "github.com/wolfeidau/cineadmin/internal/http"
	"github.com/wolfeidau/cineadmin/internal/logger"
	"github.com/wolfeidau/cineadmin/internal/login"
	"github.com/wolfeidau/cineadmin/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8443" env:"CINEADMIN_LISTEN"`
	Cert   string `help:"path to TLS cert file, empty serves plain HTTP" default:"" env:"CINEADMIN_TLS_CERT"`
	Key    string `help:"path to TLS key file, empty serves plain HTTP" default:"" env:"CINEADMIN_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"CINEADMIN_CORS_ORIGINS"`

	// Reverse proxies allowed to report the client address via X-Forwarded-For / X-Real-IP
	TrustedProxies []string `help:"CIDRs of reverse proxies whose forwarding headers are trusted, empty trusts none" env:"CINEADMIN_TRUSTED_PROXIES"`

	// Session cookie configuration
	SessionTTL   time.Duration `help:"session cookie lifetime" default:"24h" env:"CINEADMIN_SESSION_TTL"`
	CookieSecure bool          `help:"mark the session cookie Secure; browsers drop Secure cookies over plain HTTP except on localhost, so disable it when serving HTTP without --cert" default:"true" negatable:"" env:"CINEADMIN_COOKIE_SECURE"`

	// Login rate limiting
	LoginRate  int `help:"login attempts allowed per minute per client IP, 0 disables" default:"10" env:"CINEADMIN_LOGIN_RATE"`
	LoginBurst int `help:"login attempt burst per client IP" default:"5" env:"CINEADMIN_LOGIN_BURST"`

	// Backends
	Backends BackendFlags `embed:"" prefix:"backend-"`

	// Observability
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"CINEADMIN_TRACING"`
	SampleRatio float64 `help:"trace sample ratio when tracing is enabled" default:"1.0" env:"CINEADMIN_TRACE_SAMPLE_RATIO"`
}

// BackendFlags holds the base URL of each backend family.
type BackendFlags struct {
	AuthURL     string        `help:"auth service base URL" required:"" env:"CINEADMIN_BACKEND_AUTH_URL"`
	CatalogURL  string        `help:"movie catalog service base URL" required:"" env:"CINEADMIN_BACKEND_CATALOG_URL"`
	VenueURL    string        `help:"cinema venue service base URL" required:"" env:"CINEADMIN_BACKEND_VENUE_URL"`
	ScheduleURL string        `help:"showtime schedule service base URL" required:"" env:"CINEADMIN_BACKEND_SCHEDULE_URL"`
	UsersURL    string        `help:"user management service base URL" required:"" env:"CINEADMIN_BACKEND_USERS_URL"`
	Timeout     time.Duration `help:"per call backend timeout, 0 leaves it to the transport" default:"0s" env:"CINEADMIN_BACKEND_TIMEOUT"`
}

func (b BackendFlags) config(transport http.RoundTripper) backend.Config {
	return backend.Config{
		AuthURL:     b.AuthURL,
		CatalogURL:  b.CatalogURL,
		VenueURL:    b.VenueURL,
		ScheduleURL: b.ScheduleURL,
		UsersURL:    b.UsersURL,
		Timeout:     b.Timeout,
		Transport:   transport,
	}
}

func (c *ServerCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Dev)

	log.Info().Str("version", globals.Version).Bool("dev", globals.Dev).Msg("Starting server")

	var transport http.RoundTripper = http.DefaultTransport

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Float64("sample_ratio", c.SampleRatio).Msg("Tracing is enabled")
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "cineadmin-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
		transport = otelhttp.NewTransport(transport)
	}

	backends, err := backend.NewRegistry(c.Backends.config(transport))
	if err != nil {
		return err
	}

	var limiter *httpmiddleware.RateLimiter
	if c.LoginRate > 0 {
		limiter, err = httpmiddleware.NewRateLimiter(c.LoginRate, c.LoginBurst)
		if err != nil {
			return fmt.Errorf("failed to create login rate limiter: %w", err)
		}
	}

	if !c.CookieSecure {
		log.Warn().Msg("Session cookie is not marked Secure (--no-cookie-secure). This should only be used in development!")
	}
	if c.secureCookieOverHTTP() {
		log.Warn().Str("listen", c.Listen).Msg("Serving plain HTTP with a Secure session cookie, browsers will only keep it on localhost or behind a TLS terminating proxy")
	}

	trusted, err := httpmiddleware.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return err
	}

	handler, err := NewRouter(RouterConfig{
		Logger:         log,
		Backends:       backends,
		Cookies:        login.Cookies{Secure: c.CookieSecure, TTL: c.SessionTTL},
		CORSOrigins:    c.CORSOrigins,
		LoginLimiter:   limiter,
		TrustedProxies: trusted,
	})
	if err != nil {
		return err
	}

	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "cineadmin")
	}

	srv := configureHTTPServer(c.Listen, handler, c.Backends.Timeout)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.serve(srv, log)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// secureCookieOverHTTP reports whether a Secure session cookie would be set
// by a plain HTTP listener.
func (c *ServerCmd) secureCookieOverHTTP() bool {
	return c.CookieSecure && (c.Cert == "" || c.Key == "")
}

func (c *ServerCmd) serve(srv *http.Server, log zerolog.Logger) error {
	if c.Cert == "" && c.Key == "" {
		log.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		return srv.ListenAndServe()
	}

	// Validate TLS certificates
	if c.Cert == "" || c.Key == "" {
		return errors.New("both TLS certificate and key are required (--cert and --key)")
	}
	if _, err := os.Stat(c.Cert); err != nil {
		return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
	}
	if _, err := os.Stat(c.Key); err != nil {
		return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
	}

	log.Info().Str("addr", srv.Addr).Msg("Starting HTTPS server")
	return srv.ListenAndServeTLS(c.Cert, c.Key)
}
