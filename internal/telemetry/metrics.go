package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/cineadmin"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Relay metrics
	ProxyRequestsTotal    metric.Int64Counter
	ProxyRejectedTotal    metric.Int64Counter
	ProxyServerErrorTotal metric.Int64Counter

	// Backend call metrics
	BackendRequestsTotal metric.Int64Counter
	BackendErrorsTotal   metric.Int64Counter
	BackendDuration      metric.Float64Histogram

	// Session metrics
	LoginsTotal         metric.Int64Counter
	LoginFailuresTotal  metric.Int64Counter
	LogoutsTotal        metric.Int64Counter
	GuardRedirectsTotal metric.Int64Counter
	RateLimitedTotal    metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Relay metrics
	m.ProxyRequestsTotal, _ = meter.Int64Counter(
		"cineadmin.proxy.requests.total",
		metric.WithDescription("Total number of requests handled by the relay"),
		metric.WithUnit("{request}"),
	)

	m.ProxyRejectedTotal, _ = meter.Int64Counter(
		"cineadmin.proxy.rejected.total",
		metric.WithDescription("Total number of requests rejected for a missing credential"),
		metric.WithUnit("{request}"),
	)

	m.ProxyServerErrorTotal, _ = meter.Int64Counter(
		"cineadmin.proxy.server_errors.total",
		metric.WithDescription("Total number of requests answered with a generic server error"),
		metric.WithUnit("{request}"),
	)

	// Backend call metrics
	m.BackendRequestsTotal, _ = meter.Int64Counter(
		"cineadmin.backend.requests.total",
		metric.WithDescription("Total number of calls made to backend services"),
		metric.WithUnit("{request}"),
	)

	m.BackendErrorsTotal, _ = meter.Int64Counter(
		"cineadmin.backend.errors.total",
		metric.WithDescription("Total number of failed backend calls (network, status or decode)"),
		metric.WithUnit("{error}"),
	)

	m.BackendDuration, _ = meter.Float64Histogram(
		"cineadmin.backend.duration",
		metric.WithDescription("Duration of backend calls"),
		metric.WithUnit("ms"),
	)

	// Session metrics
	m.LoginsTotal, _ = meter.Int64Counter(
		"cineadmin.session.logins.total",
		metric.WithDescription("Total number of successful logins"),
		metric.WithUnit("{login}"),
	)

	m.LoginFailuresTotal, _ = meter.Int64Counter(
		"cineadmin.session.login_failures.total",
		metric.WithDescription("Total number of failed logins"),
		metric.WithUnit("{login}"),
	)

	m.LogoutsTotal, _ = meter.Int64Counter(
		"cineadmin.session.logouts.total",
		metric.WithDescription("Total number of logouts"),
		metric.WithUnit("{logout}"),
	)

	m.GuardRedirectsTotal, _ = meter.Int64Counter(
		"cineadmin.guard.redirects.total",
		metric.WithDescription("Total number of guarded page loads redirected to login"),
		metric.WithUnit("{redirect}"),
	)

	m.RateLimitedTotal, _ = meter.Int64Counter(
		"cineadmin.ratelimit.rejected.total",
		metric.WithDescription("Total number of requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	)

	return m
}
