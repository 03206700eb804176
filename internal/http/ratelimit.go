package http

import (
	"net/http"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cineadmin/internal/telemetry"
	"golang.org/x/time/rate"
)

// defaultLimiterEntries bounds how many client keys are tracked at once.
const defaultLimiterEntries = 10_000

// RateLimiter hands out one token bucket per client key. The least recently
// seen keys are evicted once the table is full.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter allows perMinute requests per key with the given burst.
func NewRateLimiter(perMinute, burst int) (*RateLimiter, error) {
	cache, err := lru.New[string, *rate.Limiter](defaultLimiterEntries)
	if err != nil {
		return nil, err
	}

	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:    burst,
		limiters: cache,
	}, nil
}

// Allow reports whether a request for key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		// concurrent first requests may race here, the loser's bucket is dropped
		if prev, found, _ := rl.limiters.PeekOrAdd(key, limiter); found {
			limiter = prev
		}
	}
	return limiter.Allow()
}

// retryAfter is the wait for one token to refill.
func (rl *RateLimiter) retryAfter() int {
	return max(int(time.Duration(float64(time.Second)/float64(rl.limit)).Seconds()), 1)
}

// RateLimitMiddleware rejects requests with 429 once the client IP exceeds
// the limiter's rate. A nil limiter disables limiting.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIPFromContext(r.Context())
			if key == "" {
				key = ExtractClientIP(r, nil)
			}

			if rl.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			telemetry.GetMetrics().RateLimitedTotal.Add(r.Context(), 1)
			log.Warn().Str("client_ip", key).Str("path", r.URL.Path).Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			WriteMessage(w, r, http.StatusTooManyRequests, "Too many requests")
		})
	}
}
