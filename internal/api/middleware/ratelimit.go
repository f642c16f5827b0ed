package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lahnaomar31/ubo-relay-char/internal/metrics"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int64
	Window   time.Duration
}

// Counter bumps a fixed-window counter and reports the running total.
type Counter interface {
	IncrRateLimit(ctx context.Context, bucket, caller string, window time.Duration) (int64, error)
}

// RateLimiter implements fixed-window rate limiting backed by Redis.
type RateLimiter struct {
	counter Counter
	logger  zerolog.Logger
	limits  map[string]RateLimit
}

// NewRateLimiter creates a new rate limiter with per-endpoint limits.
func NewRateLimiter(counter Counter, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		counter: counter,
		logger:  logger,
		limits: map[string]RateLimit{
			"POST /register":      {10, time.Hour},
			"POST /login":         {20, time.Minute},
			"POST /messages":      {60, time.Minute},
			"GET /conversations/": {120, time.Minute},
			"POST /rooms":         {10, time.Hour},
			"POST /rooms/":        {60, time.Minute},
			"GET /rooms/":         {120, time.Minute},
			"POST /upload":        {20, time.Minute},
		},
	}
}

// Middleware enforces the configured limits. Callers are identified by
// session token when present, by IP otherwise.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket, limit, ok := rl.match(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		caller := callerKey(r)
		count, err := rl.counter.IncrRateLimit(r.Context(), bucket, caller, limit.Window)
		if err != nil {
			// Redis being down should not take messaging down with it.
			rl.logger.Warn().Err(err).Str("bucket", bucket).Msg("rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		remaining := limit.Requests - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit.Requests, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > limit.Requests {
			metrics.RateLimitHits.WithLabelValues(bucket).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// match finds the limit for a request, longest pattern first.
func (rl *RateLimiter) match(r *http.Request) (string, RateLimit, bool) {
	var (
		best      string
		bestLimit RateLimit
	)
	for pattern, limit := range rl.limits {
		method, prefix, found := strings.Cut(pattern, " ")
		if !found || method != r.Method {
			continue
		}
		if strings.HasSuffix(prefix, "/") {
			// Prefix pattern: must have something after the slash.
			if !strings.HasPrefix(r.URL.Path, prefix) || len(r.URL.Path) == len(prefix) {
				continue
			}
		} else if r.URL.Path != prefix {
			continue
		}
		if len(pattern) > len(best) {
			best = pattern
			bestLimit = limit
		}
	}
	return best, bestLimit, best != ""
}

func callerKey(r *http.Request) string {
	if token := BearerToken(r); token != "" {
		return "token:" + token
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return "ip:" + host
}
