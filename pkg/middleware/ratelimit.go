package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for the fixed-window rate limiter.
type RateLimitConfig struct {
	// Prefix namespaces the redis keys (e.g. "rl:auth").
	Prefix string

	// Limit is the maximum number of requests allowed per window.
	Limit int

	// Window is the fixed window duration.
	Window time.Duration
}

// DefaultAuthRateLimit returns the limiter settings used for credential
// endpoints: 5 attempts per 15 minutes per client IP.
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Prefix: "rl:auth",
		Limit:  5,
		Window: 15 * time.Minute,
	}
}

// RateLimit returns middleware that enforces a fixed-window request limit per
// client IP, counting in Redis so the limit holds across replicas. The counter
// key expires with the window; when Redis is unreachable the request is let
// through and the failure logged, since availability wins over throttling.
func RateLimit(client *redis.Client, cfg RateLimitConfig, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("%s:%s", cfg.Prefix, clientIP(r))

			count, err := client.Incr(r.Context(), key).Result()
			if err != nil {
				l.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if count == 1 {
				_ = client.Expire(r.Context(), key, cfg.Window).Err()
			}

			remaining := cfg.Limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("RateLimit-Limit", strconv.Itoa(cfg.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > cfg.Limit {
				l.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": "too many requests, please try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client address, preferring X-Forwarded-For when the
// service runs behind a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
