package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// UnknownClientKey groups traffic whose origin cannot be determined. All
// unknown-origin requests share one window, which degrades safely under
// header-stripping proxies.
const UnknownClientKey = "unknown"

// Middleware returns a chi middleware enforcing the given tier for every
// request passing through it. The endpoint component of the counter key is
// the request path.
func (l *Limiter) Middleware(tier Tier, includeHeaders bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := ClientKey(r)
			result := l.Check(r.Context(), clientKey, r.URL.Path, tier)

			if !result.Allowed {
				rateLimitExceeded(w, r, clientKey, result)
				return
			}

			if includeHeaders {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request, clientKey string, result Result) {
	slog.Warn("Rate limit exceeded",
		"client", clientKey,
		"path", r.URL.Path,
		"method", r.Method,
		"reset_at", result.ResetAt,
	)

	retryAfter := int(time.Until(result.ResetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	w.WriteHeader(http.StatusTooManyRequests)

	fmt.Fprintf(w, `{"error":"rate_limit_exceeded","message":"Too many requests. Please try again later."}`)
}

// ClientKey extracts the best-effort client identity from a request:
// first entry of X-Forwarded-For, then X-Real-IP, then the sentinel.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return UnknownClientKey
}
