package middleware

import (
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/HanziDeck/internal/ratelimit"
	"go.uber.org/zap"
)

var sensitivePath = regexp.MustCompile(`(?i)(\.sqlite|\.db|\.env|node_modules|\.git|package\.json|package-lock\.json|go\.mod|go\.sum)`)

// BlockSensitivePaths answers 403 for paths naming database files, env
// files, VCS metadata and build manifests.
func BlockSensitivePaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sensitivePath.MatchString(r.URL.Path) {
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

var jwtShape = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)

// ValidateBearerFormat rejects malformed Authorization headers with 400.
// Requests without the header pass through.
func ValidateBearerFormat(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			next.ServeHTTP(w, r)
			return
		}
		parts := strings.Split(h, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusBadRequest, "Invalid Authorization header format")
			return
		}
		if !jwtShape.MatchString(parts[1]) {
			writeError(w, http.StatusBadRequest, "Invalid JWT format")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit allows limit requests per window and client IP. Store errors
// are logged and the request is let through.
func RateLimit(store ratelimit.Store, limit int, window time.Duration, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := store.Allow(r.Context(), clientIP(r), limit, window)
			if err != nil {
				log.Warn("rate limit store unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Retry-After", retryAfter(window))
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfter(window time.Duration) string {
	secs := int(window.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
