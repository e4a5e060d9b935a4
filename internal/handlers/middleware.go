package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"lingofocus/internal/security"
)

type contextKey struct{ name string }

var deviceContextKey = &contextKey{"device"}

// Logging attaches logger to the request context and logs each request
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			l := logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// RequireToken rejects requests without a valid device token. A nil issuer
// leaves the API open.
func RequireToken(issuer *security.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if issuer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				respondWithError(w, r, http.StatusUnauthorized, ErrUnauthorized, nil)
				return
			}

			claims, err := issuer.Verify(strings.TrimSpace(token))
			if err != nil {
				respondWithError(w, r, http.StatusUnauthorized, ErrUnauthorized, err)
				return
			}
			ctx := context.WithValue(r.Context(), deviceContextKey, claims.Device)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit throttles expensive endpoints per client IP
func RateLimit(limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := security.GetClientIP(r)
			if !limiter.Allow(ip) {
				retry := int(limiter.RetryAfter(ip).Round(time.Second) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				respondWithError(w, r, http.StatusTooManyRequests, ErrTooManyRequests, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DeviceFromContext returns the device named in the request's token
func DeviceFromContext(ctx context.Context) string {
	device, _ := ctx.Value(deviceContextKey).(string)
	return device
}
