package web

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"exam-access-backend/internal/infra/logging"
	"exam-access-backend/internal/infra/metrics"
	red "exam-access-backend/internal/infra/redis"
)

// requireAuth parses caller identity from the request and stores it in the
// context. 401 when absent or invalid.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required", codeUnauthorized)
			return
		}
		ctx := logging.WithUserID(withClaims(r.Context(), claims), claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePrivileged gates manager/admin-only routes. Must run inside
// requireAuth.
func (s *Server) requirePrivileged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok || !claims.Role.Privileged() {
			writeError(w, http.StatusForbidden, "insufficient role", codeForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit applies a fixed-window per-IP limit in front of a route. Redis
// trouble fails open: abuse deterrence never takes the API down.
func (s *Server) rateLimit(route string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := red.RouteIPKey(route, clientIP(r))
			ok, err := s.limiter.Allow(r.Context(), key, limit, window)
			if err != nil {
				s.log.Warn().Err(err).Str("route", route).Msg("rate limiter unavailable, failing open")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				metrics.IncRateLimitBlock(route)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "too many requests, try again later", codeRateLimit)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the real client IP: X-Forwarded-For first hop, then
// X-Real-IP, then the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// logRequests tags each request with an id and emits one structured line.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		ctx := logging.WithRequestID(r.Context(), reqID)
		w.Header().Set("X-Request-Id", reqID)

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
