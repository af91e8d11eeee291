package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"attendance-tracker/backend/internal/platform/httpx"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "x-request-id"

// maxRequestIDLen bounds client supplied request ids.
const maxRequestIDLen = 128

// RequestContext propagates or generates x-request-id and records the client IP in the request context.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := httpx.WithRequestID(r.Context(), id)
		ctx = WithClientIP(ctx, ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the client IP from x-forwarded-for, x-real-ip or the remote address, or "unknown".
func ClientIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("X-Real-IP")); s != "" {
		return s
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
