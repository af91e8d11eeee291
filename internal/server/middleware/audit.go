package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"attendance-tracker/backend/internal/audit"
)

type requestAuditMetadata struct {
	Method string `json:"method"`
	Route  string `json:"route"`
	Status int    `json:"status"`
}

// Audit records an audit log entry after each authenticated mutating request.
// Action and resource come from the matched chi route pattern. Best-effort: failures are logged by the logger.
func Audit(logger audit.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if logger == nil || !audit.IsMutating(r.Method) {
				return
			}
			userID, ok := GetUserID(r.Context())
			if !ok {
				return
			}
			pattern := routePattern(r)
			ar := audit.ParseRoute(r.Method, pattern)
			meta, _ := json.Marshal(requestAuditMetadata{Method: r.Method, Route: pattern, Status: statusOf(ww)})
			logger.LogEvent(r.Context(), userID, ar.Action, ar.Resource, firstURLParam(r), string(meta))
		})
	}
}

// routePattern returns the matched chi pattern, or the raw path outside a router.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func firstURLParam(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	for i, k := range rctx.URLParams.Keys {
		if k != "*" && i < len(rctx.URLParams.Values) {
			return rctx.URLParams.Values[i]
		}
	}
	return ""
}

func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
