// Package server builds the HTTP router that mounts every API handler.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	attendancehandler "attendance-tracker/backend/internal/attendance/handler"
	"attendance-tracker/backend/internal/audit"
	healthhandler "attendance-tracker/backend/internal/health/handler"
	identityhandler "attendance-tracker/backend/internal/identity/handler"
	"attendance-tracker/backend/internal/platform/httpx"
	"attendance-tracker/backend/internal/platform/rbac"
	reporthandler "attendance-tracker/backend/internal/report/handler"
	roledomain "attendance-tracker/backend/internal/role/domain"
	"attendance-tracker/backend/internal/security"
	"attendance-tracker/backend/internal/server/middleware"
	storehandler "attendance-tracker/backend/internal/store/handler"
	"attendance-tracker/backend/internal/telemetry"
	userhandler "attendance-tracker/backend/internal/user/handler"
)

// HealthPath is served without authentication and left out of request telemetry.
const HealthPath = "/api/health"

// Deps holds the handlers and cross-cutting dependencies mounted by NewRouter.
type Deps struct {
	// Tokens validates access tokens for authenticated routes. Required.
	Tokens *security.TokenProvider
	// Accounts resolves the caller's user and role for permission checks. Required.
	Accounts rbac.AccountResolver
	// AuditLogger records mutating requests. If nil, nothing is audited.
	AuditLogger audit.AuditLogger
	// Tracer and Emitter back the request telemetry middleware; both may be nil.
	Tracer  trace.Tracer
	Emitter telemetry.EventEmitter

	Auth       *identityhandler.AuthHandler
	Attendance *attendancehandler.Handler
	Reports    *reporthandler.Handler
	Stores     *storehandler.Handler
	Users      *userhandler.Handler
	Health     *healthhandler.Handler
}

// NewRouter returns the API router.
//
// Route → handler mapping:
//   - /api/auth        → internal/identity/handler
//   - /api/attendance  → internal/attendance/handler, internal/report/handler
//   - /api/stores      → internal/store/handler
//   - /api/users       → internal/user/handler
//   - /api/health      → internal/health/handler
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Telemetry(deps.Tracer, deps.Emitter, map[string]bool{HealthPath: true}))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.Error(w, req, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.Error(w, req, http.StatusMethodNotAllowed, "Method not allowed")
	})

	auditLogger := deps.AuditLogger
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}

	r.Get(HealthPath, deps.Health.Health)
	r.Post("/api/auth/login", deps.Auth.Login)
	r.Get("/api/attendance/image/{id}", deps.Attendance.Image)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Tokens))
		r.Use(middleware.Audit(auditLogger))
		r.Use(rbac.LoadAccount(deps.Accounts))

		r.Post("/api/auth/logout", deps.Auth.Logout)

		r.Get("/api/attendance", deps.Attendance.History)
		r.Post("/api/attendance/clock-in", deps.Attendance.ClockIn)
		r.Post("/api/attendance/clock-out", deps.Attendance.ClockOut)
		r.Get("/api/attendance/status", deps.Attendance.Status)
		r.With(rbac.Require(deps.Accounts, roledomain.ResourceReports, roledomain.ActionRead)).
			Get("/api/attendance/report", deps.Reports.Generate)

		r.With(rbac.Require(deps.Accounts, roledomain.ResourceStores, roledomain.ActionUpdate)).
			Patch("/api/stores/{storeId}/location", deps.Stores.UpdateLocation)

		r.With(rbac.Require(deps.Accounts, roledomain.ResourceUsers, roledomain.ActionCreate)).
			Post("/api/users", deps.Users.Create)
		r.With(rbac.Require(deps.Accounts, roledomain.ResourceRoles, roledomain.ActionUpdate)).
			Patch("/api/users/{userId}/role", deps.Users.ChangeRole)
	})
	return r
}
