package handler

import (
	"context"
	"net/http"
	"time"

	"attendance-tracker/backend/internal/health"
	"attendance-tracker/backend/internal/platform/httpx"
)

// Checker is the readiness source behind GET /api/health.
type Checker interface {
	Last() (health.Report, bool)
	Check(ctx context.Context) health.Report
}

// Handler serves the HTTP health endpoint.
type Handler struct {
	checker Checker
}

// NewHandler returns a health handler. A nil checker always reports ok.
func NewHandler(checker Checker) *Handler {
	return &Handler{checker: checker}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Policy    string    `json:"policy"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Health reports the latest readiness probe; 503 when a dependency is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		httpx.JSON(w, http.StatusOK, "Service is healthy", healthResponse{Status: "ok", Database: "skipped", Policy: "skipped", CheckedAt: time.Now().UTC()})
		return
	}
	rep, ok := h.checker.Last()
	if !ok {
		rep = h.checker.Check(r.Context())
	}
	body := healthResponse{Status: "ok", Database: rep.Database, Policy: rep.Policy, CheckedAt: rep.At}
	if !rep.Serving {
		body.Status = "unavailable"
		httpx.JSON(w, http.StatusServiceUnavailable, "Service is unavailable", body)
		return
	}
	httpx.JSON(w, http.StatusOK, "Service is healthy", body)
}
