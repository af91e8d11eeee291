package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	attendancedomain "attendance-tracker/backend/internal/attendance/domain"
	attendancehandler "attendance-tracker/backend/internal/attendance/handler"
	"attendance-tracker/backend/internal/platform/httpx"
	"attendance-tracker/backend/internal/report"
)

// Generator builds attendance reports.
type Generator interface {
	Generate(ctx context.Context, f report.Filter) (*report.Report, error)
}

// Handler serves GET /api/attendance/report.
type Handler struct {
	engine Generator
}

// NewHandler returns the report HTTP handler.
func NewHandler(engine Generator) *Handler {
	return &Handler{engine: engine}
}

type reportQuery struct {
	UserID  string `validate:"omitempty,uuid"`
	StoreID string `validate:"omitempty,uuid"`
	Format  string `validate:"omitempty,oneof=json csv"`
}

// Generate handles the report query: userId, storeId, startDate, endDate, status and format (json or csv).
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := reportQuery{
		UserID:  strings.TrimSpace(q.Get("userId")),
		StoreID: strings.TrimSpace(q.Get("storeId")),
		Format:  strings.TrimSpace(q.Get("format")),
	}
	if err := httpx.Validate(&in); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status, err := attendancedomain.ParseStatus(strings.TrimSpace(q.Get("status")))
	if err != nil {
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dr, err := attendancehandler.ParseDateRange(r)
	if err != nil {
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := h.engine.Generate(r.Context(), report.Filter{
		UserID:  in.UserID,
		StoreID: in.StoreID,
		Range:   dr,
		Status:  status,
	})
	if err != nil {
		if errors.Is(err, attendancedomain.ErrInvalidInput) {
			httpx.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		httpx.Internal(w, r, fmt.Sprintf("generate report user=%q store=%q", in.UserID, in.StoreID), err)
		return
	}

	if in.Format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=attendance-report.csv")
		w.WriteHeader(http.StatusOK)
		if err := report.WriteCSV(w, rep.Records); err != nil {
			log.Printf("report: write csv: request_id=%s: %v", httpx.RequestID(r.Context()), err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, "Attendance report generated successfully", rep)
}
