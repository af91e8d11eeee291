package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"attendance-tracker/backend/internal/attendance/domain"
	"attendance-tracker/backend/internal/attendance/service"
	"attendance-tracker/backend/internal/geo"
	photodomain "attendance-tracker/backend/internal/photo/domain"
	"attendance-tracker/backend/internal/platform/httpx"
	"attendance-tracker/backend/internal/server/middleware"
	userdomain "attendance-tracker/backend/internal/user/domain"
)

// multipartOverhead is the allowance for form fields on top of the photo size limit.
const multipartOverhead = 1 << 20

// ImageField is the multipart field carrying the clock-in photo.
const ImageField = "image"

// AttendanceService is the session state machine used by the handler.
type AttendanceService interface {
	ClockIn(ctx context.Context, in service.ClockInInput) (*domain.Session, error)
	ClockOut(ctx context.Context, in service.ClockOutInput) (*domain.Session, error)
	Status(ctx context.Context, userID string) (*domain.StatusView, error)
	History(ctx context.Context, userID string, r domain.DateRange) ([]*domain.Session, error)
}

// PhotoStore serves stored clock-in photos.
type PhotoStore interface {
	Retrieve(ctx context.Context, sessionID string) (*photodomain.Photo, error)
	MaxBytes() int64
}

// Handler serves /api/attendance.
type Handler struct {
	svc      AttendanceService
	photos   PhotoStore
	imageURL func(sessionID string) string
}

// NewHandler returns the attendance HTTP handler. imageURL builds the public link of a session photo.
func NewHandler(svc AttendanceService, photos PhotoStore, imageURL func(string) string) *Handler {
	return &Handler{svc: svc, photos: photos, imageURL: imageURL}
}

type clockInForm struct {
	StoreID   string `validate:"required,uuid"`
	Latitude  string `validate:"required,latitude"`
	Longitude string `validate:"required,longitude"`
}

type clockOutRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type locationJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type clockInJSON struct {
	Time           time.Time    `json:"time"`
	Location       locationJSON `json:"location"`
	WithinGeofence bool         `json:"withinGeofence"`
	Image          *string      `json:"image"`
}

type clockOutJSON struct {
	Time           time.Time    `json:"time"`
	Location       locationJSON `json:"location"`
	WithinGeofence bool         `json:"withinGeofence"`
}

type sessionJSON struct {
	ID               string        `json:"id"`
	UserID           string        `json:"userId"`
	StoreID          string        `json:"storeId"`
	Status           string        `json:"status"`
	ClockIn          clockInJSON   `json:"clockIn"`
	ClockOut         *clockOutJSON `json:"clockOut"`
	Duration         *int          `json:"duration"`
	IsWithinGeofence bool          `json:"isWithinGeofence"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type statusJSON struct {
	IsClockedIn       bool         `json:"isClockedIn"`
	CurrentAttendance *sessionJSON `json:"currentAttendance,omitempty"`
	LastAttendance    *sessionJSON `json:"lastAttendance"`
}

// ClockIn handles POST /clock-in (multipart: storeId, latitude, longitude, optional image).
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	maxBytes := h.photos.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, "clock in", photodomain.ErrTooLarge)
			return
		}
		httpx.Error(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	form := clockInForm{
		StoreID:   strings.TrimSpace(r.FormValue("storeId")),
		Latitude:  strings.TrimSpace(r.FormValue("latitude")),
		Longitude: strings.TrimSpace(r.FormValue("longitude")),
	}
	if err := httpx.Validate(&form); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	coord, err := parseCoordinate(form.Latitude, form.Longitude)
	if err != nil {
		h.writeError(w, r, "clock in", err)
		return
	}
	upload, err := readUpload(r)
	if err != nil {
		h.writeError(w, r, "clock in", err)
		return
	}
	sess, err := h.svc.ClockIn(r.Context(), service.ClockInInput{
		UserID:     userID,
		StoreID:    form.StoreID,
		Coordinate: coord,
		Photo:      upload,
	})
	if err != nil {
		h.writeError(w, r, "clock in user "+userID+" store "+form.StoreID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Successfully clocked in", h.sessionToJSON(sess))
}

// ClockOut handles POST /clock-out.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req clockOutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := h.svc.ClockOut(r.Context(), service.ClockOutInput{
		UserID:     userID,
		Coordinate: geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
	})
	if err != nil {
		h.writeError(w, r, "clock out user "+userID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Successfully clocked out", h.sessionToJSON(sess))
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	view, err := h.svc.Status(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "status user "+userID, err)
		return
	}
	out := statusJSON{IsClockedIn: view.IsClockedIn}
	if view.Active != nil {
		out.CurrentAttendance = h.sessionToJSON(view.Active)
	}
	if view.Last != nil {
		out.LastAttendance = h.sessionToJSON(view.Last)
	}
	httpx.JSON(w, http.StatusOK, "Successfully retrieved clock-in status", out)
}

// History handles GET / with optional startDate and endDate (RFC 3339).
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	dr, err := ParseDateRange(r)
	if err != nil {
		h.writeError(w, r, "history", err)
		return
	}
	sessions, err := h.svc.History(r.Context(), userID, dr)
	if err != nil {
		h.writeError(w, r, "history user "+userID, err)
		return
	}
	out := make([]*sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, h.sessionToJSON(s))
	}
	httpx.JSON(w, http.StatusOK, "Successfully retrieved attendance records", out)
}

// Image handles GET /image/{id} and writes the raw photo bytes.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.photos.Retrieve(r.Context(), id)
	if err != nil {
		if errors.Is(err, photodomain.ErrPhotoNotFound) {
			httpx.Error(w, r, http.StatusNotFound, "Image not found")
			return
		}
		h.writeError(w, r, "image "+id, err)
		return
	}
	w.Header().Set("Content-Type", p.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Data)
}

// ParseDateRange reads the optional startDate and endDate query parameters.
func ParseDateRange(r *http.Request) (domain.DateRange, error) {
	var dr domain.DateRange
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"startDate", &dr.Start}, {"endDate", &dr.End}} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return dr, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", domain.ErrInvalidInput, p.name)
		}
		*p.dst = &t
	}
	return dr, dr.Validate()
}

func parseCoordinate(lat, lon string) (geo.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return geo.Coordinate{}, geo.ErrInvalidCoordinate
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return geo.Coordinate{}, geo.ErrInvalidCoordinate
	}
	c := geo.Coordinate{Latitude: la, Longitude: lo}
	return c, c.Validate()
}

// readUpload returns the image part of the form, or nil when none was sent.
func readUpload(r *http.Request) (*photodomain.Upload, error) {
	file, header, err := r.FormFile(ImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &photodomain.Upload{
		Filename:     header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Data:         data,
	}, nil
}

func (h *Handler) sessionToJSON(s *domain.Session) *sessionJSON {
	out := &sessionJSON{
		ID:      s.ID,
		UserID:  s.UserID,
		StoreID: s.StoreID,
		Status:  string(s.Status),
		ClockIn: clockInJSON{
			Time:           s.ClockIn.Time,
			Location:       locationJSON{Latitude: s.ClockIn.Coordinate.Latitude, Longitude: s.ClockIn.Coordinate.Longitude},
			WithinGeofence: s.ClockIn.WithinGeofence,
		},
		Duration:         s.DurationMinutes,
		IsWithinGeofence: s.IsWithinGeofence,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.HasPhoto() && h.imageURL != nil {
		url := h.imageURL(s.ID)
		out.ClockIn.Image = &url
	}
	if co := s.ClockOut; co != nil {
		out.ClockOut = &clockOutJSON{
			Time:           co.Time,
			Location:       locationJSON{Latitude: co.Coordinate.Latitude, Longitude: co.Coordinate.Longitude},
			WithinGeofence: co.WithinGeofence,
		}
	}
	return out
}

// writeError maps domain errors to status codes; anything unrecognized is logged as internal with op.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNoActiveSession),
		errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, photodomain.ErrInvalidSessionID),
		errors.Is(err, photodomain.ErrEmptyPhoto),
		errors.Is(err, photodomain.ErrUnsupportedType),
		errors.Is(err, photodomain.ErrTooLarge):
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrActiveSessionExists):
		httpx.Error(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStoreNotFound):
		httpx.Error(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrStoreNotAssigned), errors.Is(err, domain.ErrStoreInactive):
		httpx.Error(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, userdomain.ErrUserNotFound):
		httpx.Error(w, r, http.StatusUnauthorized, "User not found or inactive")
	default:
		httpx.Internal(w, r, op, err)
	}
}
