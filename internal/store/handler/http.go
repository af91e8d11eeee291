package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attendance-tracker/backend/internal/geo"
	"attendance-tracker/backend/internal/platform/httpx"
	"attendance-tracker/backend/internal/server/middleware"
	"attendance-tracker/backend/internal/store/domain"
	"attendance-tracker/backend/internal/store/service"
)

// LocationUpdater changes a store's geofence.
type LocationUpdater interface {
	UpdateLocation(ctx context.Context, actorID, storeID string, in service.LocationUpdate) (*domain.Store, error)
}

// Handler serves /api/stores.
type Handler struct {
	stores LocationUpdater
}

// NewHandler returns the store HTTP handler.
func NewHandler(stores LocationUpdater) *Handler {
	return &Handler{stores: stores}
}

type updateLocationRequest struct {
	Latitude       *float64 `json:"latitude" validate:"required"`
	Longitude      *float64 `json:"longitude" validate:"required"`
	GeofenceRadius *float64 `json:"geofenceRadius"`
}

type storeJSON struct {
	ID             string    `json:"id"`
	BrandID        string    `json:"brandId,omitempty"`
	LocationID     string    `json:"locationId,omitempty"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	GeofenceRadius float64   `json:"geofenceRadius"`
	IsActive       bool      `json:"isActive"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UpdateLocation handles PATCH /{storeId}/location.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeId")
	var req updateLocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	actorID, _ := middleware.GetUserID(r.Context())
	st, err := h.stores.UpdateLocation(r.Context(), actorID, storeID, service.LocationUpdate{
		Coordinate:     geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		GeofenceRadius: req.GeofenceRadius,
	})
	if err != nil {
		switch {
		case errors.Is(err, geo.ErrInvalidCoordinate), errors.Is(err, domain.ErrInvalidRadius):
			httpx.Error(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrStoreNotFound):
			httpx.Error(w, r, http.StatusNotFound, "Store not found")
		default:
			httpx.Internal(w, r, "update location store "+storeID, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, "Store location updated successfully", storeJSON{
		ID:             st.ID,
		BrandID:        st.BrandID,
		LocationID:     st.LocationID,
		Latitude:       st.Coordinate.Latitude,
		Longitude:      st.Coordinate.Longitude,
		GeofenceRadius: st.GeofenceRadius,
		IsActive:       st.IsActive,
		UpdatedAt:      st.UpdatedAt,
	})
}
