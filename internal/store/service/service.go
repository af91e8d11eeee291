// Package service implements store management: creation and geofence updates.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"attendance-tracker/backend/internal/audit"
	"attendance-tracker/backend/internal/geo"
	"attendance-tracker/backend/internal/store/domain"
	storerepo "attendance-tracker/backend/internal/store/repository"
)

// StoreAssigner gives admin users access to a newly created store.
type StoreAssigner interface {
	AssignAdminsToStore(ctx context.Context, storeID string) error
}

// LocationUpdate is the payload of a store geofence change. A nil radius keeps the current one.
type LocationUpdate struct {
	Coordinate     geo.Coordinate
	GeofenceRadius *float64
}

// Service manages stores.
type Service struct {
	repo     storerepo.Repository
	assigner StoreAssigner
	audit    audit.AuditLogger
	now      func() time.Time
}

// NewService returns a store service. assigner and auditLogger may be nil.
func NewService(repo storerepo.Repository, assigner StoreAssigner, auditLogger audit.AuditLogger) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Service{repo: repo, assigner: assigner, audit: auditLogger, now: time.Now}
}

// Get returns the store or domain.ErrStoreNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Store, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, domain.ErrStoreNotFound
	}
	return st, nil
}

// Create validates and persists a store, then assigns it to every admin user.
func (s *Service) Create(ctx context.Context, st *domain.Store) (*domain.Store, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	st.CreatedAt, st.UpdatedAt = now, now
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	if s.assigner != nil && st.IsActive {
		if err := s.assigner.AssignAdminsToStore(ctx, st.ID); err != nil {
			return nil, fmt.Errorf("assign admins to store %s: %w", st.ID, err)
		}
	}
	return st, nil
}

// UpdateLocation moves a store's geofence center and optionally its radius.
func (s *Service) UpdateLocation(ctx context.Context, actorID, storeID string, in LocationUpdate) (*domain.Store, error) {
	if err := in.Coordinate.Validate(); err != nil {
		return nil, err
	}
	if in.GeofenceRadius != nil {
		if err := domain.ValidateRadius(*in.GeofenceRadius); err != nil {
			return nil, err
		}
	}
	st, err := s.Get(ctx, storeID)
	if err != nil {
		return nil, err
	}
	st.Coordinate = in.Coordinate
	if in.GeofenceRadius != nil {
		st.GeofenceRadius = *in.GeofenceRadius
	}
	st.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateLocation(ctx, st); err != nil {
		return nil, err
	}

	meta, err := json.Marshal(map[string]any{
		"latitude":       st.Coordinate.Latitude,
		"longitude":      st.Coordinate.Longitude,
		"geofenceRadius": st.GeofenceRadius,
	})
	if err != nil {
		log.Printf("store: marshal audit metadata for %s: %v", st.ID, err)
	}
	s.audit.LogEvent(ctx, actorID, "update_location", "store", st.ID, string(meta))
	return st, nil
}
