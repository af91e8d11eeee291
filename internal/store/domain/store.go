package domain

import (
	"errors"
	"fmt"
	"time"

	"attendance-tracker/backend/internal/geo"
)

// Geofence radius bounds in meters.
const (
	MinGeofenceRadius     = 10.0
	MaxGeofenceRadius     = 1000.0
	DefaultGeofenceRadius = 100.0
)

var (
	ErrStoreNotFound  = errors.New("store not found")
	ErrInvalidRadius  = fmt.Errorf("geofence radius must be between %.0f and %.0f meters", MinGeofenceRadius, MaxGeofenceRadius)
	ErrDuplicateStore = errors.New("store already exists for brand and location")
)

// Store is a physical site with a circular geofence.
type Store struct {
	ID             string
	BrandID        string
	LocationID     string
	Coordinate     geo.Coordinate
	GeofenceRadius float64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Contains reports whether point lies inside the store geofence.
func (s *Store) Contains(point geo.Coordinate) bool {
	return geo.WithinGeofence(point, s.Coordinate, s.GeofenceRadius)
}

// Validate fills the default radius and checks coordinate and radius bounds.
func (s *Store) Validate() error {
	if s.GeofenceRadius == 0 {
		s.GeofenceRadius = DefaultGeofenceRadius
	}
	if err := ValidateRadius(s.GeofenceRadius); err != nil {
		return err
	}
	return s.Coordinate.Validate()
}

// ValidateRadius returns ErrInvalidRadius unless r is within the allowed bounds.
func ValidateRadius(r float64) error {
	if !(r >= MinGeofenceRadius && r <= MaxGeofenceRadius) {
		return ErrInvalidRadius
	}
	return nil
}

// Brand is the retail brand a store trades under.
type Brand struct {
	ID          string
	Name        string
	Description string
	Logo        string
}

// Location is the postal location of a store.
type Location struct {
	ID         string
	Name       string
	Address    string
	City       string
	State      string
	Country    string
	PostalCode string
}
