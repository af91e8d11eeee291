// Package domain holds the attendance session state machine types.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"attendance-tracker/backend/internal/geo"
	photodomain "attendance-tracker/backend/internal/photo/domain"
	storedomain "attendance-tracker/backend/internal/store/domain"
	userdomain "attendance-tracker/backend/internal/user/domain"
)

var (
	ErrActiveSessionExists = errors.New("user already clocked in")
	ErrStoreNotFound       = errors.New("store not found")
	ErrStoreNotAssigned    = errors.New("user is not assigned to this store")
	ErrStoreInactive       = errors.New("store is not active")
	ErrNoActiveSession     = errors.New("no active attendance record found")
	ErrInvalidInput        = errors.New("invalid attendance request")
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// ParseStatus returns the Status named s. The empty string parses to "" (no filter).
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusActive, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: status must be ACTIVE or COMPLETED", ErrInvalidInput)
}

// ClockIn is the opening event of a session.
type ClockIn struct {
	Time           time.Time
	Coordinate     geo.Coordinate
	WithinGeofence bool
	// Photo is nil when no evidence was uploaded. Listings load it without Data.
	Photo *photodomain.Photo
}

// ClockOut is the closing event of a session.
type ClockOut struct {
	Time           time.Time
	Coordinate     geo.Coordinate
	WithinGeofence bool
}

// Session is one clock-in to clock-out attendance record. Sessions are append-only:
// created ACTIVE, completed at most once, never deleted or re-opened.
type Session struct {
	ID      string
	UserID  string
	StoreID string
	Status  Status
	ClockIn ClockIn
	// ClockOut and DurationMinutes are set iff Status is COMPLETED.
	ClockOut        *ClockOut
	DurationMinutes *int
	// IsWithinGeofence is the clock-in evaluation until clock-out overwrites it.
	IsWithinGeofence bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the session is still open.
func (s *Session) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// HasPhoto reports whether clock-in evidence was stored.
func (s *Session) HasPhoto() bool {
	return s != nil && s.ClockIn.Photo != nil
}

// Complete closes an active session at the given time and place.
func (s *Session) Complete(at time.Time, coord geo.Coordinate, withinGeofence bool) error {
	if !s.IsActive() {
		return ErrNoActiveSession
	}
	d := DurationMinutes(s.ClockIn.Time, at)
	s.ClockOut = &ClockOut{Time: at, Coordinate: coord, WithinGeofence: withinGeofence}
	s.DurationMinutes = &d
	s.IsWithinGeofence = withinGeofence
	s.Status = StatusCompleted
	s.UpdatedAt = at
	return nil
}

// DurationMinutes is the clock-out duration: (out-in) in minutes, rounded half up. Never negative.
func DurationMinutes(in, out time.Time) int {
	if !out.After(in) {
		return 0
	}
	return int(math.Floor(out.Sub(in).Minutes() + 0.5))
}

// ElapsedMinutes is the live duration of an open session: whole minutes elapsed, floored. Never negative.
func ElapsedMinutes(in, now time.Time) int {
	if !now.After(in) {
		return 0
	}
	return int(now.Sub(in) / time.Minute)
}

// DateRange bounds clock-in times inclusively. Nil ends are open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Validate rejects a range whose start is after its end.
func (r DateRange) Validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return fmt.Errorf("%w: startDate must not be after endDate", ErrInvalidInput)
	}
	return nil
}

// Contains reports whether t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// StatusView is a user's current clock-in state.
type StatusView struct {
	IsClockedIn bool
	// Active carries a live DurationMinutes that is not persisted.
	Active *Session
	// Last is the most recent session when none is active.
	Last *Session
}

// ReportFilter selects sessions for a report. Zero fields do not filter.
type ReportFilter struct {
	UserID  string
	StoreID string
	Range   DateRange
	Status  Status
}

// ReportRow is a session joined with its references. Any reference may be nil when the
// referenced row no longer exists.
type ReportRow struct {
	Session  *Session
	User     *userdomain.User
	Store    *storedomain.Store
	Brand    *storedomain.Brand
	Location *storedomain.Location
}
