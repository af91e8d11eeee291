package repository

import (
	"context"

	"attendance-tracker/backend/internal/attendance/domain"
)

// Repository defines persistence for attendance sessions.
type Repository interface {
	// Create inserts an ACTIVE session together with its clock-in photo, if any, in one transaction.
	// Returns domain.ErrActiveSessionExists when the user already has an ACTIVE session.
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetActiveByUser returns the user's ACTIVE session, or nil if none.
	GetActiveByUser(ctx context.Context, userID string) (*domain.Session, error)
	// GetLatestByUser returns the user's most recent session by clock-in time, or nil if none.
	GetLatestByUser(ctx context.Context, userID string) (*domain.Session, error)
	// Complete persists the clock-out of s only while the stored row is still ACTIVE.
	// Returns domain.ErrNoActiveSession when no row matched.
	Complete(ctx context.Context, s *domain.Session) error
	// ListByUser returns the user's sessions within r, clock-in time descending.
	ListByUser(ctx context.Context, userID string, r domain.DateRange) ([]*domain.Session, error)
	// ReportRows returns sessions matching f joined with their user, store, brand and location,
	// clock-in time descending. Missing references are left nil.
	ReportRows(ctx context.Context, f domain.ReportFilter) ([]*domain.ReportRow, error)
}
