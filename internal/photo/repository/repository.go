package repository

import (
	"context"

	"attendance-tracker/backend/internal/photo/domain"
)

// Repository reads clock-in photos keyed by session id. Photos are written only by
// Insert, inside the clock-in transaction.
type Repository interface {
	// Get returns the photo with its bytes, or nil if the session has none.
	Get(ctx context.Context, sessionID string) (*domain.Photo, error)
}
