package repository

import (
	"context"

	"attendance-tracker/backend/internal/identity/domain"
)

// Repository defines persistence for login credentials.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Identity, error)
	// Upsert creates the user's identity or replaces its PIN hash.
	Upsert(ctx context.Context, i *domain.Identity) error
}
