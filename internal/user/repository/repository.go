package repository

import (
	"context"
	"time"

	"attendance-tracker/backend/internal/user/domain"
)

// Repository defines persistence for users and their store assignments.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create persists the user and its store assignments. Returns domain.ErrEmailTaken on duplicate email.
	Create(ctx context.Context, u *domain.User) error
	// Delete removes the user; its identity and store assignments cascade.
	Delete(ctx context.Context, id string) error
	UpdateRole(ctx context.Context, userID, roleID string, at time.Time) error
	// SetStores replaces the user's store assignments.
	SetStores(ctx context.Context, userID string, storeIDs []string) error
	// AddStore assigns one store; assigning an already assigned store is a no-op.
	AddStore(ctx context.Context, userID, storeID string) error
	ListIDsByRole(ctx context.Context, roleID string) ([]string, error)
	// SetLastLogin sets or, with nil, clears last_login_at.
	SetLastLogin(ctx context.Context, userID string, at *time.Time) error
}
