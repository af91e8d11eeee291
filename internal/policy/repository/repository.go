package repository

import (
	"context"

	"attendance-tracker/backend/internal/policy/domain"
)

// Repository defines persistence for policies.
type Repository interface {
	GetByName(ctx context.Context, name string) (*domain.Policy, error)
	// ListEnabled returns enabled policies ordered by name.
	ListEnabled(ctx context.Context) ([]*domain.Policy, error)
	// Upsert creates the policy or replaces rules and enabled flag of the policy with the same name.
	Upsert(ctx context.Context, p *domain.Policy) error
}
