package repository

import (
	"context"

	"attendance-tracker/backend/internal/store/domain"
)

// Repository defines persistence for stores and their brand/location references.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Store, error)
	Create(ctx context.Context, s *domain.Store) error
	// UpdateLocation sets coordinate and radius; returns domain.ErrStoreNotFound when no row matched.
	UpdateLocation(ctx context.Context, s *domain.Store) error
	// ListActiveIDs returns the ids of every active store.
	ListActiveIDs(ctx context.Context) ([]string, error)
	GetBrand(ctx context.Context, id string) (*domain.Brand, error)
	GetLocation(ctx context.Context, id string) (*domain.Location, error)
	CreateBrand(ctx context.Context, b *domain.Brand) error
	CreateLocation(ctx context.Context, l *domain.Location) error
}
