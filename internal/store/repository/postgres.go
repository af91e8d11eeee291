package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendance-tracker/backend/internal/db"
	"attendance-tracker/backend/internal/store/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a store repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the store for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	var (
		s                   domain.Store
		brandID, locationID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, brand_id, location_id, latitude, longitude, geofence_radius, is_active, created_at, updated_at
		FROM stores WHERE id = $1`, id).
		Scan(&s.ID, &brandID, &locationID, &s.Coordinate.Latitude, &s.Coordinate.Longitude,
			&s.GeofenceRadius, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.BrandID = brandID.String
	s.LocationID = locationID.String
	return &s, nil
}

// Create persists the store. A second store for the same brand and location returns domain.ErrDuplicateStore.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Store) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stores (id, brand_id, location_id, latitude, longitude, geofence_radius, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, nullString(s.BrandID), nullString(s.LocationID), s.Coordinate.Latitude, s.Coordinate.Longitude,
		s.GeofenceRadius, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if db.IsUniqueViolation(err, "stores_brand_location_key") {
		return domain.ErrDuplicateStore
	}
	return err
}

// UpdateLocation writes the store's coordinate, radius and updated_at.
func (r *PostgresRepository) UpdateLocation(ctx context.Context, s *domain.Store) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stores SET latitude = $2, longitude = $3, geofence_radius = $4, updated_at = $5
		WHERE id = $1`,
		s.ID, s.Coordinate.Latitude, s.Coordinate.Longitude, s.GeofenceRadius, s.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

// ListActiveIDs returns the ids of active stores ordered by creation time.
func (r *PostgresRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM stores WHERE is_active ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetBrand returns the brand for id, or nil if not found.
func (r *PostgresRepository) GetBrand(ctx context.Context, id string) (*domain.Brand, error) {
	var b domain.Brand
	err := r.db.QueryRowContext(ctx, `SELECT id, name, description, logo FROM brands WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Description, &b.Logo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// GetLocation returns the location for id, or nil if not found.
func (r *PostgresRepository) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	var l domain.Location
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, address, city, state, country, postal_code FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Address, &l.City, &l.State, &l.Country, &l.PostalCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// CreateBrand persists the brand. The brand must have ID set.
func (r *PostgresRepository) CreateBrand(ctx context.Context, b *domain.Brand) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO brands (id, name, description, logo, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		b.ID, b.Name, b.Description, b.Logo, now)
	return err
}

// CreateLocation persists the location. The location must have ID set.
func (r *PostgresRepository) CreateLocation(ctx context.Context, l *domain.Location) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, address, city, state, country, postal_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		l.ID, l.Name, l.Address, l.City, l.State, l.Country, l.PostalCode, now)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
