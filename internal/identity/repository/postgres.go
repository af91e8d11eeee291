package repository

import (
	"context"
	"database/sql"
	"errors"

	"attendance-tracker/backend/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserID returns the identity for the user, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*domain.Identity, error) {
	var i domain.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, pin_hash, created_at, updated_at FROM identities WHERE user_id = $1`, userID).
		Scan(&i.ID, &i.UserID, &i.PINHash, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

// Upsert inserts the identity or, when the user already has one, replaces its PIN hash.
func (r *PostgresRepository) Upsert(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (id, user_id, pin_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET pin_hash = EXCLUDED.pin_hash, updated_at = EXCLUDED.updated_at`,
		i.ID, i.UserID, i.PINHash, i.CreatedAt, i.UpdatedAt)
	return err
}
