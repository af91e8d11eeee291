package repository

import (
	"context"
	"database/sql"
	"errors"

	"attendance-tracker/backend/internal/db"
	"attendance-tracker/backend/internal/photo/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a photo repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the photo for sessionID, or nil if not found.
func (r *PostgresRepository) Get(ctx context.Context, sessionID string) (*domain.Photo, error) {
	var p domain.Photo
	err := r.db.QueryRowContext(ctx, `
		SELECT session_id, content_type, data, width, height, created_at
		FROM attendance_photos WHERE session_id = $1`, sessionID).
		Scan(&p.SessionID, &p.ContentType, &p.Data, &p.Width, &p.Height, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Insert writes p with ex, so the attendance repository can store the photo in its clock-in transaction.
// A session has at most one photo; a second insert fails with a unique violation.
func Insert(ctx context.Context, ex db.Execer, p *domain.Photo) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO attendance_photos (session_id, content_type, data, width, height, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.SessionID, p.ContentType, p.Data, p.Width, p.Height, p.CreatedAt)
	return err
}
