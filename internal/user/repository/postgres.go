package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendance-tracker/backend/internal/db"
	"attendance-tracker/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, role_id, is_active, last_login_at, created_at, updated_at`

// GetByID returns the user for id with its store ids, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var (
		u         domain.User
		lastLogin sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.RoleID, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	u.StoreIDs, err = r.storeIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) storeIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT store_id FROM user_stores WHERE user_id = $1 ORDER BY store_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create persists the user and its store assignments in one transaction. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, first_name, last_name, email, role_id, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			u.ID, u.FirstName, u.LastName, u.Email, u.RoleID, u.IsActive, u.CreatedAt, u.UpdatedAt)
		if db.IsUniqueViolation(err, "users_email_key") {
			return domain.ErrEmailTaken
		}
		if err != nil {
			return err
		}
		err = insertStores(ctx, tx, u.ID, u.StoreIDs)
		if db.IsForeignKeyViolation(err) {
			return domain.ErrUnknownStore
		}
		return err
	})
}

// Delete removes the user row. Identities and store assignments are removed by ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// UpdateRole changes the user's role. Returns domain.ErrUserNotFound when no row matched.
func (r *PostgresRepository) UpdateRole(ctx context.Context, userID, roleID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role_id = $2, updated_at = $3 WHERE id = $1`, userID, roleID, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetStores replaces the user's store assignments.
func (r *PostgresRepository) SetStores(ctx context.Context, userID string, storeIDs []string) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_stores WHERE user_id = $1`, userID); err != nil {
			return err
		}
		return insertStores(ctx, tx, userID, storeIDs)
	})
}

// AddStore assigns one store to the user; existing assignments are left alone.
func (r *PostgresRepository) AddStore(ctx context.Context, userID, storeID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_stores (user_id, store_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, storeID)
	return err
}

// ListIDsByRole returns ids of active users holding roleID.
func (r *PostgresRepository) ListIDsByRole(ctx context.Context, roleID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE role_id = $1 AND is_active ORDER BY id`, roleID)
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

// SetLastLogin sets last_login_at, or clears it when at is nil.
func (r *PostgresRepository) SetLastLogin(ctx context.Context, userID string, at *time.Time) error {
	var v sql.NullTime
	if at != nil {
		v = sql.NullTime{Time: *at, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, v)
	return err
}

func insertStores(ctx context.Context, tx *sql.Tx, userID string, storeIDs []string) error {
	for _, sid := range storeIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_stores (user_id, store_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, sid); err != nil {
			return err
		}
	}
	return nil
}
