package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"attendance-tracker/backend/internal/attendance/domain"
	"attendance-tracker/backend/internal/db"
	photodomain "attendance-tracker/backend/internal/photo/domain"
	photorepo "attendance-tracker/backend/internal/photo/repository"
	storedomain "attendance-tracker/backend/internal/store/domain"
	userdomain "attendance-tracker/backend/internal/user/domain"
)

const activeSessionIndex = "attendance_sessions_one_active_per_user"

// sessionColumns is selected from attendance_sessions s LEFT JOIN attendance_photos p.
// Photo bytes are never loaded here; p.content_type marks that evidence exists.
const sessionColumns = `
	s.id, s.user_id, s.store_id, s.status,
	s.clock_in_time, s.clock_in_latitude, s.clock_in_longitude, s.clock_in_within_geofence,
	s.clock_out_time, s.clock_out_latitude, s.clock_out_longitude, s.clock_out_within_geofence,
	s.duration_minutes, s.is_within_geofence, s.created_at, s.updated_at,
	p.content_type, p.width, p.height, p.created_at`

const sessionFrom = `
	FROM attendance_sessions s
	LEFT JOIN attendance_photos p ON p.session_id = s.id`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an attendance repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the session and its photo in a single transaction.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_sessions (
				id, user_id, store_id, status,
				clock_in_time, clock_in_latitude, clock_in_longitude, clock_in_within_geofence,
				is_within_geofence, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			s.ID, s.UserID, s.StoreID, string(s.Status),
			s.ClockIn.Time, s.ClockIn.Coordinate.Latitude, s.ClockIn.Coordinate.Longitude, s.ClockIn.WithinGeofence,
			s.IsWithinGeofence, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return err
		}
		if p := s.ClockIn.Photo; p != nil {
			p.SessionID = s.ID
			if err := photorepo.Insert(ctx, tx, p); err != nil {
				return fmt.Errorf("insert photo: %w", err)
			}
		}
		return nil
	})
	if db.IsUniqueViolation(err, activeSessionIndex) {
		return domain.ErrActiveSessionExists
	}
	return err
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+sessionFrom+` WHERE s.id = $1`, id)
}

// GetActiveByUser returns the user's ACTIVE session, or nil if none.
func (r *PostgresRepository) GetActiveByUser(ctx context.Context, userID string) (*domain.Session, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+sessionFrom+`
		WHERE s.user_id = $1 AND s.status = 'ACTIVE'`, userID)
}

// GetLatestByUser returns the user's most recent session, or nil if none.
func (r *PostgresRepository) GetLatestByUser(ctx context.Context, userID string) (*domain.Session, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+sessionFrom+`
		WHERE s.user_id = $1 ORDER BY s.clock_in_time DESC, s.id DESC LIMIT 1`, userID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Complete writes the clock-out fields with a conditional update on status.
func (r *PostgresRepository) Complete(ctx context.Context, s *domain.Session) error {
	if s.ClockOut == nil || s.DurationMinutes == nil {
		return errors.New("attendance: complete requires clock-out and duration")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions
		SET status = $2, clock_out_time = $3, clock_out_latitude = $4, clock_out_longitude = $5,
		    clock_out_within_geofence = $6, duration_minutes = $7, is_within_geofence = $8, updated_at = $9
		WHERE id = $1 AND status = 'ACTIVE'`,
		s.ID, string(s.Status), s.ClockOut.Time, s.ClockOut.Coordinate.Latitude, s.ClockOut.Coordinate.Longitude,
		s.ClockOut.WithinGeofence, *s.DurationMinutes, s.IsWithinGeofence, s.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNoActiveSession
	}
	return nil
}

// ListByUser returns the user's sessions within the range, newest clock-in first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, dr domain.DateRange) ([]*domain.Session, error) {
	where, args := []string{"s.user_id = $1"}, []any{userID}
	where, args = appendRange(where, args, dr)
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+sessionFrom+`
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY s.clock_in_time DESC, s.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReportRows returns the filtered sessions with their references, newest clock-in first.
func (r *PostgresRepository) ReportRows(ctx context.Context, f domain.ReportFilter) ([]*domain.ReportRow, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("s.user_id = $%d", len(args)))
	}
	if f.StoreID != "" {
		args = append(args, f.StoreID)
		where = append(where, fmt.Sprintf("s.store_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("s.status = $%d", len(args)))
	}
	where, args = appendRange(where, args, f.Range)
	query := `SELECT ` + sessionColumns + `,
			u.id, u.first_name, u.last_name, u.email,
			st.id, st.latitude, st.longitude, st.geofence_radius, st.is_active,
			b.id, b.name, b.description, b.logo, l.id, l.name, l.address, l.city, l.state, l.country, l.postal_code` + sessionFrom + `
		LEFT JOIN users u ON u.id = s.user_id
		LEFT JOIN stores st ON st.id = s.store_id
		LEFT JOIN brands b ON b.id = st.brand_id
		LEFT JOIN locations l ON l.id = st.location_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY s.clock_in_time DESC, s.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ReportRow
	for rows.Next() {
		row, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func appendRange(where []string, args []any, dr domain.DateRange) ([]string, []any) {
	if dr.Start != nil {
		args = append(args, *dr.Start)
		where = append(where, fmt.Sprintf("s.clock_in_time >= $%d", len(args)))
	}
	if dr.End != nil {
		args = append(args, *dr.End)
		where = append(where, fmt.Sprintf("s.clock_in_time <= $%d", len(args)))
	}
	return where, args
}

type scanner interface {
	Scan(dest ...any) error
}

// sessionFields holds the nullable scan targets of sessionColumns.
type sessionFields struct {
	s          domain.Session
	status     string
	outTime    sql.NullTime
	outLat     sql.NullFloat64
	outLon     sql.NullFloat64
	outWithin  sql.NullBool
	duration   sql.NullInt64
	photoType  sql.NullString
	photoW     sql.NullInt64
	photoH     sql.NullInt64
	photoAdded sql.NullTime
}

func (f *sessionFields) dest() []any {
	s := &f.s
	return []any{
		&s.ID, &s.UserID, &s.StoreID, &f.status,
		&s.ClockIn.Time, &s.ClockIn.Coordinate.Latitude, &s.ClockIn.Coordinate.Longitude, &s.ClockIn.WithinGeofence,
		&f.outTime, &f.outLat, &f.outLon, &f.outWithin,
		&f.duration, &s.IsWithinGeofence, &s.CreatedAt, &s.UpdatedAt,
		&f.photoType, &f.photoW, &f.photoH, &f.photoAdded,
	}
}

func (f *sessionFields) session() *domain.Session {
	s := f.s
	s.Status = domain.Status(f.status)
	if f.outTime.Valid {
		s.ClockOut = &domain.ClockOut{
			Time:           f.outTime.Time,
			WithinGeofence: f.outWithin.Bool,
		}
		s.ClockOut.Coordinate.Latitude = f.outLat.Float64
		s.ClockOut.Coordinate.Longitude = f.outLon.Float64
	}
	if f.duration.Valid {
		d := int(f.duration.Int64)
		s.DurationMinutes = &d
	}
	if f.photoType.Valid {
		s.ClockIn.Photo = &photodomain.Photo{
			SessionID:   s.ID,
			ContentType: f.photoType.String,
			Width:       int(f.photoW.Int64),
			Height:      int(f.photoH.Int64),
			CreatedAt:   f.photoAdded.Time,
		}
	}
	return &s
}

func scanSession(row scanner) (*domain.Session, error) {
	var f sessionFields
	if err := row.Scan(f.dest()...); err != nil {
		return nil, err
	}
	return f.session(), nil
}

func scanReportRow(row scanner) (*domain.ReportRow, error) {
	var (
		f                          sessionFields
		userID, first, last, email sql.NullString
		storeID                    sql.NullString
		lat, lon, radius           sql.NullFloat64
		storeActive                sql.NullBool
		brandID, brandName         sql.NullString
		brandDesc, brandLogo       sql.NullString
		locID, locName, addr, city sql.NullString
		state, country, postal     sql.NullString
	)
	dest := append(f.dest(),
		&userID, &first, &last, &email,
		&storeID, &lat, &lon, &radius, &storeActive,
		&brandID, &brandName, &brandDesc, &brandLogo, &locID, &locName, &addr, &city, &state, &country, &postal)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	out := &domain.ReportRow{Session: f.session()}
	if userID.Valid {
		out.User = &userdomain.User{ID: userID.String, FirstName: first.String, LastName: last.String, Email: email.String}
	}
	if storeID.Valid {
		out.Store = &storedomain.Store{
			ID:             storeID.String,
			BrandID:        brandID.String,
			LocationID:     locID.String,
			GeofenceRadius: radius.Float64,
			IsActive:       storeActive.Bool,
		}
		out.Store.Coordinate.Latitude = lat.Float64
		out.Store.Coordinate.Longitude = lon.Float64
	}
	if brandID.Valid {
		out.Brand = &storedomain.Brand{ID: brandID.String, Name: brandName.String, Description: brandDesc.String, Logo: brandLogo.String}
	}
	if locID.Valid {
		out.Location = &storedomain.Location{
			ID: locID.String, Name: locName.String, Address: addr.String,
			City: city.String, State: state.String, Country: country.String, PostalCode: postal.String,
		}
	}
	return out, nil
}
