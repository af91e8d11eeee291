// Package service implements the attendance session state machine: clock-in, clock-out,
// current status and history.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"attendance-tracker/backend/internal/attendance/domain"
	attendancerepo "attendance-tracker/backend/internal/attendance/repository"
	"attendance-tracker/backend/internal/geo"
	photodomain "attendance-tracker/backend/internal/photo/domain"
	"attendance-tracker/backend/internal/policy/engine"
	storedomain "attendance-tracker/backend/internal/store/domain"
	"attendance-tracker/backend/internal/telemetry"
	userdomain "attendance-tracker/backend/internal/user/domain"
)

const instrumentationName = "attendance-tracker/attendance"

// eventSource is the Source of every event emitted by this service.
const eventSource = "attendance-service"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UserDirectory resolves a user with its role. Returns userdomain.ErrUserNotFound for unknown ids.
type UserDirectory interface {
	Resolve(ctx context.Context, userID string) (*userdomain.Account, error)
}

// StoreDirectory looks up stores. GetByID returns nil, nil when the store does not exist.
type StoreDirectory interface {
	GetByID(ctx context.Context, id string) (*storedomain.Store, error)
}

// PhotoPreparer validates and normalizes an uploaded clock-in photo.
type PhotoPreparer interface {
	Prepare(u *photodomain.Upload) (*photodomain.Photo, error)
}

// ClockInInput is a clock-in request. Photo is optional.
type ClockInInput struct {
	UserID     string
	StoreID    string
	Coordinate geo.Coordinate
	Photo      *photodomain.Upload
}

// ClockOutInput is a clock-out request.
type ClockOutInput struct {
	UserID     string
	Coordinate geo.Coordinate
}

// Deps are the optional collaborators of the service. Zero values fall back to
// the OPA default policy, the global OTel providers and no event emission.
type Deps struct {
	Policy  engine.Evaluator
	Emitter telemetry.EventEmitter
	Tracer  trace.Tracer
	Meter   metric.Meter
	Clock   Clock
}

// Service runs the attendance state machine.
type Service struct {
	repo    attendancerepo.Repository
	users   UserDirectory
	stores  StoreDirectory
	photos  PhotoPreparer
	policy  engine.Evaluator
	emitter telemetry.EventEmitter
	tracer  trace.Tracer
	clock   Clock

	clockIns  metric.Int64Counter
	clockOuts metric.Int64Counter
	durations metric.Int64Histogram
}

// NewService returns an attendance service. photos may be nil, in which case uploads are rejected.
func NewService(repo attendancerepo.Repository, users UserDirectory, stores StoreDirectory, photos PhotoPreparer, deps Deps) (*Service, error) {
	s := &Service{
		repo:    repo,
		users:   users,
		stores:  stores,
		photos:  photos,
		policy:  deps.Policy,
		emitter: deps.Emitter,
		tracer:  deps.Tracer,
		clock:   deps.Clock,
	}
	if s.policy == nil {
		s.policy = engine.NewOPAEvaluator(nil)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(instrumentationName)
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	var err error
	if s.clockIns, err = meter.Int64Counter("attendance.clock_in.total",
		metric.WithDescription("Successful clock-ins")); err != nil {
		return nil, fmt.Errorf("attendance: clock_in counter: %w", err)
	}
	if s.clockOuts, err = meter.Int64Counter("attendance.clock_out.total",
		metric.WithDescription("Successful clock-outs")); err != nil {
		return nil, fmt.Errorf("attendance: clock_out counter: %w", err)
	}
	if s.durations, err = meter.Int64Histogram("attendance.session.duration_minutes",
		metric.WithDescription("Duration of completed sessions"), metric.WithUnit("min")); err != nil {
		return nil, fmt.Errorf("attendance: duration histogram: %w", err)
	}
	return s, nil
}

// ClockIn opens a session for the user at the store.
func (s *Service) ClockIn(ctx context.Context, in ClockInInput) (sess *domain.Session, err error) {
	ctx, span := s.tracer.Start(ctx, "attendance.ClockIn", trace.WithAttributes(
		attribute.String("user_id", in.UserID), attribute.String("store_id", in.StoreID)))
	defer func() { endSpan(span, err) }()

	if in.UserID == "" || in.StoreID == "" {
		return nil, fmt.Errorf("%w: user and store are required", domain.ErrInvalidInput)
	}
	if err := in.Coordinate.Validate(); err != nil {
		return nil, err
	}

	active, err := s.repo.GetActiveByUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load active session for user %s: %w", in.UserID, err)
	}
	if active != nil {
		return nil, domain.ErrActiveSessionExists
	}

	store, err := s.stores.GetByID(ctx, in.StoreID)
	if err != nil {
		return nil, fmt.Errorf("load store %s: %w", in.StoreID, err)
	}
	if store == nil {
		return nil, domain.ErrStoreNotFound
	}

	account, err := s.users.Resolve(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligible(ctx, account, store); err != nil {
		return nil, err
	}

	var photo *photodomain.Photo
	if in.Photo != nil {
		if s.photos == nil {
			return nil, photodomain.ErrUnsupportedType
		}
		if photo, err = s.photos.Prepare(in.Photo); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	within := store.Contains(in.Coordinate)
	sess = &domain.Session{
		ID:      uuid.New().String(),
		UserID:  in.UserID,
		StoreID: store.ID,
		Status:  domain.StatusActive,
		ClockIn: domain.ClockIn{
			Time:           now,
			Coordinate:     in.Coordinate,
			WithinGeofence: within,
			Photo:          photo,
		},
		IsWithinGeofence: within,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if photo != nil {
		photo.SessionID = sess.ID
		photo.CreatedAt = now
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrActiveSessionExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create session for user %s store %s: %w", in.UserID, in.StoreID, err)
	}

	geofence := metric.WithAttributes(attribute.Bool("within_geofence", within))
	s.clockIns.Add(ctx, 1, geofence)
	s.emit(telemetry.EventClockIn, sess, map[string]any{
		"latitude":       in.Coordinate.Latitude,
		"longitude":      in.Coordinate.Longitude,
		"withinGeofence": within,
		"hasPhoto":       photo != nil,
	})
	return sess, nil
}

// checkEligible asks the clock-in policy whether the account may work at store.
func (s *Service) checkEligible(ctx context.Context, account *userdomain.Account, store *storedomain.Store) error {
	in := engine.ClockInInput{
		UserID:      account.User.ID,
		StoreIDs:    account.User.StoreIDs,
		StoreID:     store.ID,
		StoreActive: store.IsActive,
	}
	if account.Role != nil {
		in.Role = account.Role.Name
	}
	decision, err := s.policy.EvaluateClockIn(ctx, in)
	if err != nil {
		return fmt.Errorf("evaluate clock-in policy for user %s store %s: %w", account.User.ID, store.ID, err)
	}
	if decision.Allow {
		return nil
	}
	if decision.Reason == engine.ReasonStoreInactive {
		return domain.ErrStoreInactive
	}
	return domain.ErrStoreNotAssigned
}

// ClockOut completes the user's active session.
func (s *Service) ClockOut(ctx context.Context, in ClockOutInput) (sess *domain.Session, err error) {
	ctx, span := s.tracer.Start(ctx, "attendance.ClockOut", trace.WithAttributes(attribute.String("user_id", in.UserID)))
	defer func() { endSpan(span, err) }()

	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrInvalidInput)
	}
	if err := in.Coordinate.Validate(); err != nil {
		return nil, err
	}

	sess, err = s.repo.GetActiveByUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load active session for user %s: %w", in.UserID, err)
	}
	if sess == nil {
		return nil, domain.ErrNoActiveSession
	}
	span.SetAttributes(attribute.String("store_id", sess.StoreID))

	store, err := s.stores.GetByID(ctx, sess.StoreID)
	if err != nil {
		return nil, fmt.Errorf("load store %s: %w", sess.StoreID, err)
	}
	if store == nil {
		return nil, domain.ErrStoreNotFound
	}

	within := store.Contains(in.Coordinate)
	if err := sess.Complete(s.clock.Now(), in.Coordinate, within); err != nil {
		return nil, err
	}
	if err := s.repo.Complete(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			return nil, err
		}
		return nil, fmt.Errorf("complete session %s for user %s: %w", sess.ID, in.UserID, err)
	}

	s.clockOuts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("within_geofence", within)))
	s.durations.Record(ctx, int64(*sess.DurationMinutes))
	s.emit(telemetry.EventClockOut, sess, map[string]any{
		"latitude":        in.Coordinate.Latitude,
		"longitude":       in.Coordinate.Longitude,
		"withinGeofence":  within,
		"durationMinutes": *sess.DurationMinutes,
	})
	return sess, nil
}

// Status returns whether the user is clocked in. An active session carries a live,
// unpersisted DurationMinutes; otherwise Last is the most recent session, if any.
func (s *Service) Status(ctx context.Context, userID string) (view *domain.StatusView, err error) {
	ctx, span := s.tracer.Start(ctx, "attendance.Status", trace.WithAttributes(attribute.String("user_id", userID)))
	defer func() { endSpan(span, err) }()

	active, err := s.repo.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load active session for user %s: %w", userID, err)
	}
	if active != nil {
		d := domain.ElapsedMinutes(active.ClockIn.Time, s.clock.Now())
		active.DurationMinutes = &d
		return &domain.StatusView{IsClockedIn: true, Active: active}, nil
	}
	last, err := s.repo.GetLatestByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load latest session for user %s: %w", userID, err)
	}
	return &domain.StatusView{Last: last}, nil
}

// History returns the user's sessions within r, clock-in time descending.
func (s *Service) History(ctx context.Context, userID string, r domain.DateRange) (out []*domain.Session, err error) {
	ctx, span := s.tracer.Start(ctx, "attendance.History", trace.WithAttributes(attribute.String("user_id", userID)))
	defer func() { endSpan(span, err) }()

	if err := r.Validate(); err != nil {
		return nil, err
	}
	out, err = s.repo.ListByUser(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("list sessions for user %s: %w", userID, err)
	}
	span.SetAttributes(attribute.Int("sessions", len(out)))
	return out, nil
}

func (s *Service) emit(eventType string, sess *domain.Session, meta map[string]any) {
	if s.emitter == nil {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		log.Printf("attendance: marshal %s event metadata for %s: %v", eventType, sess.ID, err)
	}
	telemetry.EmitAsync(s.emitter, &telemetry.Event{
		UserID:    sess.UserID,
		StoreID:   sess.StoreID,
		SessionID: sess.ID,
		EventType: eventType,
		Source:    eventSource,
		Metadata:  raw,
		CreatedAt: sess.UpdatedAt,
	})
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
