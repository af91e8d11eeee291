// Package service implements user creation, role changes and account resolution.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"attendance-tracker/backend/internal/audit"
	"attendance-tracker/backend/internal/user/domain"
	userrepo "attendance-tracker/backend/internal/user/repository"
)

// CredentialSetter stores a user's login PIN.
type CredentialSetter interface {
	ValidatePIN(pin string) error
	SetPIN(ctx context.Context, userID, pin string) error
}

// CreateInput is the payload for creating a user.
type CreateInput struct {
	FirstName string
	LastName  string
	Email     string
	RoleID    string
	StoreIDs  []string
	PIN       string
}

// Service manages users.
type Service struct {
	users    userrepo.Repository
	roles    RoleReader
	creds    CredentialSetter
	assigner *AdminStoreAssigner
	audit    audit.AuditLogger
	now      func() time.Time
}

// NewService returns a user service. auditLogger may be nil.
func NewService(users userrepo.Repository, roles RoleReader, creds CredentialSetter, assigner *AdminStoreAssigner, auditLogger audit.AuditLogger) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Service{users: users, roles: roles, creds: creds, assigner: assigner, audit: auditLogger, now: time.Now}
}

// Resolve returns the user and its role, or domain.ErrUserNotFound.
func (s *Service) Resolve(ctx context.Context, userID string) (*domain.Account, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	role, err := s.roles.GetByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}
	return &domain.Account{User: u, Role: role}, nil
}

// Create validates and persists a user with its PIN. Admin users are assigned every active store.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*domain.User, error) {
	now := s.now().UTC()
	u := &domain.User{
		ID:        uuid.New().String(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		RoleID:    in.RoleID,
		StoreIDs:  dedupe(in.StoreIDs),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.creds.ValidatePIN(in.PIN); err != nil {
		return nil, err
	}
	role, err := s.roles.GetByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrRoleNotFound
	}
	existing, err := s.users.GetByEmail(ctx, u.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.creds.SetPIN(ctx, u.ID, in.PIN); err != nil {
		return nil, s.rollbackCreate(ctx, u.ID, fmt.Errorf("set pin for user %s: %w", u.ID, err))
	}
	if s.assigner != nil {
		if _, err := s.assigner.AssignAllActiveStores(ctx, u.ID, u.RoleID); err != nil {
			return nil, s.rollbackCreate(ctx, u.ID, err)
		}
	}
	s.audit.LogEvent(ctx, actorID, "create", "user", u.ID, "")
	return s.reload(ctx, u)
}

// ChangeRole moves a user to roleID, assigning every active store when the new role is Admin.
func (s *Service) ChangeRole(ctx context.Context, actorID, userID, roleID string) (*domain.User, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrRoleNotFound
	}
	if err := s.users.UpdateRole(ctx, userID, roleID, s.now().UTC()); err != nil {
		return nil, err
	}
	if s.assigner != nil {
		if _, err := s.assigner.AssignAllActiveStores(ctx, userID, roleID); err != nil {
			return nil, err
		}
	}
	meta, err := json.Marshal(map[string]string{"roleId": roleID})
	if err != nil {
		log.Printf("user: marshal audit metadata for %s: %v", userID, err)
	}
	s.audit.LogEvent(ctx, actorID, "role_changed", "user", userID, string(meta))
	return s.reload(ctx, &domain.User{ID: userID})
}

// rollbackCreate removes a user whose creation failed after the row was written,
// so the email stays free for a retry. It returns cause.
func (s *Service) rollbackCreate(ctx context.Context, userID string, cause error) error {
	if err := s.users.Delete(context.WithoutCancel(ctx), userID); err != nil {
		log.Printf("user: rollback create %s: %v", userID, err)
	}
	return cause
}

func (s *Service) reload(ctx context.Context, u *domain.User) (*domain.User, error) {
	got, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, domain.ErrUserNotFound
	}
	return got, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
