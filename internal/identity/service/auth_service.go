package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"attendance-tracker/backend/internal/audit"
	identitydomain "attendance-tracker/backend/internal/identity/domain"
	roledomain "attendance-tracker/backend/internal/role/domain"
	"attendance-tracker/backend/internal/security"
	userdomain "attendance-tracker/backend/internal/user/domain"
)

// Sentinel errors for auth service; handler maps them to HTTP status codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
)

// AuthResult holds the outcome of Login.
type AuthResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *userdomain.User
	Role        *roledomain.Role
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	SetLastLogin(ctx context.Context, userID string, at *time.Time) error
}

// RoleRepo is the minimal role repository needed by the auth service.
type RoleRepo interface {
	GetByID(ctx context.Context, id string) (*roledomain.Role, error)
}

// IdentityRepo is the minimal identity repository needed by the auth service.
type IdentityRepo interface {
	GetByUserID(ctx context.Context, userID string) (*identitydomain.Identity, error)
	Upsert(ctx context.Context, i *identitydomain.Identity) error
}

// AuthService implements PIN login and logout.
type AuthService struct {
	userRepo     UserRepo
	roleRepo     RoleRepo
	identityRepo IdentityRepo
	hasher       *security.Hasher
	tokens       *security.TokenProvider
	audit        audit.AuditLogger
	now          func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies. auditLogger may be nil.
func NewAuthService(
	userRepo UserRepo,
	roleRepo RoleRepo,
	identityRepo IdentityRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditLogger audit.AuditLogger,
) *AuthService {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &AuthService{
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		identityRepo: identityRepo,
		hasher:       hasher,
		tokens:       tokens,
		audit:        auditLogger,
		now:          time.Now,
	}
}

// ValidatePIN reports identitydomain.ErrInvalidPIN for anything but 4 digits.
func (s *AuthService) ValidatePIN(pin string) error {
	return identitydomain.ValidatePIN(pin)
}

// SetPIN hashes and stores the user's PIN.
func (s *AuthService) SetPIN(ctx context.Context, userID, pin string) error {
	if err := identitydomain.ValidatePIN(pin); err != nil {
		return err
	}
	hash, err := s.hasher.Hash([]byte(pin))
	if err != nil {
		return err
	}
	now := s.now().UTC()
	return s.identityRepo.Upsert(ctx, &identitydomain.Identity{
		ID:        uuid.New().String(),
		UserID:    userID,
		PINHash:   hash,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Login authenticates with email and PIN and returns an access token.
// Unknown emails, wrong PINs and malformed PINs all return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, pin string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || identitydomain.ValidatePIN(pin) != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.CompareDummy([]byte(pin))
		s.audit.LogEvent(ctx, "", "login_failure", "auth", "", "")
		return nil, ErrInvalidCredentials
	}
	ident, err := s.identityRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.PINHash == "" {
		s.hasher.CompareDummy([]byte(pin))
		s.audit.LogEvent(ctx, user.ID, "login_failure", "auth", user.ID, "")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ident.PINHash, []byte(pin)); err != nil {
		if !errors.Is(err, security.ErrMismatch) {
			return nil, err
		}
		s.audit.LogEvent(ctx, user.ID, "login_failure", "auth", user.ID, "")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	role, err := s.roleRepo.GetByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}
	roleName := ""
	if role != nil {
		roleName = role.Name
	}
	issued, err := s.tokens.IssueAccess(user.ID, roleName)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.userRepo.SetLastLogin(ctx, user.ID, &now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	s.audit.LogEvent(ctx, user.ID, "login", "auth", user.ID, "")
	return &AuthResult{
		AccessToken: issued.Token,
		ExpiresAt:   issued.ExpiresAt,
		User:        user,
		Role:        role,
	}, nil
}

// Logout clears the user's last login time. Access tokens are stateless and expire on their own.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if err := s.userRepo.SetLastLogin(ctx, userID, nil); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, userID, "logout", "auth", userID, "")
	return nil
}
