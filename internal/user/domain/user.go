package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	roledomain "attendance-tracker/backend/internal/role/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrRoleNotFound = errors.New("role not found")
	ErrInvalidUser  = errors.New("invalid user")
	ErrUnknownStore = errors.New("assigned store does not exist")
)

// User is a staff member or administrator.
type User struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	RoleID      string
	StoreIDs    []string
	IsActive    bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName returns "First Last".
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// AssignedTo reports whether storeID is in the user's store list.
func (u *User) AssignedTo(storeID string) bool {
	for _, id := range u.StoreIDs {
		if id == storeID {
			return true
		}
	}
	return false
}

// Normalize trims names and lowercases the email.
func (u *User) Normalize() {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
}

// Validate returns ErrInvalidUser wrapped with the first failure.
func (u *User) Validate() error {
	switch {
	case u.FirstName == "":
		return fmt.Errorf("%w: first name is required", ErrInvalidUser)
	case u.LastName == "":
		return fmt.Errorf("%w: last name is required", ErrInvalidUser)
	case u.RoleID == "":
		return fmt.Errorf("%w: role is required", ErrInvalidUser)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil || !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: invalid email format", ErrInvalidUser)
	}
	return nil
}

// Account is a user together with its resolved role.
type Account struct {
	User *User
	Role *roledomain.Role
}

// IsAdmin reports whether the account holds the Admin role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role.IsAdmin()
}

// Can reports whether the account's role allows action on resource.
func (a *Account) Can(r roledomain.Resource, act roledomain.Action) bool {
	return a != nil && a.Role != nil && a.Role.Permissions.Can(r, act)
}
