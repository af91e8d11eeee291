// Package rbac resolves the caller's account and enforces role permissions.
package rbac

import (
	"context"
	"errors"
	"net/http"

	"attendance-tracker/backend/internal/platform/httpx"
	roledomain "attendance-tracker/backend/internal/role/domain"
	"attendance-tracker/backend/internal/server/middleware"
	userdomain "attendance-tracker/backend/internal/user/domain"
)

var (
	// ErrUnauthenticated means no user id in context, or the user no longer exists or is inactive.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the caller's role lacks the permission.
	ErrForbidden = errors.New("insufficient permissions")
)

// AccountResolver returns a user with its role. Returns userdomain.ErrUserNotFound for unknown ids.
type AccountResolver interface {
	Resolve(ctx context.Context, userID string) (*userdomain.Account, error)
}

type accountKey struct{}

// WithAccount returns a context carrying the resolved account.
func WithAccount(ctx context.Context, a *userdomain.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, a)
}

// AccountFrom returns the account stored by LoadAccount, or nil.
func AccountFrom(ctx context.Context) *userdomain.Account {
	a, _ := ctx.Value(accountKey{}).(*userdomain.Account)
	return a
}

// ResolveCaller returns the active account for the user id in ctx.
func ResolveCaller(ctx context.Context, resolver AccountResolver) (*userdomain.Account, error) {
	if a := AccountFrom(ctx); a != nil {
		return a, nil
	}
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	a, err := resolver.Resolve(ctx, userID)
	if errors.Is(err, userdomain.ErrUserNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if a.User == nil || !a.User.IsActive {
		return nil, ErrUnauthenticated
	}
	return a, nil
}

// RequirePermission ensures the caller is an active user whose role allows action on resource.
// Returns the caller's account on success, ErrUnauthenticated or ErrForbidden on denial.
func RequirePermission(ctx context.Context, resolver AccountResolver, resource roledomain.Resource, action roledomain.Action) (*userdomain.Account, error) {
	a, err := ResolveCaller(ctx, resolver)
	if err != nil {
		return nil, err
	}
	if !a.Can(resource, action) {
		return nil, ErrForbidden
	}
	return a, nil
}

// LoadAccount resolves the authenticated caller once per request and stores it in the context.
// Unknown or inactive users get 401.
func LoadAccount(resolver AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := ResolveCaller(r.Context(), resolver)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), a)))
		})
	}
}

// Require is the HTTP form of RequirePermission.
func Require(resolver AccountResolver, resource roledomain.Resource, action roledomain.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := RequirePermission(r.Context(), resolver, resource, action)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), a)))
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		httpx.Error(w, r, http.StatusUnauthorized, "User not found or inactive")
	case errors.Is(err, ErrForbidden):
		httpx.Error(w, r, http.StatusForbidden, "Insufficient permissions")
	default:
		httpx.Internal(w, r, "resolve caller", err)
	}
}
