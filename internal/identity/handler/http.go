package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	identitydomain "attendance-tracker/backend/internal/identity/domain"
	"attendance-tracker/backend/internal/identity/service"
	"attendance-tracker/backend/internal/platform/httpx"
	"attendance-tracker/backend/internal/server/middleware"
)

// Authenticator logs users in and out.
type Authenticator interface {
	Login(ctx context.Context, email, pin string) (*service.AuthResult, error)
	Logout(ctx context.Context, userID string) error
}

// CookieOptions controls the access_token cookie set at login.
type CookieOptions struct {
	Enabled bool
	Secure  bool
	MaxAge  time.Duration
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	auth    Authenticator
	cookies CookieOptions
}

// NewAuthHandler returns the login/logout handler.
func NewAuthHandler(auth Authenticator, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
	PIN   string `json:"pin" validate:"required,len=4,numeric"`
}

type loginUser struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	StoreIDs  []string `json:"storeIds"`
}

type loginTokens struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type loginResponse struct {
	User   loginUser   `json:"user"`
	Tokens loginTokens `json:"tokens"`
}

// Login handles POST /login with email and a 4-digit PIN.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, identitydomain.ErrInvalidPIN):
			httpx.Error(w, r, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, service.ErrUserInactive):
			httpx.Error(w, r, http.StatusForbidden, "User account is inactive")
		default:
			httpx.Internal(w, r, "login", err)
		}
		return
	}

	if h.cookies.Enabled {
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.AccessTokenCookie,
			Value:    res.AccessToken,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(h.cookies.MaxAge / time.Second),
		})
	}
	out := loginResponse{Tokens: loginTokens{AccessToken: res.AccessToken, ExpiresAt: res.ExpiresAt}}
	if u := res.User; u != nil {
		out.User = loginUser{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, StoreIDs: u.StoreIDs}
	}
	if res.Role != nil {
		out.User.Role = res.Role.Name
	}
	if out.User.StoreIDs == nil {
		out.User.StoreIDs = []string{}
	}
	httpx.JSON(w, http.StatusOK, "Login successful", out)
}

// Logout handles POST /logout and clears the access_token cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err := h.auth.Logout(r.Context(), userID); err != nil {
		httpx.Internal(w, r, "logout user "+userID, err)
		return
	}
	if h.cookies.Enabled {
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.AccessTokenCookie,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
	httpx.JSON(w, http.StatusOK, "Logged out successfully", nil)
}
