package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	identitydomain "attendance-tracker/backend/internal/identity/domain"
	"attendance-tracker/backend/internal/platform/httpx"
	"attendance-tracker/backend/internal/server/middleware"
	"attendance-tracker/backend/internal/user/domain"
	"attendance-tracker/backend/internal/user/service"
)

// UserManager creates users and changes their roles.
type UserManager interface {
	Create(ctx context.Context, actorID string, in service.CreateInput) (*domain.User, error)
	ChangeRole(ctx context.Context, actorID, userID, roleID string) (*domain.User, error)
}

// Handler serves /api/users.
type Handler struct {
	users UserManager
}

// NewHandler returns the user HTTP handler.
func NewHandler(users UserManager) *Handler {
	return &Handler{users: users}
}

type createUserRequest struct {
	FirstName string   `json:"firstName" validate:"required,max=100"`
	LastName  string   `json:"lastName" validate:"required,max=100"`
	Email     string   `json:"email" validate:"required,email"`
	RoleID    string   `json:"roleId" validate:"required,uuid"`
	StoreIDs  []string `json:"storeIds" validate:"dive,uuid"`
	PIN       string   `json:"pin" validate:"required,len=4,numeric"`
}

type changeRoleRequest struct {
	RoleID string `json:"roleId" validate:"required,uuid"`
}

type userJSON struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	RoleID      string     `json:"roleId"`
	StoreIDs    []string   `json:"storeIds"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toJSON(u *domain.User) userJSON {
	ids := u.StoreIDs
	if ids == nil {
		ids = []string{}
	}
	return userJSON{
		ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
		RoleID: u.RoleID, StoreIDs: ids, IsActive: u.IsActive, LastLoginAt: u.LastLoginAt,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

// Create handles POST /.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	actorID, _ := middleware.GetUserID(r.Context())
	u, err := h.users.Create(r.Context(), actorID, service.CreateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		RoleID:    req.RoleID,
		StoreIDs:  req.StoreIDs,
		PIN:       req.PIN,
	})
	if err != nil {
		h.writeError(w, r, "create user "+strings.ToLower(req.Email), err)
		return
	}
	httpx.JSON(w, http.StatusCreated, "User created successfully", toJSON(u))
}

// ChangeRole handles PATCH /{userId}/role.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	actorID, _ := middleware.GetUserID(r.Context())
	u, err := h.users.ChangeRole(r.Context(), actorID, userID, req.RoleID)
	if err != nil {
		h.writeError(w, r, "change role user "+userID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "User role updated successfully", toJSON(u))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidUser),
		errors.Is(err, domain.ErrRoleNotFound),
		errors.Is(err, domain.ErrUnknownStore),
		errors.Is(err, identitydomain.ErrInvalidPIN):
		httpx.Error(w, r, http.StatusBadRequest, strings.ReplaceAll(err.Error(), "\n", ": "))
	case errors.Is(err, domain.ErrEmailTaken):
		httpx.Error(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		httpx.Error(w, r, http.StatusNotFound, "User not found")
	default:
		httpx.Internal(w, r, op, err)
	}
}
