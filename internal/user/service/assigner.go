package service

import (
	"context"
	"fmt"

	roledomain "attendance-tracker/backend/internal/role/domain"
	userrepo "attendance-tracker/backend/internal/user/repository"
)

// RoleReader resolves roles by id or name.
type RoleReader interface {
	GetByID(ctx context.Context, id string) (*roledomain.Role, error)
	GetByName(ctx context.Context, name string) (*roledomain.Role, error)
}

// ActiveStoreLister lists the ids of active stores.
type ActiveStoreLister interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

// AdminStoreAssigner keeps Admin users assigned to every active store. It is invoked
// explicitly after user creation, role change and store creation.
type AdminStoreAssigner struct {
	users  userrepo.Repository
	roles  RoleReader
	stores ActiveStoreLister
}

// NewAdminStoreAssigner returns an assigner over the given repositories.
func NewAdminStoreAssigner(users userrepo.Repository, roles RoleReader, stores ActiveStoreLister) *AdminStoreAssigner {
	return &AdminStoreAssigner{users: users, roles: roles, stores: stores}
}

// AssignAllActiveStores replaces the store list of an Admin user with every active store.
// Returns false when roleID is not the Admin role and nothing was changed.
func (a *AdminStoreAssigner) AssignAllActiveStores(ctx context.Context, userID, roleID string) (bool, error) {
	role, err := a.roles.GetByID(ctx, roleID)
	if err != nil {
		return false, err
	}
	if !role.IsAdmin() {
		return false, nil
	}
	ids, err := a.stores.ListActiveIDs(ctx)
	if err != nil {
		return false, err
	}
	if err := a.users.SetStores(ctx, userID, ids); err != nil {
		return false, fmt.Errorf("set stores for admin %s: %w", userID, err)
	}
	return true, nil
}

// AssignAdminsToStore adds storeID to every active Admin user.
func (a *AdminStoreAssigner) AssignAdminsToStore(ctx context.Context, storeID string) error {
	admin, err := a.roles.GetByName(ctx, roledomain.RoleAdmin)
	if err != nil {
		return err
	}
	if admin == nil {
		return nil
	}
	ids, err := a.users.ListIDsByRole(ctx, admin.ID)
	if err != nil {
		return err
	}
	for _, uid := range ids {
		if err := a.users.AddStore(ctx, uid, storeID); err != nil {
			return fmt.Errorf("assign store %s to admin %s: %w", storeID, uid, err)
		}
	}
	return nil
}
