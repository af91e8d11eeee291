package domain

import (
	"errors"
	"fmt"
	"time"
)

// Built-in role names. Admin users are implicitly assigned to every active store.
const (
	RoleAdmin = "Admin"
	RoleStaff = "Staff"
)

// Resource is a permission category.
type Resource string

const (
	ResourceUsers     Resource = "users"
	ResourceRoles     Resource = "roles"
	ResourceBrands    Resource = "brands"
	ResourceLocations Resource = "locations"
	ResourceStores    Resource = "stores"
	ResourceReports   Resource = "reports"
)

// Resources lists every permission category in a stable order.
var Resources = []Resource{
	ResourceUsers,
	ResourceRoles,
	ResourceBrands,
	ResourceLocations,
	ResourceStores,
	ResourceReports,
}

// Action is an operation on a Resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var ErrUnknownResource = errors.New("role: unknown permission resource")

// ParseResource returns the Resource named s.
func ParseResource(s string) (Resource, error) {
	for _, r := range Resources {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
}

// Grant is the set of actions allowed on one resource.
type Grant struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// Allows reports whether the grant includes action.
func (g Grant) Allows(a Action) bool {
	switch a {
	case ActionCreate:
		return g.Create
	case ActionRead:
		return g.Read
	case ActionUpdate:
		return g.Update
	case ActionDelete:
		return g.Delete
	}
	return false
}

// FullGrant allows every action.
var FullGrant = Grant{Create: true, Read: true, Update: true, Delete: true}

// Permissions maps resources to grants. Missing resources grant nothing.
type Permissions map[Resource]Grant

// Can reports whether the permissions allow action on resource.
func (p Permissions) Can(r Resource, a Action) bool {
	if p == nil {
		return false
	}
	g, ok := p[r]
	return ok && g.Allows(a)
}

// Role is a named permission set.
type Role struct {
	ID          string
	Name        string
	Permissions Permissions
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAdmin reports whether the role is the built-in Admin role.
func (r *Role) IsAdmin() bool {
	return r != nil && r.Name == RoleAdmin
}

// Validate returns an error describing the first validation failure.
func (r *Role) Validate() error {
	if r.Name == "" {
		return errors.New("role: name is required")
	}
	for res := range r.Permissions {
		if _, err := ParseResource(string(res)); err != nil {
			return err
		}
	}
	return nil
}

// AdminPermissions grants every action on every resource.
func AdminPermissions() Permissions {
	p := make(Permissions, len(Resources))
	for _, r := range Resources {
		p[r] = FullGrant
	}
	return p
}

// StaffPermissions grants read access to stores, brands and locations only.
func StaffPermissions() Permissions {
	return Permissions{
		ResourceBrands:    {Read: true},
		ResourceLocations: {Read: true},
		ResourceStores:    {Read: true},
	}
}
