package domain

import (
	"errors"
	"testing"
)

func TestPermissions_Can(t *testing.T) {
	staff := StaffPermissions()
	admin := AdminPermissions()

	testCases := []struct {
		name  string
		perms Permissions
		res   Resource
		act   Action
		want  bool
	}{
		{"admin reports read", admin, ResourceReports, ActionRead, true},
		{"admin users delete", admin, ResourceUsers, ActionDelete, true},
		{"staff stores read", staff, ResourceStores, ActionRead, true},
		{"staff stores update", staff, ResourceStores, ActionUpdate, false},
		{"staff reports read", staff, ResourceReports, ActionRead, false},
		{"staff users create", staff, ResourceUsers, ActionCreate, false},
		{"nil permissions", nil, ResourceStores, ActionRead, false},
		{"unknown action", admin, ResourceStores, Action("approve"), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.perms.Can(tc.res, tc.act); got != tc.want {
				t.Errorf("Can(%s, %s) = %v, want %v", tc.res, tc.act, got, tc.want)
			}
		})
	}
}

func TestAdminPermissions_CoversEveryResource(t *testing.T) {
	p := AdminPermissions()
	for _, r := range Resources {
		for _, a := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
			if !p.Can(r, a) {
				t.Errorf("admin cannot %s %s", a, r)
			}
		}
	}
}

func TestParseResource(t *testing.T) {
	r, err := ParseResource("stores")
	if err != nil || r != ResourceStores {
		t.Fatalf("ParseResource(stores) = %q, %v", r, err)
	}
	if _, err := ParseResource("widgets"); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("ParseResource(widgets) err = %v, want ErrUnknownResource", err)
	}
}

func TestRole_Validate(t *testing.T) {
	if err := (&Role{}).Validate(); err == nil {
		t.Error("empty name should fail validation")
	}
	bad := &Role{Name: "x", Permissions: Permissions{"widgets": FullGrant}}
	if err := bad.Validate(); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("Validate err = %v, want ErrUnknownResource", err)
	}
	ok := &Role{Name: RoleStaff, Permissions: StaffPermissions()}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRole_IsAdmin(t *testing.T) {
	var nilRole *Role
	if nilRole.IsAdmin() {
		t.Error("nil role should not be admin")
	}
	if !(&Role{Name: RoleAdmin}).IsAdmin() {
		t.Error("Admin role should be admin")
	}
	if (&Role{Name: RoleStaff}).IsAdmin() {
		t.Error("Staff role should not be admin")
	}
}
