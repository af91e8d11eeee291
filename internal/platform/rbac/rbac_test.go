package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	roledomain "attendance-tracker/backend/internal/role/domain"
	"attendance-tracker/backend/internal/server/middleware"
	userdomain "attendance-tracker/backend/internal/user/domain"
)

// mockResolver implements AccountResolver for tests.
type mockResolver struct {
	accounts map[string]*userdomain.Account
	err      error
	calls    int
}

func (m *mockResolver) Resolve(ctx context.Context, userID string) (*userdomain.Account, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, userdomain.ErrUserNotFound
	}
	return a, nil
}

func newResolver() *mockResolver {
	admin := &roledomain.Role{ID: "r-admin", Name: roledomain.RoleAdmin, Permissions: roledomain.AdminPermissions()}
	staff := &roledomain.Role{ID: "r-staff", Name: roledomain.RoleStaff, Permissions: roledomain.StaffPermissions()}
	return &mockResolver{accounts: map[string]*userdomain.Account{
		"admin-1": {User: &userdomain.User{ID: "admin-1", IsActive: true}, Role: admin},
		"staff-1": {User: &userdomain.User{ID: "staff-1", IsActive: true}, Role: staff},
		"gone-1":  {User: &userdomain.User{ID: "gone-1", IsActive: false}, Role: staff},
	}}
}

func ctxFor(userID string) context.Context {
	return middleware.WithIdentity(context.Background(), userID, "", "jti")
}

func TestRequirePermission(t *testing.T) {
	testCases := []struct {
		name     string
		ctx      context.Context
		resource roledomain.Resource
		action   roledomain.Action
		want     error
	}{
		{"admin reads reports", ctxFor("admin-1"), roledomain.ResourceReports, roledomain.ActionRead, nil},
		{"admin updates stores", ctxFor("admin-1"), roledomain.ResourceStores, roledomain.ActionUpdate, nil},
		{"staff reads stores", ctxFor("staff-1"), roledomain.ResourceStores, roledomain.ActionRead, nil},
		{"staff cannot read reports", ctxFor("staff-1"), roledomain.ResourceReports, roledomain.ActionRead, ErrForbidden},
		{"staff cannot create users", ctxFor("staff-1"), roledomain.ResourceUsers, roledomain.ActionCreate, ErrForbidden},
		{"no identity", context.Background(), roledomain.ResourceStores, roledomain.ActionRead, ErrUnauthenticated},
		{"unknown user", ctxFor("ghost"), roledomain.ResourceStores, roledomain.ActionRead, ErrUnauthenticated},
		{"inactive user", ctxFor("gone-1"), roledomain.ResourceStores, roledomain.ActionRead, ErrUnauthenticated},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := RequirePermission(tc.ctx, newResolver(), tc.resource, tc.action)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if tc.want == nil && a == nil {
				t.Error("account should be returned on success")
			}
		})
	}
}

func TestRequirePermission_ResolverError(t *testing.T) {
	boom := errors.New("db down")
	_, err := RequirePermission(ctxFor("admin-1"), &mockResolver{err: boom}, roledomain.ResourceStores, roledomain.ActionRead)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestRequire_HTTP(t *testing.T) {
	testCases := []struct {
		name   string
		userID string
		err    error
		want   int
	}{
		{"allowed", "admin-1", nil, http.StatusNoContent},
		{"forbidden", "staff-1", nil, http.StatusForbidden},
		{"unknown", "ghost", nil, http.StatusUnauthorized},
		{"resolver failure", "admin-1", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := newResolver()
			res.err = tc.err
			var got *userdomain.Account
			h := Require(res, roledomain.ResourceReports, roledomain.ActionRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = AccountFrom(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/attendance/report", nil)
			req = req.WithContext(ctxFor(tc.userID))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusNoContent && (got == nil || got.User.ID != tc.userID) {
				t.Errorf("account in context = %+v", got)
			}
		})
	}
}

func TestLoadAccount_ResolvesOnce(t *testing.T) {
	res := newResolver()
	h := LoadAccount(res)(Require(res, roledomain.ResourceStores, roledomain.ActionRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctxFor("staff-1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if res.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", res.calls)
	}
}
