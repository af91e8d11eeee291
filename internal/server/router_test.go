package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	attendancedomain "attendance-tracker/backend/internal/attendance/domain"
	attendancehandler "attendance-tracker/backend/internal/attendance/handler"
	attendanceservice "attendance-tracker/backend/internal/attendance/service"
	healthhandler "attendance-tracker/backend/internal/health/handler"
	identityhandler "attendance-tracker/backend/internal/identity/handler"
	identityservice "attendance-tracker/backend/internal/identity/service"
	photodomain "attendance-tracker/backend/internal/photo/domain"
	"attendance-tracker/backend/internal/report"
	reporthandler "attendance-tracker/backend/internal/report/handler"
	roledomain "attendance-tracker/backend/internal/role/domain"
	"attendance-tracker/backend/internal/security"
	"attendance-tracker/backend/internal/server/middleware"
	storedomain "attendance-tracker/backend/internal/store/domain"
	storehandler "attendance-tracker/backend/internal/store/handler"
	storeservice "attendance-tracker/backend/internal/store/service"
	userdomain "attendance-tracker/backend/internal/user/domain"
	userhandler "attendance-tracker/backend/internal/user/handler"
	userservice "attendance-tracker/backend/internal/user/service"
)

const (
	adminID = "11111111-1111-1111-1111-111111111111"
	staffID = "22222222-2222-2222-2222-222222222222"
)

type stubAccounts struct{}

func (stubAccounts) Resolve(_ context.Context, userID string) (*userdomain.Account, error) {
	switch userID {
	case adminID:
		return &userdomain.Account{
			User: &userdomain.User{ID: adminID, IsActive: true},
			Role: &roledomain.Role{Name: roledomain.RoleAdmin, Permissions: roledomain.AdminPermissions()},
		}, nil
	case staffID:
		return &userdomain.Account{
			User: &userdomain.User{ID: staffID, IsActive: true},
			Role: &roledomain.Role{Name: roledomain.RoleStaff, Permissions: roledomain.StaffPermissions()},
		}, nil
	}
	return nil, userdomain.ErrUserNotFound
}

type stubAttendance struct{}

func (stubAttendance) ClockIn(context.Context, attendanceservice.ClockInInput) (*attendancedomain.Session, error) {
	return nil, attendancedomain.ErrStoreNotFound
}

func (stubAttendance) ClockOut(context.Context, attendanceservice.ClockOutInput) (*attendancedomain.Session, error) {
	return nil, attendancedomain.ErrNoActiveSession
}

func (stubAttendance) Status(context.Context, string) (*attendancedomain.StatusView, error) {
	return &attendancedomain.StatusView{}, nil
}

func (stubAttendance) History(context.Context, string, attendancedomain.DateRange) ([]*attendancedomain.Session, error) {
	return nil, nil
}

type stubPhotos struct{}

func (stubPhotos) Retrieve(context.Context, string) (*photodomain.Photo, error) {
	return nil, photodomain.ErrPhotoNotFound
}

func (stubPhotos) MaxBytes() int64 { return 1 << 20 }

type stubReports struct{}

func (stubReports) Generate(context.Context, report.Filter) (*report.Report, error) {
	return &report.Report{}, nil
}

type stubAuth struct{}

func (stubAuth) Login(context.Context, string, string) (*identityservice.AuthResult, error) {
	return nil, identityservice.ErrInvalidCredentials
}

func (stubAuth) Logout(context.Context, string) error { return nil }

type stubStores struct{}

func (stubStores) UpdateLocation(context.Context, string, string, storeservice.LocationUpdate) (*storedomain.Store, error) {
	return nil, storedomain.ErrStoreNotFound
}

type stubUsers struct{}

func (stubUsers) Create(context.Context, string, userservice.CreateInput) (*userdomain.User, error) {
	return nil, userdomain.ErrEmailTaken
}

func (stubUsers) ChangeRole(context.Context, string, string, string) (*userdomain.User, error) {
	return nil, userdomain.ErrUserNotFound
}

type auditCall struct {
	userID, action, resource, resourceID string
}

type recordingAudit struct {
	mu    sync.Mutex
	calls []auditCall
}

func (a *recordingAudit) LogEvent(_ context.Context, userID, action, resource, resourceID, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{userID, action, resource, resourceID})
}

func newTestRouter(t *testing.T) (http.Handler, *security.TokenProvider, *recordingAudit) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	auditLog := &recordingAudit{}
	h := NewRouter(Deps{
		Tokens:      tokens,
		Accounts:    stubAccounts{},
		AuditLogger: auditLog,
		Auth:        identityhandler.NewAuthHandler(stubAuth{}, identityhandler.CookieOptions{}),
		Attendance:  attendancehandler.NewHandler(stubAttendance{}, stubPhotos{}, func(id string) string { return "/api/attendance/image/" + id }),
		Reports:     reporthandler.NewHandler(stubReports{}),
		Stores:      storehandler.NewHandler(stubStores{}),
		Users:       userhandler.NewHandler(stubUsers{}),
		Health:      healthhandler.NewHandler(nil),
	})
	return h, tokens, auditLog
}

func bearer(t *testing.T, tokens *security.TokenProvider, userID, role string) string {
	t.Helper()
	tok, err := tokens.IssueAccess(userID, role)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return "Bearer " + tok.Token
}

func do(h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	h, _, _ := newTestRouter(t)

	if rec := do(h, http.MethodGet, "/api/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health: code = %d, want 200", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/attendance/image/33333333-3333-3333-3333-333333333333", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("image: code = %d, want 404 from handler", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/auth/login", "", `{"email":"a@example.com","pin":"1234"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("login: code = %d, want 401 from handler", rec.Code)
	}
}

func TestRouter_AuthenticatedRoutesRequireToken(t *testing.T) {
	h, _, _ := newTestRouter(t)
	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/attendance"},
		{http.MethodGet, "/api/attendance/status"},
		{http.MethodPost, "/api/attendance/clock-out"},
		{http.MethodGet, "/api/attendance/report"},
		{http.MethodPost, "/api/auth/logout"},
		{http.MethodPost, "/api/users"},
	}
	for _, p := range paths {
		rec := do(h, p.method, p.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: code = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestRouter_UnknownUserRejected(t *testing.T) {
	h, tokens, _ := newTestRouter(t)
	rec := do(h, http.MethodGet, "/api/attendance/status", bearer(t, tokens, "44444444-4444-4444-4444-444444444444", roledomain.RoleStaff), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("code = %d, want 401", rec.Code)
	}
}

func TestRouter_PermissionGuards(t *testing.T) {
	h, tokens, _ := newTestRouter(t)
	staff := bearer(t, tokens, staffID, roledomain.RoleStaff)
	admin := bearer(t, tokens, adminID, roledomain.RoleAdmin)

	testCases := []struct {
		name   string
		method string
		path   string
		auth   string
		body   string
		want   int
	}{
		{"staff status", http.MethodGet, "/api/attendance/status", staff, "", http.StatusOK},
		{"staff report", http.MethodGet, "/api/attendance/report", staff, "", http.StatusForbidden},
		{"admin report", http.MethodGet, "/api/attendance/report", admin, "", http.StatusOK},
		{"staff store location", http.MethodPatch, "/api/stores/55555555-5555-5555-5555-555555555555/location", staff, `{"latitude":1,"longitude":2}`, http.StatusForbidden},
		{"admin store location", http.MethodPatch, "/api/stores/55555555-5555-5555-5555-555555555555/location", admin, `{"latitude":1,"longitude":2}`, http.StatusNotFound},
		{"staff create user", http.MethodPost, "/api/users", staff, "{}", http.StatusForbidden},
		{"staff change role", http.MethodPatch, "/api/users/" + adminID + "/role", staff, "{}", http.StatusForbidden},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(h, tc.method, tc.path, tc.auth, tc.body)
			if rec.Code != tc.want {
				t.Errorf("code = %d, want %d; body = %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestRouter_AuditsMutatingRequests(t *testing.T) {
	h, tokens, auditLog := newTestRouter(t)
	staff := bearer(t, tokens, staffID, roledomain.RoleStaff)

	do(h, http.MethodGet, "/api/attendance/status", staff, "")
	do(h, http.MethodPost, "/api/attendance/clock-out", staff, `{"latitude":1,"longitude":2}`)

	auditLog.mu.Lock()
	defer auditLog.mu.Unlock()
	if len(auditLog.calls) != 1 {
		t.Fatalf("audit calls = %v, want exactly the clock-out", auditLog.calls)
	}
	if auditLog.calls[0].userID != staffID {
		t.Errorf("audit user = %q, want %q", auditLog.calls[0].userID, staffID)
	}
}

func TestRouter_NotFoundEnvelope(t *testing.T) {
	h, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
	if got := rec.Header().Get(middleware.RequestIDHeader); got != "req-123" {
		t.Errorf("request id header = %q, want propagated", got)
	}
	var body struct {
		Status int               `json:"status"`
		Data   map[string]string `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusNotFound || body.Data["requestId"] != "req-123" {
		t.Errorf("body = %+v", body)
	}
}
