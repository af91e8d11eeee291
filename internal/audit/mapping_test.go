package audit

import "testing"

func TestParseRoute(t *testing.T) {
	testCases := []struct {
		method, pattern  string
		action, resource string
	}{
		{"POST", "/api/attendance/clock-in", "clock_in", "attendance"},
		{"POST", "/api/attendance/clock-out", "clock_out", "attendance"},
		{"PATCH", "/api/stores/{storeId}/location", "update_location", "store"},
		{"POST", "/api/users", "create", "user"},
		{"DELETE", "/api/users/{id}", "delete", "user"},
		{"POST", "/api/auth/login", "login", "auth"},
		{"POST", "/api/auth/logout", "logout", "auth"},
		{"GET", "/api/attendance/status", "status", "attendance"},
		{"GET", "/api/categories", "get", "category"},
		{"GET", "/api/access", "get", "access"},
		{"POST", "/", "create", "unknown"},
		{"OPTIONS", "", "options", "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.pattern, func(t *testing.T) {
			ar := ParseRoute(tc.method, tc.pattern)
			if ar.Action != tc.action {
				t.Errorf("action = %q, want %q", ar.Action, tc.action)
			}
			if ar.Resource != tc.resource {
				t.Errorf("resource = %q, want %q", ar.Resource, tc.resource)
			}
		})
	}
}

func TestIsMutating(t *testing.T) {
	for _, m := range []string{"POST", "PUT", "PATCH", "DELETE"} {
		if !IsMutating(m) {
			t.Errorf("IsMutating(%s) = false, want true", m)
		}
	}
	for _, m := range []string{"GET", "HEAD", "OPTIONS"} {
		if IsMutating(m) {
			t.Errorf("IsMutating(%s) = true, want false", m)
		}
	}
}
