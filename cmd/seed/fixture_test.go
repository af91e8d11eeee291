package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFixture_Embedded(t *testing.T) {
	fx, err := loadFixture("")
	if err != nil {
		t.Fatalf("loadFixture: %v", err)
	}
	if len(fx.Stores) == 0 || len(fx.Users) == 0 {
		t.Fatalf("embedded fixture is empty: %+v", fx)
	}
	var admins int
	for _, u := range fx.Users {
		if u.Role == "Admin" {
			admins++
		}
		if len(u.PIN) != 4 {
			t.Errorf("user %s PIN %q must be 4 digits", u.Email, u.PIN)
		}
	}
	if admins == 0 {
		t.Error("embedded fixture should include an admin")
	}
}

func TestLoadFixture_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{"unknown brand", "stores:\n  - key: s1\n    brand: nope\n    location: l1\nlocations:\n  - key: l1\n", "unknown brand"},
		{"duplicate key", "brands:\n  - key: b1\n  - key: b1\n", "duplicate brand"},
		{"unknown role", "users:\n  - email: a@example.com\n    role: Owner\n", "unknown role"},
		{"unknown store", "users:\n  - email: a@example.com\n    role: Staff\n    stores: [missing]\n", "unknown store"},
		{"duplicate policy", "policies:\n  - name: p\n  - name: p\n", "duplicate policy"},
		{"bad yaml", "brands: [", "parse fixture"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fixture.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := loadFixture(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestSeedID_Stable(t *testing.T) {
	if seedID("store", "a") != seedID("store", "a") {
		t.Error("seedID should be deterministic")
	}
	if seedID("store", "a") == seedID("brand", "a") {
		t.Error("seedID should differ by kind")
	}
}
