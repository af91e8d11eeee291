package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	roledomain "attendance-tracker/backend/internal/role/domain"
)

//go:embed fixture.yaml
var defaultFixture []byte

// seedNamespace derives stable ids from fixture keys so re-runs address the same rows.
var seedNamespace = uuid.MustParse("6f1c2d3e-8a4b-4c5d-9e6f-7a8b9c0d1e2f")

type fixture struct {
	Brands    []brandFixture    `yaml:"brands"`
	Locations []locationFixture `yaml:"locations"`
	Stores    []storeFixture    `yaml:"stores"`
	Users     []userFixture     `yaml:"users"`
	Policies  []policyFixture   `yaml:"policies"`
}

type brandFixture struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Logo        string `yaml:"logo"`
}

type locationFixture struct {
	Key        string `yaml:"key"`
	Name       string `yaml:"name"`
	Address    string `yaml:"address"`
	City       string `yaml:"city"`
	State      string `yaml:"state"`
	Country    string `yaml:"country"`
	PostalCode string `yaml:"postalCode"`
}

type storeFixture struct {
	Key            string  `yaml:"key"`
	Brand          string  `yaml:"brand"`
	Location       string  `yaml:"location"`
	Latitude       float64 `yaml:"latitude"`
	Longitude      float64 `yaml:"longitude"`
	GeofenceRadius float64 `yaml:"geofenceRadius"`
	Inactive       bool    `yaml:"inactive"`
}

type userFixture struct {
	FirstName string   `yaml:"firstName"`
	LastName  string   `yaml:"lastName"`
	Email     string   `yaml:"email"`
	Role      string   `yaml:"role"`
	PIN       string   `yaml:"pin"`
	Stores    []string `yaml:"stores"`
}

// policyFixture is a stored clock-in policy. Empty rules mean the built-in module.
type policyFixture struct {
	Name    string `yaml:"name"`
	Rules   string `yaml:"rules"`
	Enabled bool   `yaml:"enabled"`
}

// loadFixture reads path, or the embedded fixture when path is empty.
func loadFixture(path string) (*fixture, error) {
	data := defaultFixture
	if path != "" {
		b, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
		data = b
	}
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// validate checks that every store and user reference resolves within the fixture.
func (f *fixture) validate() error {
	brands := keySet(len(f.Brands))
	for _, b := range f.Brands {
		if err := brands.add("brand", b.Key); err != nil {
			return err
		}
	}
	locations := keySet(len(f.Locations))
	for _, l := range f.Locations {
		if err := locations.add("location", l.Key); err != nil {
			return err
		}
	}
	stores := keySet(len(f.Stores))
	for _, s := range f.Stores {
		if err := stores.add("store", s.Key); err != nil {
			return err
		}
		if !brands[s.Brand] {
			return fmt.Errorf("fixture: store %q references unknown brand %q", s.Key, s.Brand)
		}
		if !locations[s.Location] {
			return fmt.Errorf("fixture: store %q references unknown location %q", s.Key, s.Location)
		}
	}
	policies := keySet(len(f.Policies))
	for _, p := range f.Policies {
		if err := policies.add("policy", p.Name); err != nil {
			return err
		}
	}
	for _, u := range f.Users {
		if u.Role != roledomain.RoleAdmin && u.Role != roledomain.RoleStaff {
			return fmt.Errorf("fixture: user %q has unknown role %q", u.Email, u.Role)
		}
		for _, s := range u.Stores {
			if !stores[s] {
				return fmt.Errorf("fixture: user %q references unknown store %q", u.Email, s)
			}
		}
	}
	return nil
}

type keys map[string]bool

func keySet(n int) keys { return make(keys, n) }

func (k keys) add(kind, key string) error {
	if key == "" {
		return fmt.Errorf("fixture: %s key is required", kind)
	}
	if k[key] {
		return fmt.Errorf("fixture: duplicate %s key %q", kind, key)
	}
	k[key] = true
	return nil
}

// seedID returns the stable id for a fixture entity.
func seedID(kind, key string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+key)).String()
}
