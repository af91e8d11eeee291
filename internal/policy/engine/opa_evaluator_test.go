package engine

import (
	"context"
	"errors"
	"testing"

	"attendance-tracker/backend/internal/policy/domain"
	"attendance-tracker/backend/internal/policy/repository"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e := NewOPAEvaluator(nil)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

// mockPolicyRepo implements repository.Repository for tests.
type mockPolicyRepo struct {
	policies []*domain.Policy
	err      error
}

var _ repository.Repository = (*mockPolicyRepo)(nil)

func (m *mockPolicyRepo) GetByName(ctx context.Context, name string) (*domain.Policy, error) {
	for _, p := range m.policies {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockPolicyRepo) ListEnabled(ctx context.Context) ([]*domain.Policy, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Policy
	for _, p := range m.policies {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPolicyRepo) Upsert(ctx context.Context, p *domain.Policy) error {
	m.policies = append(m.policies, p)
	return nil
}

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	testCases := []struct {
		name       string
		in         ClockInInput
		wantAllow  bool
		wantReason string
	}{
		{
			name:      "assigned staff at active store",
			in:        ClockInInput{UserID: "u1", Role: "Staff", StoreIDs: []string{"s0", "s1"}, StoreID: "s1", StoreActive: true},
			wantAllow: true,
		},
		{
			name:      "admin without assignment",
			in:        ClockInInput{UserID: "u2", Role: "Admin", StoreID: "s1", StoreActive: true},
			wantAllow: true,
		},
		{
			name:       "unassigned staff",
			in:         ClockInInput{UserID: "u1", Role: "Staff", StoreIDs: []string{"s0"}, StoreID: "s1", StoreActive: true},
			wantReason: ReasonNotAssigned,
		},
		{
			name:       "staff with no stores",
			in:         ClockInInput{UserID: "u1", Role: "Staff", StoreID: "s1", StoreActive: true},
			wantReason: ReasonNotAssigned,
		},
		{
			name:       "inactive store",
			in:         ClockInInput{UserID: "u2", Role: "Admin", StoreIDs: []string{"s1"}, StoreID: "s1", StoreActive: false},
			wantReason: ReasonStoreInactive,
		},
	}
	for _, repo := range []repository.Repository{nil, &mockPolicyRepo{}} {
		e := NewOPAEvaluator(repo)
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				d, err := e.EvaluateClockIn(context.Background(), tc.in)
				if err != nil {
					t.Fatalf("EvaluateClockIn: %v", err)
				}
				if d.Allow != tc.wantAllow {
					t.Errorf("Allow = %v, want %v", d.Allow, tc.wantAllow)
				}
				if d.Reason != tc.wantReason {
					t.Errorf("Reason = %q, want %q", d.Reason, tc.wantReason)
				}
			})
		}
	}
}

const adminsOnlyPolicy = `package attendance.clock_in

default allow := false

allow if {
	input.user.role == "Admin"
}

reason = "admins_only" if {
	not allow
}
`

func TestOPAEvaluator_StoredPolicyReplacesDefault(t *testing.T) {
	repo := &mockPolicyRepo{policies: []*domain.Policy{
		{ID: "p1", Name: "admins-only", Rules: adminsOnlyPolicy, Enabled: true},
	}}
	e := NewOPAEvaluator(repo)

	d, err := e.EvaluateClockIn(context.Background(), ClockInInput{Role: "Staff", StoreIDs: []string{"s1"}, StoreID: "s1", StoreActive: true})
	if err != nil {
		t.Fatalf("EvaluateClockIn: %v", err)
	}
	if d.Allow || d.Reason != "admins_only" {
		t.Errorf("decision = %+v, want denied admins_only", d)
	}
}

func TestOPAEvaluator_FallsBackToDefault(t *testing.T) {
	in := ClockInInput{Role: "Staff", StoreIDs: []string{"s1"}, StoreID: "s1", StoreActive: true}
	testCases := []struct {
		name string
		repo *mockPolicyRepo
	}{
		{"repo error", &mockPolicyRepo{err: errors.New("db down")}},
		{"invalid rego", &mockPolicyRepo{policies: []*domain.Policy{{Name: "broken", Rules: "package attendance.clock_in\nallow if {", Enabled: true}}}},
		{"disabled policy", &mockPolicyRepo{policies: []*domain.Policy{{Name: "admins-only", Rules: adminsOnlyPolicy, Enabled: false}}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewOPAEvaluator(tc.repo).EvaluateClockIn(context.Background(), in)
			if err != nil {
				t.Fatalf("EvaluateClockIn: %v", err)
			}
			if !d.Allow {
				t.Errorf("decision = %+v, want default allow", d)
			}
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	if err := (&domain.Policy{Name: "x", Rules: DefaultRegoPolicy}).Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := (&domain.Policy{Name: " ", Rules: DefaultRegoPolicy}).Validate(); !errors.Is(err, domain.ErrInvalidPolicy) {
		t.Errorf("blank name err = %v", err)
	}
	if err := (&domain.Policy{Name: "x"}).Validate(); !errors.Is(err, domain.ErrInvalidPolicy) {
		t.Errorf("empty rules err = %v", err)
	}
}
