package domain

import (
	"errors"
	"testing"
	"time"

	"attendance-tracker/backend/internal/geo"
)

func TestDurationMinutes(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	testCases := []struct {
		name string
		out  time.Time
		want int
	}{
		{"same instant", t0, 0},
		{"29 seconds", t0.Add(29 * time.Second), 0},
		{"30 seconds rounds up", t0.Add(30 * time.Second), 1},
		{"89 seconds", t0.Add(89 * time.Second), 1},
		{"eight hours", t0.Add(480 * time.Minute), 480},
		{"eight hours and 31s", t0.Add(480*time.Minute + 31*time.Second), 481},
		{"before clock-in", t0.Add(-time.Minute), 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DurationMinutes(t0, tc.out); got != tc.want {
				t.Errorf("DurationMinutes = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestElapsedMinutes_Floors(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if got := ElapsedMinutes(t0, t0.Add(59*time.Second)); got != 0 {
		t.Errorf("59s = %d, want 0", got)
	}
	if got := ElapsedMinutes(t0, t0.Add(90*time.Minute+59*time.Second)); got != 90 {
		t.Errorf("90m59s = %d, want 90", got)
	}
	if got := ElapsedMinutes(t0, t0.Add(-time.Hour)); got != 0 {
		t.Errorf("negative = %d, want 0", got)
	}
}

func TestSession_Complete(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s := &Session{
		ID:               "s1",
		Status:           StatusActive,
		ClockIn:          ClockIn{Time: t0, WithinGeofence: true},
		IsWithinGeofence: true,
	}
	out := geo.Coordinate{Latitude: 1, Longitude: 2}
	if err := s.Complete(t0.Add(2*time.Hour), out, false); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if s.Status != StatusCompleted || s.ClockOut == nil || s.DurationMinutes == nil {
		t.Fatalf("session not completed: %+v", s)
	}
	if *s.DurationMinutes != 120 {
		t.Errorf("DurationMinutes = %d, want 120", *s.DurationMinutes)
	}
	if s.IsWithinGeofence || s.ClockOut.WithinGeofence {
		t.Error("clock-out geofence result should overwrite the session flag")
	}
	if !s.ClockIn.WithinGeofence {
		t.Error("clock-in geofence result must be preserved")
	}
	if err := s.Complete(t0.Add(3*time.Hour), out, true); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("second Complete err = %v, want ErrNoActiveSession", err)
	}
}

func TestDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	r := DateRange{Start: &start, End: &end}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if !r.Contains(start) || !r.Contains(end) {
		t.Error("bounds are inclusive")
	}
	if r.Contains(start.Add(-time.Nanosecond)) || r.Contains(end.Add(time.Nanosecond)) {
		t.Error("outside bounds should not be contained")
	}
	if !(DateRange{}).Contains(start) {
		t.Error("open range contains everything")
	}
	if err := (DateRange{Start: &end, End: &start}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("inverted range err = %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"", "ACTIVE", "COMPLETED"} {
		if _, err := ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q): %v", s, err)
		}
	}
	if _, err := ParseStatus("active"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseStatus(active) err = %v", err)
	}
}
