package domain

import (
	"errors"
	"testing"
)

func TestValidatePIN(t *testing.T) {
	testCases := []struct {
		pin string
		ok  bool
	}{
		{"1234", true},
		{"0000", true},
		{"123", false},
		{"12345", false},
		{"12a4", false},
		{"", false},
		{"١٢٣٤", false},
	}
	for _, tc := range testCases {
		err := ValidatePIN(tc.pin)
		if tc.ok && err != nil {
			t.Errorf("ValidatePIN(%q) = %v, want nil", tc.pin, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidPIN) {
			t.Errorf("ValidatePIN(%q) = %v, want ErrInvalidPIN", tc.pin, err)
		}
	}
}
