package domain

import (
	"errors"
	"time"
)

// PINLength is the number of digits in a login PIN.
const PINLength = 4

var ErrInvalidPIN = errors.New("pin must be exactly 4 digits")

// Identity holds a user's login credential.
type Identity struct {
	ID        string
	UserID    string
	PINHash   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidatePIN returns ErrInvalidPIN unless pin is exactly PINLength ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != PINLength {
		return ErrInvalidPIN
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}
