package security

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Compare when the secret does not match the hash.
var ErrMismatch = errors.New("secret does not match")

// Hasher hashes and verifies login PINs using bcrypt. Callers must not log or
// persist plaintext PINs.
type Hasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's bounds.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of secret suitable for storage.
func (h *Hasher) Hash(secret []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(secret, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies secret against the stored hash. Returns nil on match, ErrMismatch
// on a wrong secret, and the bcrypt error for a malformed hash.
func (h *Hasher) Compare(hash string, secret []byte) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), secret)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}

// CompareDummy spends the same bcrypt work as Compare against a throwaway hash.
// Login calls it for unknown accounts so response time does not reveal which emails exist.
func (h *Hasher) CompareDummy(secret []byte) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-secret"), h.Cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, secret)
}
