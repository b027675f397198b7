package security

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     string
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login.
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

// Hash produces a bcrypt hash of password. Do not pass an empty password.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. Returns nil if they
// match; returns an error (including bcrypt.ErrMismatchedHashAndPassword) if
// they do not or on invalid hash.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}

// CompareDummy runs a comparison against a throwaway hash at the same cost, so
// an unknown username costs as much as a wrong password. Always returns a non-nil error.
func (h *Hasher) CompareDummy(password []byte) error {
	h.dummyOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte("adaptive-auth-dummy-password"), h.Cost)
		if err == nil {
			h.dummy = string(b)
		}
	})
	if h.dummy == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.dummy), password); err != nil {
		return err
	}
	return bcrypt.ErrMismatchedHashAndPassword
}
