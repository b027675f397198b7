package domain

import (
	"time"

	"adaptive-auth/backend/internal/geo"
)

// State is the lifecycle state of a pending challenge.
type State string

// created is the only non-terminal state.
const (
	StateCreated  State = "created"
	StateRedeemed State = "redeemed"
	StateLocked   State = "locked"
	StateExpired  State = "expired"
)

// Challenge is a pending second-factor challenge (stored in pending_challenges).
// Records are never deleted, only moved to a terminal state.
type Challenge struct {
	ID       string
	UserID   string
	CodeHash string
	State    State
	Attempts int
	// Origin, Fingerprint and Location are the login context the challenge was issued for.
	Origin      string
	Fingerprint string
	Location    *geo.Point
	ExpiresAt   time.Time
	CreatedAt   time.Time
	RedeemedAt  *time.Time
}

// Used reports whether the challenge has been redeemed.
func (c *Challenge) Used() bool {
	return c.State == StateRedeemed
}

// ExpiredAt reports whether the challenge is past its expiry at now (expiry is inclusive).
func (c *Challenge) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
