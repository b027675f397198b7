package domain

import "time"

// TrustLabelVerified marks a device trusted after a redeemed second-factor challenge.
const TrustLabelVerified = "verified"

// TrustedDevice is a (user, fingerprint) pair that has completed a second-factor challenge.
// At most one exists per pair; it is never created on the low-risk path.
type TrustedDevice struct {
	ID          string
	UserID      string
	Fingerprint string
	TrustLabel  string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}
