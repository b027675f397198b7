package domain

import (
	"time"

	"adaptive-auth/backend/internal/geo"
)

// Failure reasons recorded on unsuccessful decisions.
const (
	ReasonInvalidCredentials        = "invalid_credentials"
	ReasonChallengeInvalidCode      = "challenge_invalid_code"
	ReasonChallengeExpired          = "challenge_expired"
	ReasonChallengeAttemptsExceeded = "challenge_attempts_exhausted"
)

// Record is one completed authentication decision (stored in audit_records, append-only).
type Record struct {
	ID string
	// UserID is empty when the username did not resolve to an identity.
	UserID      string
	CreatedAt   time.Time
	Origin      string
	Fingerprint string
	// Location is nil when the request carried no coordinates.
	Location      *geo.Point
	RiskScore     int
	RiskLevel     string
	Success       bool
	FailureReason string
}
