// Package risk scores a login attempt from contextual signals and maps the score to a level.
package risk

import (
	"context"
	"errors"
	"time"

	auditdomain "adaptive-auth/backend/internal/audit/domain"
	"adaptive-auth/backend/internal/geo"
)

// ErrUpstreamUnavailable is returned when a persistence read needed by a signal fails.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// Level is the binary risk level.
type Level string

const (
	LevelLow  Level = "low"
	LevelHigh Level = "high"
)

// Signal names.
const (
	SignalOriginReputation = "origin_reputation"
	SignalNewDevice        = "new_device"
	SignalImpossibleTravel = "impossible_travel"
	SignalAtypicalTime     = "atypical_time"
)

// Signal is one evaluated heuristic. Points is Weight when Flagged, else 0.
type Signal struct {
	Name    string `json:"name"`
	Flagged bool   `json:"flagged"`
	Points  int    `json:"points"`
	Weight  int    `json:"weight"`
	// Degraded is set when the signal's data source failed and it was treated as unflagged.
	Degraded bool `json:"degraded,omitempty"`
}

// Input is the context of one login attempt. UserID is empty for an unknown username.
type Input struct {
	UserID      string
	Origin      string
	Fingerprint string
	Location    *geo.Point
	// At is the attempt time; zero means now.
	At time.Time
}

// Assessment is the transient result of scoring one attempt.
type Assessment struct {
	Score       int       `json:"risk_score"`
	Level       Level     `json:"risk_level"`
	Threshold   int       `json:"threshold"`
	Signals     []Signal  `json:"signals"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Signal returns the named signal from the breakdown.
func (a *Assessment) Signal(name string) (Signal, bool) {
	for _, s := range a.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return Signal{}, false
}

// ReputationChecker returns whether an origin address is known bad.
type ReputationChecker interface {
	IsFlagged(ctx context.Context, origin string) (bool, error)
}

// ReputationFunc adapts a function to ReputationChecker.
type ReputationFunc func(ctx context.Context, origin string) (bool, error)

// IsFlagged calls f.
func (f ReputationFunc) IsFlagged(ctx context.Context, origin string) (bool, error) {
	return f(ctx, origin)
}

// TrustStore reports whether a (user, fingerprint) pair has completed a challenge before.
type TrustStore interface {
	IsTrusted(ctx context.Context, userID, fingerprint string) (bool, error)
}

// LoginHistory is the read side of the audit log used by the travel and time signals.
type LoginHistory interface {
	LastSuccessfulWithLocation(ctx context.Context, userID string) (*auditdomain.Record, error)
	SuccessfulLoginTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
}
