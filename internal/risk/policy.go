package risk

import "time"

// Weights are the points each signal contributes when flagged.
type Weights struct {
	Reputation       int
	NewDevice        int
	ImpossibleTravel int
	AtypicalTime     int
}

// Policy is the immutable scoring configuration.
type Policy struct {
	// Threshold is the minimum score for LevelHigh.
	Threshold int
	Weights   Weights

	MaxTravelSpeedKmh float64
	// SimultaneousDistanceKm applies when no time has elapsed since the prior login.
	SimultaneousDistanceKm float64

	AtypicalMinLogins       int
	AtypicalWindow          time.Duration
	AtypicalMaxHourDistance int

	// ReputationTimeout bounds a single reputation lookup; zero means no extra bound.
	ReputationTimeout time.Duration
}

// DefaultPolicy returns the stock threshold and weights.
func DefaultPolicy() Policy {
	return Policy{
		Threshold: 100,
		Weights: Weights{
			Reputation:       90,
			NewDevice:        105,
			ImpossibleTravel: 150,
			AtypicalTime:     30,
		},
		MaxTravelSpeedKmh:       1000,
		SimultaneousDistanceKm:  50,
		AtypicalMinLogins:       5,
		AtypicalWindow:          30 * 24 * time.Hour,
		AtypicalMaxHourDistance: 3,
		ReputationTimeout:       500 * time.Millisecond,
	}
}

// MaxScore is the score with every signal flagged.
func (p Policy) MaxScore() int {
	w := p.Weights
	return w.Reputation + w.NewDevice + w.ImpossibleTravel + w.AtypicalTime
}
