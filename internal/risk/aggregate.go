package risk

// Aggregate sums the points of flagged signals and compares the sum to threshold.
// The returned breakdown is a copy of signals with Points normalized.
func Aggregate(threshold int, signals []Signal) (int, Level, []Signal) {
	out := make([]Signal, len(signals))
	score := 0
	for i, s := range signals {
		s.Points = 0
		if s.Flagged {
			s.Points = s.Weight
			score += s.Weight
		}
		out[i] = s
	}
	return score, LevelFor(threshold, score), out
}

// LevelFor maps a score to a level.
func LevelFor(threshold, score int) Level {
	if score >= threshold {
		return LevelHigh
	}
	return LevelLow
}
