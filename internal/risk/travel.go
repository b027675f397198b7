package risk

import (
	"sort"
	"time"

	"adaptive-auth/backend/internal/geo"
)

// IsImpossibleTravel reports whether moving from prev (at prevAt) to cur (at now) is implausible.
// With no elapsed time any distance over simultaneousKm flags; otherwise the average speed must
// exceed maxSpeedKmh.
func IsImpossibleTravel(prev geo.Point, prevAt time.Time, cur geo.Point, now time.Time, maxSpeedKmh, simultaneousKm float64) bool {
	distance := geo.DistanceKm(prev, cur)
	elapsed := now.UTC().Sub(prevAt.UTC())
	if elapsed <= 0 {
		return distance > simultaneousKm
	}
	return distance/elapsed.Hours() > maxSpeedKmh
}

// MedianHour returns the lower-middle UTC hour of times. times must be non-empty.
func MedianHour(times []time.Time) int {
	hours := make([]int, len(times))
	for i, t := range times {
		hours[i] = t.UTC().Hour()
	}
	sort.Ints(hours)
	return hours[len(hours)/2]
}

// HourDistance is the distance between two hours of the day on a 24 hour circle.
func HourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if 24-d < d {
		return 24 - d
	}
	return d
}

// IsAtypicalHour reports whether now is more than maxDistance hours from the median hour of history.
// Histories shorter than minLogins never flag.
func IsAtypicalHour(history []time.Time, now time.Time, minLogins, maxDistance int) bool {
	if len(history) == 0 || len(history) < minLogins {
		return false
	}
	return HourDistance(MedianHour(history), now.UTC().Hour()) > maxDistance
}
