package analysis

import "math"

const (
	SecondsPerHour = 3600

	// DefaultCapacityFactor converts VAM (m/h) into a VO2max estimate.
	// Empirical; treat as a tunable, not physiology.
	DefaultCapacityFactor = 14.5
)

// VerticalRate returns the ascent rate in meters/hour (VAM).
// Elevation without duration is meaningless, so movingTime <= 0 yields 0.
func VerticalRate(elevationGain float64, movingTimeSeconds int) int {
	if movingTimeSeconds <= 0 {
		return 0
	}
	return int(math.Round(elevationGain / float64(movingTimeSeconds) * SecondsPerHour))
}

// EstimatedCapacity estimates VO2max from a vertical rate: round(rate / k).
// A non-positive k yields 0.
func EstimatedCapacity(verticalRate int, k float64) int {
	if k <= 0 {
		return 0
	}
	return int(math.Round(float64(verticalRate) / k))
}
