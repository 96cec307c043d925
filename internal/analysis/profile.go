package analysis

import (
	"math"
	"time"
)

// Fallback values used when no activity qualifies
const (
	DefaultBodyMassKg    = 70.0
	FallbackVO2Max       = 50
	FallbackVerticalRate = 400
	FallbackSourceLabel  = "No vertical activity found"
)

// Sample is one activity summary as reported by the provider
type Sample struct {
	Name               string
	TotalElevationGain float64 // meters
	MovingTime         int     // seconds
}

// DerivedActivity is a qualifying sample with its vertical rate
type DerivedActivity struct {
	Name            string `json:"name"`
	ElevationMeters int    `json:"elevation_m"`
	DurationSeconds int    `json:"duration_s"`
	VerticalRate    int    `json:"vertical_rate"` // m/h
}

// AthleteProfile is the reduced view of the athlete fed to planning and display
type AthleteProfile struct {
	BodyMassKg          float64           `json:"body_mass_kg"`
	EstimatedVO2Max     int               `json:"estimated_vo2max"`
	BestVerticalRate    int               `json:"best_vertical_rate"`
	SourceActivityLabel string            `json:"source_activity"`
	RecentActivities    []DerivedActivity `json:"recent_activities"` // most recent first
	Fallback            bool              `json:"fallback"`
	FetchedAt           time.Time         `json:"fetched_at"`
}

// Thresholds exclude flat or trivially short efforts. Both bounds are exclusive.
type Thresholds struct {
	MinElevationGain float64 // meters
	MinMovingTime    int     // seconds
}

// Qualifies reports whether s clears both thresholds
func (t Thresholds) Qualifies(s Sample) bool {
	return s.TotalElevationGain > t.MinElevationGain && s.MovingTime > t.MinMovingTime
}

// Params configures BuildProfile
type Params struct {
	Thresholds     Thresholds
	RecentLimit    int
	CapacityFactor float64
}

// DefaultParams returns the stock derivation settings
func DefaultParams() Params {
	return Params{
		Thresholds:     Thresholds{MinElevationGain: 20, MinMovingTime: 60},
		RecentLimit:    2,
		CapacityFactor: DefaultCapacityFactor,
	}
}

// Derive maps a sample to a DerivedActivity
func Derive(s Sample) DerivedActivity {
	return DerivedActivity{
		Name:            s.Name,
		ElevationMeters: int(math.Round(s.TotalElevationGain)),
		DurationSeconds: s.MovingTime,
		VerticalRate:    VerticalRate(s.TotalElevationGain, s.MovingTime),
	}
}

// Qualifying filters and derives samples, preserving order
func Qualifying(samples []Sample, t Thresholds) []DerivedActivity {
	var out []DerivedActivity
	for _, s := range samples {
		if t.Qualifies(s) {
			out = append(out, Derive(s))
		}
	}
	return out
}

// FallbackProfile is returned when no sample qualifies
func FallbackProfile() AthleteProfile {
	return AthleteProfile{
		BodyMassKg:          DefaultBodyMassKg,
		EstimatedVO2Max:     FallbackVO2Max,
		BestVerticalRate:    FallbackVerticalRate,
		SourceActivityLabel: FallbackSourceLabel,
		RecentActivities:    []DerivedActivity{},
		Fallback:            true,
	}
}

// BuildProfile reduces samples (most recent first) to an AthleteProfile.
// The best rate is taken over every qualifying sample, not only the
// recent slice. bodyMassKg <= 0 selects DefaultBodyMassKg.
func BuildProfile(bodyMassKg float64, samples []Sample, p Params) AthleteProfile {
	qualifying := Qualifying(samples, p.Thresholds)
	if len(qualifying) == 0 {
		return FallbackProfile()
	}

	if bodyMassKg <= 0 {
		bodyMassKg = DefaultBodyMassKg
	}

	best := qualifying[0].VerticalRate
	for _, a := range qualifying[1:] {
		if a.VerticalRate > best {
			best = a.VerticalRate
		}
	}

	limit := p.RecentLimit
	if limit <= 0 || limit > len(qualifying) {
		limit = len(qualifying)
	}
	recent := make([]DerivedActivity, limit)
	copy(recent, qualifying[:limit])

	return AthleteProfile{
		BodyMassKg:          bodyMassKg,
		EstimatedVO2Max:     EstimatedCapacity(best, p.CapacityFactor),
		BestVerticalRate:    best,
		SourceActivityLabel: qualifying[0].Name,
		RecentActivities:    recent,
	}
}
