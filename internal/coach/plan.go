package coach

import (
	"errors"
	"fmt"
	"math"

	"vertical-coach/internal/analysis"
)

// ErrInvalidObjective is returned for a non-positive target or fewer than one week
var ErrInvalidObjective = errors.New("invalid objective")

// Objective bounds offered by the objective editor
const (
	MinTargetVAM = 400
	MaxTargetVAM = 2000
	MinWeeks     = 4
	MaxWeeks     = 24

	// MaxIntensityFactor caps target/current
	MaxIntensityFactor = 1.2
)

// SessionType identifies the kind of workout
type SessionType string

const (
	SessionInterval  SessionType = "Interval"
	SessionThreshold SessionType = "Threshold"
	SessionForce     SessionType = "Force"
)

// Objective is the athlete's goal: a vertical rate to reach in a number of weeks
type Objective struct {
	TargetVAM int `json:"target_vam"` // m/h
	Weeks     int `json:"weeks"`
}

// Validate checks the objective can drive a plan
func (o Objective) Validate() error {
	if o.TargetVAM <= 0 {
		return fmt.Errorf("%w: target VAM must be positive, got %d", ErrInvalidObjective, o.TargetVAM)
	}
	if o.Weeks < 1 {
		return fmt.Errorf("%w: need at least one week, got %d", ErrInvalidObjective, o.Weeks)
	}
	return nil
}

// Session is one workout of the plan
type Session struct {
	Week        int
	Type        SessionType
	Title       string
	Description string
	Intensity   string
	Duration    string
}

// Plan is the generated training block
type Plan struct {
	Sessions        []Session
	IntensityFactor float64
}

// Week returns the sessions of week w
func (p Plan) Week(w int) []Session {
	var out []Session
	for _, s := range p.Sessions {
		if s.Week == w {
			out = append(out, s)
		}
	}
	return out
}

// Weeks returns the number of weeks covered by the plan
func (p Plan) Weeks() int {
	if len(p.Sessions) == 0 {
		return 0
	}
	return p.Sessions[len(p.Sessions)-1].Week
}

// GeneratePlan builds a progressive overload plan. Each week targets a base
// rate that closes half of the gap between the current and target rates by
// the final week; interval and threshold targets are derived from it.
func GeneratePlan(profile analysis.AthleteProfile, objective Objective) (Plan, error) {
	if err := objective.Validate(); err != nil {
		return Plan{}, err
	}

	current := float64(profile.BestVerticalRate)
	target := float64(objective.TargetVAM)
	delta := target - current

	sessions := make([]Session, 0, objective.Weeks*3)
	for w := 1; w <= objective.Weeks; w++ {
		progression := float64(w) / float64(objective.Weeks)
		base := current + delta*progression*0.5

		sessions = append(sessions,
			Session{
				Week:        w,
				Type:        SessionInterval,
				Title:       "Max vertical intervals",
				Description: fmt.Sprintf("30/30 repeats on a steep slope. 10x [30s @ %d m/h / 30s recovery]", round(base*1.05)),
				Intensity:   "Z5 (Max)",
				Duration:    "45 min",
			},
			Session{
				Week:        w,
				Type:        SessionThreshold,
				Title:       "Uphill threshold",
				Description: fmt.Sprintf("Steady climb 2x15min @ %d m/h. Focus on breathing.", round(base*0.85)),
				Intensity:   "Z4 (Threshold)",
				Duration:    "1h 15 min",
			},
			Session{
				Week:        w,
				Type:        SessionForce,
				Title:       "Specific strength",
				Description: "Grade > 25%. Low cadence, maximal push through calves and quads.",
				Intensity:   "Z3 (Power)",
				Duration:    "1h 00 min",
			},
		)
	}

	return Plan{
		Sessions:        sessions,
		IntensityFactor: intensityFactor(current, target),
	}, nil
}

// Projection returns weeks+1 points rising linearly from the current rate
// (week 0) to the target (final week)
func Projection(profile analysis.AthleteProfile, objective Objective) ([]int, error) {
	if err := objective.Validate(); err != nil {
		return nil, err
	}

	current := float64(profile.BestVerticalRate)
	target := float64(objective.TargetVAM)

	points := make([]int, objective.Weeks+1)
	for i := range points {
		progression := float64(i) / float64(objective.Weeks)
		points[i] = round(current + (target-current)*progression)
	}
	return points, nil
}

func intensityFactor(current, target float64) float64 {
	if current <= 0 {
		return MaxIntensityFactor
	}
	return math.Min(MaxIntensityFactor, target/current)
}

func round(v float64) int {
	return int(math.Round(v))
}
