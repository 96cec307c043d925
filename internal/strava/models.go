package strava

import "time"

// Activity represents a Strava activity summary from /athlete/activities
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	ElapsedTime        int       `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageHeartrate   float64   `json:"average_heartrate"`    // bpm
}

// Athlete represents the authenticated athlete from /athlete
type Athlete struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Firstname string  `json:"firstname"`
	Lastname  string  `json:"lastname"`
	Weight    float64 `json:"weight"` // kg, 0 when not set
}
