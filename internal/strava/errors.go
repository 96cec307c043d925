package strava

import (
	"errors"
	"fmt"
)

// ErrProviderRead is returned when Strava answers a read with a non-success status
var ErrProviderRead = errors.New("strava read error")

// APIError carries the failed response of a protected read
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s returned %d: %s", ErrProviderRead, e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Is(target error) bool { return target == ErrProviderRead }
