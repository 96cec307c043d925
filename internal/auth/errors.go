package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when the OAuth client is misconfigured
	ErrConfiguration = errors.New("oauth configuration error")

	// ErrNotAuthenticated is returned when no credential is stored
	ErrNotAuthenticated = errors.New("not authenticated with strava")

	// ErrAuthorizationExchange is returned when the code exchange fails
	ErrAuthorizationExchange = errors.New("authorization code exchange failed")

	// ErrSessionExpired is returned when the refresh token was rejected.
	// The stored credential has been purged; the user must authorize again.
	ErrSessionExpired = errors.New("strava session expired, please reauthorize")

	// ErrNoCredential is returned by CredentialStore.Load when nothing usable is stored
	ErrNoCredential = errors.New("no credential stored")

	// ErrMalformedCredential marks a stored blob that could not be decoded
	ErrMalformedCredential = errors.New("malformed credential")
)

var errMissingClientSecret = fmt.Errorf("%w: strava client secret is empty - set strava.client_secret or STRAVA_CLIENT_SECRET", ErrConfiguration)

// ExchangeError describes a failed authorization code exchange
type ExchangeError struct {
	StatusCode int    // 0 when no HTTP response was received
	Detail     string // provider response body, when available
	Err        error
}

func (e *ExchangeError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("%s: status %d: %s", ErrAuthorizationExchange, e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", ErrAuthorizationExchange, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrAuthorizationExchange, e.Err)
	default:
		return ErrAuthorizationExchange.Error()
	}
}

func (e *ExchangeError) Is(target error) bool { return target == ErrAuthorizationExchange }

func (e *ExchangeError) Unwrap() error { return e.Err }

// SessionExpiredError wraps the refresh failure that ended the session
type SessionExpiredError struct {
	Err error
}

func (e *SessionExpiredError) Error() string {
	if e.Err == nil {
		return ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%s: %v", ErrSessionExpired, e.Err)
}

func (e *SessionExpiredError) Is(target error) bool { return target == ErrSessionExpired }

func (e *SessionExpiredError) Unwrap() error { return e.Err }
