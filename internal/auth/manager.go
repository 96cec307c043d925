package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// DefaultGrace is how long before expiry a token is refreshed
const DefaultGrace = 300 * time.Second

// State is the lifecycle state of the Strava session
type State int

const (
	StateUnauthenticated State = iota
	StateValid                 // credential stored, outside the grace window
	StateExpiring              // credential stored, next use will refresh
	StateInvalidated           // last refresh was rejected, credential purged
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateValid:
		return "authenticated"
	case StateExpiring:
		return "expiring"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Manager owns the Strava credential: code exchange, refresh before
// expiry, and logout. Calls are serialized; a single Manager should be the
// only writer of its CredentialStore.
type Manager struct {
	oauth      *oauth2.Config
	creds      *CredentialStore
	httpClient *http.Client
	clock      Clock
	grace      time.Duration
	navigate   Navigator
	log        *logrus.Entry

	mu          sync.Mutex
	invalidated bool
}

// Option configures a Manager
type Option func(*Manager)

// WithHTTPClient sets the client used for token endpoint calls
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithClock sets the time source used for expiry checks
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithGrace sets the refresh margin before expiry
func WithGrace(d time.Duration) Option {
	return func(m *Manager) { m.grace = d }
}

// WithNavigator sets how the authorization URL reaches the user
func WithNavigator(n Navigator) Option {
	return func(m *Manager) { m.navigate = n }
}

// NewManager creates a Manager for the given OAuth client and credential store
func NewManager(cfg *oauth2.Config, creds *CredentialStore, opts ...Option) *Manager {
	m := &Manager{
		oauth:      cfg,
		creds:      creds,
		httpClient: http.DefaultClient,
		clock:      SystemClock{},
		grace:      DefaultGrace,
		navigate:   OpenBrowser,
		log:        logrus.WithField("component", "auth"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RedirectURL returns the redirect target registered with the provider
func (m *Manager) RedirectURL() string {
	return m.oauth.RedirectURL
}

// AuthorizationURL builds the provider authorization URL for state
func (m *Manager) AuthorizationURL(state string) string {
	return m.oauth.AuthCodeURL(state)
}

// InitiateAuthorization sends the user to the provider's authorization page.
// The result arrives later as a code on the redirect URL.
func (m *Manager) InitiateAuthorization(state string) error {
	authURL := m.AuthorizationURL(state)
	m.log.WithField("url", authURL).Info("starting authorization")

	if err := m.navigate(authURL); err != nil {
		return fmt.Errorf("opening authorization page: %w", err)
	}
	return nil
}

// CompleteAuthorization exchanges a one-time authorization code for a
// credential and persists it. On failure the stored state is untouched.
func (m *Manager) CompleteAuthorization(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.oauth.ClientSecret == "" {
		return errMissingClientSecret
	}
	if code == "" {
		return &ExchangeError{Detail: "empty authorization code"}
	}

	token, err := m.oauth.Exchange(m.clientContext(ctx), code)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		m.log.WithError(err).Warn("code exchange failed")
		return newExchangeError(err)
	}

	cred, err := credentialFromToken(token)
	if err != nil {
		return &ExchangeError{Err: err}
	}

	if err := m.creds.Save(cred); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}

	m.invalidated = false
	m.log.WithFields(logrus.Fields{
		"athlete_id": ExtractAthleteID(token),
		"expires_at": cred.ExpiresAt,
	}).Info("authorization complete")

	return nil
}

// EnsureValidAccessToken returns an access token that is valid for at least
// the grace margin, refreshing it first if needed. A rejected refresh purges
// the credential and returns a SessionExpiredError.
func (m *Manager) EnsureValidAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, err := m.creds.Load()
	if errors.Is(err, ErrNoCredential) {
		return "", ErrNotAuthenticated
	}
	if err != nil {
		return "", err
	}

	if m.fresh(cred) {
		return cred.AccessToken, nil
	}

	if m.oauth.ClientSecret == "" {
		return "", errMissingClientSecret
	}

	return m.refresh(ctx, cred)
}

func (m *Manager) refresh(ctx context.Context, cred *Credential) (string, error) {
	m.log.Info("refreshing strava token")

	src := m.oauth.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := src.Token()
	if err == nil {
		var next Credential
		next, err = credentialFromToken(token)
		if err == nil {
			if err := m.creds.Save(next); err != nil {
				return "", fmt.Errorf("saving refreshed credential: %w", err)
			}
			return next.AccessToken, nil
		}
	}

	// Cancelled before a response was parsed: keep the credential
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	m.log.WithError(err).Warn("token refresh rejected, logging out")
	m.invalidated = true
	if clearErr := m.creds.Clear(); clearErr != nil {
		m.log.WithError(clearErr).Error("clearing credential after failed refresh")
	}
	return "", &SessionExpiredError{Err: err}
}

// Logout removes the stored credential
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalidated = false
	if err := m.creds.Clear(); err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	m.log.Info("logged out")
	return nil
}

// IsAuthenticated reports whether a credential is stored, expired or not
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.creds.Load()
	return err == nil
}

// State reports the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.invalidated {
		return StateInvalidated
	}
	cred, err := m.creds.Load()
	if err != nil {
		return StateUnauthenticated
	}
	if m.fresh(cred) {
		return StateValid
	}
	return StateExpiring
}

// Expiry returns the expiry of the stored credential
func (m *Manager) Expiry() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, err := m.creds.Load()
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(cred.ExpiresAt, 0), true
}

func (m *Manager) fresh(cred *Credential) bool {
	now := m.clock.Now().Unix()
	return cred.ExpiresAt > now+int64(m.grace/time.Second)
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// credentialFromToken maps a token response to a Credential.
// Strava reports expiry as absolute expires_at; expires_in is the fallback.
func credentialFromToken(token *oauth2.Token) (Credential, error) {
	if token.AccessToken == "" || token.RefreshToken == "" {
		return Credential{}, errors.New("token response missing access_token or refresh_token")
	}

	cred := Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}

	if expiresAt, ok := extraInt64(token.Extra("expires_at")); ok {
		cred.ExpiresAt = expiresAt
	} else if !token.Expiry.IsZero() {
		cred.ExpiresAt = token.Expiry.Unix()
	}

	return cred, nil
}

func extraInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func newExchangeError(err error) *ExchangeError {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		e := &ExchangeError{Detail: string(rErr.Body), Err: err}
		if rErr.Response != nil {
			e.StatusCode = rErr.Response.StatusCode
		}
		return e
	}
	return &ExchangeError{Err: err}
}
