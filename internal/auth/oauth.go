package auth

import (
	"github.com/cli/browser"
	"golang.org/x/oauth2"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// Scope is the fixed scope string requested from Strava (comma-separated)
const Scope = "read,profile:read_all,activity:read_all"

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // application origin, e.g. "http://localhost:8089"

	// Overridable for tests; default to the Strava endpoints
	AuthURL  string
	TokenURL string
}

// NewOAuthConfig creates an oauth2.Config from our Config.
// Strava expects client_id and client_secret as form parameters.
func NewOAuthConfig(cfg Config) *oauth2.Config {
	authURL, tokenURL := cfg.AuthURL, cfg.TokenURL
	if authURL == "" {
		authURL = AuthURL
	}
	if tokenURL == "" {
		tokenURL = TokenURL
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      []string{Scope},
	}
}

// ExtractAthleteID extracts the athlete ID from the token extras
// Strava includes athlete info in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}

// Navigator hands an authorization URL to the user agent
type Navigator func(authURL string) error

// OpenBrowser opens authURL in the system browser
func OpenBrowser(authURL string) error {
	return browser.OpenURL(authURL)
}
