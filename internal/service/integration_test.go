package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vertical-coach/internal/auth"
	"vertical-coach/internal/config"
	"vertical-coach/internal/store"
	"vertical-coach/internal/strava"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

// stravaFake serves the token endpoint and the two athlete reads
func stravaFake(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-old", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token_type":    "Bearer",
			"access_token":  "access-new",
			"refresh_token": "refresh-new",
			"expires_at":    fetchedAt.Add(6 * time.Hour).Unix(),
		})
	})
	mux.HandleFunc("/api/v3/athlete", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-new", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id": 7, "weight": 58}`))
	})
	mux.HandleFunc("/api/v3/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-new", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"name": "Vertical KM", "total_elevation_gain": 1000, "moving_time": 2700},
			{"name": "Recovery", "total_elevation_gain": 10, "moving_time": 1800}
		]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRefreshesExpiredCredential(t *testing.T) {
	srv := stravaFake(t)
	db := store.NewTestDB(t)

	creds := auth.NewCredentialStore(db, auth.DefaultCredentialKey)
	require.NoError(t, creds.Save(auth.Credential{
		AccessToken:  "access-old",
		RefreshToken: "refresh-old",
		ExpiresAt:    fetchedAt.Add(-time.Minute).Unix(),
	}))

	manager := auth.NewManager(auth.NewOAuthConfig(auth.Config{
		ClientID:     "123",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8089",
		TokenURL:     srv.URL + "/oauth/token",
	}), creds,
		auth.WithHTTPClient(srv.Client()),
		auth.WithClock(fixedClock(fetchedAt)),
	)
	client := strava.NewClient(srv.Client(), strava.WithBaseURL(srv.URL+"/api/v3"))

	f := NewFetcher(manager, client, db, config.DefaultConfig().Metrics)
	f.now = func() time.Time { return fetchedAt }

	profile, err := f.FetchAthleteProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 58.0, profile.BodyMassKg)
	assert.Equal(t, 1333, profile.BestVerticalRate)
	assert.Equal(t, "Vertical KM", profile.SourceActivityLabel)
	require.Len(t, profile.RecentActivities, 1)

	cred, err := creds.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-new", cred.AccessToken)
	assert.Equal(t, "refresh-new", cred.RefreshToken)
	assert.Equal(t, auth.StateValid, manager.State())
}
