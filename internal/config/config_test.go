package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8089", cfg.Strava.RedirectURL)
	assert.Equal(t, 300, cfg.Strava.GraceSeconds)

	assert.Equal(t, 20.0, cfg.Metrics.MinElevationGain)
	assert.Equal(t, 60, cfg.Metrics.MinMovingTime)
	assert.Equal(t, 2, cfg.Metrics.RecentLimit)
	assert.Equal(t, 10, cfg.Metrics.PageSize)
	assert.Equal(t, 14.5, cfg.Metrics.CapacityFactor)

	assert.Equal(t, 1200, cfg.Objective.TargetVAM)
	assert.Equal(t, 12, cfg.Objective.Weeks)

	// Strava credentials should be empty by default
	assert.Empty(t, cfg.Strava.ClientID)
	assert.Empty(t, cfg.Strava.ClientSecret)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Strava.ClientID = "12345"
		return cfg
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "missing secret is not a validation error",
			mutate: func(c *Config) { c.Strava.ClientSecret = "" },
		},
		{
			name:        "empty client ID",
			mutate:      func(c *Config) { c.Strava.ClientID = "" },
			errContains: "client_id",
		},
		{
			name:        "placeholder client ID",
			mutate:      func(c *Config) { c.Strava.ClientID = "YOUR_CLIENT_ID" },
			errContains: "client_id",
		},
		{
			name:        "relative redirect",
			mutate:      func(c *Config) { c.Strava.RedirectURL = "/callback" },
			errContains: "redirect_url",
		},
		{
			name:        "grace too large",
			mutate:      func(c *Config) { c.Strava.GraceSeconds = 7200 },
			errContains: "grace_seconds",
		},
		{
			name:        "zero recent limit",
			mutate:      func(c *Config) { c.Metrics.RecentLimit = 0 },
			errContains: "recent_limit",
		},
		{
			name:        "page size above provider max",
			mutate:      func(c *Config) { c.Metrics.PageSize = 500 },
			errContains: "page_size",
		},
		{
			name:        "negative capacity factor",
			mutate:      func(c *Config) { c.Metrics.CapacityFactor = -1 },
			errContains: "capacity_factor",
		},
		{
			name:        "zero weeks",
			mutate:      func(c *Config) { c.Objective.Weeks = 0 },
			errContains: "weeks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	t.Setenv("STRAVA_CLIENT_ID", "")
	t.Setenv("STRAVA_CLIENT_SECRET", "")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"strava": {"client_id": "42", "client_secret": "s3cret"},
		"metrics": {"recent_limit": 3, "capacity_factor": 14.2}
	}`), 0600))

	cfg, err := LoadFrom(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "42", cfg.Strava.ClientID)
	assert.Equal(t, "s3cret", cfg.Strava.ClientSecret)
	assert.Equal(t, 3, cfg.Metrics.RecentLimit)
	assert.Equal(t, 14.2, cfg.Metrics.CapacityFactor)
	assert.Equal(t, 10, cfg.Metrics.PageSize)
	assert.Equal(t, 300, cfg.Strava.GraceSeconds)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestLoadFromInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	_, err := LoadFrom(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestApplyEnvOverridesFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strava.ClientID = "from-file"
	cfg.Strava.ClientSecret = "file-secret"

	err := cfg.applyEnv(context.Background(), envconfig.MapLookuper(map[string]string{
		"STRAVA_CLIENT_SECRET": "env-secret",
		"GEMINI_API_KEY":       "gem",
		"VERTICAL_LOG_LEVEL":   "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Strava.ClientID)
	assert.Equal(t, "env-secret", cfg.Strava.ClientSecret)
	assert.Equal(t, "gem", cfg.Advisor.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestHasClientSecret(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.HasClientSecret())

	cfg.Strava.ClientSecret = "YOUR_CLIENT_SECRET"
	assert.False(t, cfg.HasClientSecret())

	cfg.Strava.ClientSecret = "abc123secret"
	assert.True(t, cfg.HasClientSecret())
}
