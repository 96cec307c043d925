package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sethvargo/go-envconfig"
)

// Config represents the application configuration
type Config struct {
	Strava    StravaConfig    `json:"strava"`
	Metrics   MetricsConfig   `json:"metrics"`
	Objective ObjectiveConfig `json:"objective"`
	Log       LogConfig       `json:"log"`
	Advisor   AdvisorConfig   `json:"advisor"`
}

// StravaConfig holds Strava API credentials and token handling settings
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURL  string `json:"redirect_url"`  // application origin, e.g. "http://localhost:8089"
	GraceSeconds int    `json:"grace_seconds"` // refresh this long before expiry
}

// MetricsConfig holds the tunables of the VAM derivation
type MetricsConfig struct {
	MinElevationGain float64 `json:"min_elevation_gain"` // meters, exclusive
	MinMovingTime    int     `json:"min_moving_time"`    // seconds, exclusive
	RecentLimit      int     `json:"recent_limit"`
	PageSize         int     `json:"page_size"`
	CapacityFactor   float64 `json:"capacity_factor"` // VAM / factor = VO2max estimate
}

// ObjectiveConfig holds the default training objective
type ObjectiveConfig struct {
	TargetVAM int `json:"target_vam"` // m/h
	Weeks     int `json:"weeks"`
}

// LogConfig holds logging preferences
type LogConfig struct {
	File  string `json:"file"`
	Level string `json:"level"`
}

// AdvisorConfig holds the optional generative advice settings
type AdvisorConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// envOverrides are values that may be supplied through the environment.
// Non-empty values win over the config file.
type envOverrides struct {
	ClientID      string `env:"STRAVA_CLIENT_ID"`
	ClientSecret  string `env:"STRAVA_CLIENT_SECRET"`
	RedirectURL   string `env:"STRAVA_REDIRECT_URL"`
	AdvisorAPIKey string `env:"GEMINI_API_KEY"`
	LogLevel      string `env:"VERTICAL_LOG_LEVEL"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

const (
	placeholderClientID     = "YOUR_CLIENT_ID"
	placeholderClientSecret = "YOUR_CLIENT_SECRET"
	maxGraceSeconds         = 3600
)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Strava: StravaConfig{
			RedirectURL:  "http://localhost:8089",
			GraceSeconds: 300,
		},
		Metrics: MetricsConfig{
			MinElevationGain: 20,
			MinMovingTime:    60,
			RecentLimit:      2,
			PageSize:         10,
			CapacityFactor:   14.5,
		},
		Objective: ObjectiveConfig{
			TargetVAM: 1200,
			Weeks:     12,
		},
		Log: LogConfig{
			Level: "info",
		},
		Advisor: AdvisorConfig{
			Model: "gemini-2.0-flash",
		},
	}
}

// Load reads the configuration from ~/.vertical/config.json
func Load(ctx context.Context) (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(ctx, path)
}

// LoadFrom reads the configuration at path, applies defaults for missing
// values and then the environment overlay.
func LoadFrom(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.applyEnv(ctx, envconfig.OsLookuper()); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Strava.RedirectURL == "" {
		c.Strava.RedirectURL = defaults.Strava.RedirectURL
	}
	if c.Strava.GraceSeconds == 0 {
		c.Strava.GraceSeconds = defaults.Strava.GraceSeconds
	}
	if c.Metrics.MinElevationGain == 0 {
		c.Metrics.MinElevationGain = defaults.Metrics.MinElevationGain
	}
	if c.Metrics.MinMovingTime == 0 {
		c.Metrics.MinMovingTime = defaults.Metrics.MinMovingTime
	}
	if c.Metrics.RecentLimit == 0 {
		c.Metrics.RecentLimit = defaults.Metrics.RecentLimit
	}
	if c.Metrics.PageSize == 0 {
		c.Metrics.PageSize = defaults.Metrics.PageSize
	}
	if c.Metrics.CapacityFactor == 0 {
		c.Metrics.CapacityFactor = defaults.Metrics.CapacityFactor
	}
	if c.Objective.TargetVAM == 0 {
		c.Objective.TargetVAM = defaults.Objective.TargetVAM
	}
	if c.Objective.Weeks == 0 {
		c.Objective.Weeks = defaults.Objective.Weeks
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Advisor.Model == "" {
		c.Advisor.Model = defaults.Advisor.Model
	}
}

func (c *Config) applyEnv(ctx context.Context, lookuper envconfig.Lookuper) error {
	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	if env.ClientID != "" {
		c.Strava.ClientID = env.ClientID
	}
	if env.ClientSecret != "" {
		c.Strava.ClientSecret = env.ClientSecret
	}
	if env.RedirectURL != "" {
		c.Strava.RedirectURL = env.RedirectURL
	}
	if env.AdvisorAPIKey != "" {
		c.Advisor.APIKey = env.AdvisorAPIKey
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	return nil
}

// Save writes the configuration to ~/.vertical/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return saveTo(path, cfg)
}

func saveTo(path string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava.ClientID = placeholderClientID
	example.Strava.ClientSecret = placeholderClientSecret

	return saveTo(path, &example)
}

// Validate checks if the config has required fields. The client secret is
// not checked here: it may arrive late through STRAVA_CLIENT_SECRET and is
// enforced when a token exchange is attempted.
func (c *Config) Validate() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == placeholderClientID {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}

	u, err := url.Parse(c.Strava.RedirectURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("strava.redirect_url must be an absolute URL, got %q", c.Strava.RedirectURL)
	}

	if c.Strava.GraceSeconds < 0 || c.Strava.GraceSeconds > maxGraceSeconds {
		return fmt.Errorf("strava.grace_seconds must be between 0 and %d, got %d", maxGraceSeconds, c.Strava.GraceSeconds)
	}

	if c.Metrics.MinElevationGain < 0 {
		return fmt.Errorf("metrics.min_elevation_gain must not be negative, got %v", c.Metrics.MinElevationGain)
	}
	if c.Metrics.MinMovingTime < 0 {
		return fmt.Errorf("metrics.min_moving_time must not be negative, got %d", c.Metrics.MinMovingTime)
	}
	if c.Metrics.RecentLimit < 1 {
		return fmt.Errorf("metrics.recent_limit must be at least 1, got %d", c.Metrics.RecentLimit)
	}
	if c.Metrics.PageSize < 1 || c.Metrics.PageSize > 200 {
		return fmt.Errorf("metrics.page_size must be between 1 and 200, got %d", c.Metrics.PageSize)
	}
	if c.Metrics.CapacityFactor <= 0 {
		return fmt.Errorf("metrics.capacity_factor must be positive, got %v", c.Metrics.CapacityFactor)
	}

	if c.Objective.Weeks < 1 {
		return fmt.Errorf("objective.weeks must be at least 1, got %d", c.Objective.Weeks)
	}
	if c.Objective.TargetVAM <= 0 {
		return fmt.Errorf("objective.target_vam must be positive, got %d", c.Objective.TargetVAM)
	}

	return nil
}

// HasClientSecret reports whether a usable client secret is configured
func (c *Config) HasClientSecret() bool {
	return c.Strava.ClientSecret != "" && c.Strava.ClientSecret != placeholderClientSecret
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".vertical"), nil
}
