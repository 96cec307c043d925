package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"vertical-coach/internal/advisor"
	"vertical-coach/internal/auth"
	"vertical-coach/internal/coach"
	"vertical-coach/internal/config"
	"vertical-coach/internal/logging"
	"vertical-coach/internal/service"
	"vertical-coach/internal/store"
	"vertical-coach/internal/strava"
	"vertical-coach/internal/tui"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() (err error) {
	logout := flag.Bool("logout", false, "forget the stored Strava authorization and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(ctx)
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("You need to add your Strava API credentials.")
		fmt.Println("Get them from: https://www.strava.com/settings/api")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s/config.json\n", configDir)
		return nil
	}

	// The TUI owns the terminal, so logs go to a file
	logFile := cfg.Log.File
	if logFile == "" {
		configDir, err := config.GetConfigDir()
		if err != nil {
			return err
		}
		logFile = filepath.Join(configDir, "vertical.log")
	}
	logCloser := logging.Setup(logging.SetupParams{LogFileName: logFile, LogLevel: cfg.Log.Level})

	dbPath, err := store.DefaultPath()
	if err != nil {
		return err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, db.Close(), logCloser.Close())
	}()

	if !cfg.HasClientSecret() {
		fmt.Println("Warning: no Strava client secret configured (set STRAVA_CLIENT_SECRET).")
		fmt.Println("Connecting and refreshing the Strava session will fail until it is set.")
	}

	secret := ""
	if cfg.HasClientSecret() {
		secret = cfg.Strava.ClientSecret
	}
	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: secret,
		RedirectURL:  cfg.Strava.RedirectURL,
	})

	var interactive atomic.Bool
	interactive.Store(true)
	navigate := func(authURL string) error {
		logrus.WithField("component", "main").Info("opening strava authorization page")
		if interactive.Load() {
			fmt.Printf("Opening Strava in your browser. If nothing happens, visit:\n  %s\n\n", authURL)
		}
		return auth.OpenBrowser(authURL)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	manager := auth.NewManager(oauthCfg, auth.NewCredentialStore(db, auth.DefaultCredentialKey),
		auth.WithHTTPClient(httpClient),
		auth.WithGrace(time.Duration(cfg.Strava.GraceSeconds)*time.Second),
		auth.WithNavigator(navigate),
	)

	if *logout {
		if err := manager.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out of Strava.")
		return nil
	}

	if !manager.IsAuthenticated() {
		fmt.Println("No Strava authorization found. Starting OAuth flow...")
		if err := auth.Authorize(ctx, manager); err != nil {
			return fmt.Errorf("authentication: %w", err)
		}
		fmt.Println("Successfully connected to Strava!")
	}

	// Create services
	stravaClient := strava.NewClient(httpClient)
	fetcher := service.NewFetcher(manager, stravaClient, db, cfg.Metrics)

	app := tui.NewApp(ctx, tui.Deps{
		Profiles: fetcher,
		Session:  manager,
		Connect: func(ctx context.Context) error {
			return auth.Authorize(ctx, manager)
		},
		Advisor: advisor.New(cfg.Advisor),
		Limits:  stravaClient,
		Objective: coach.Objective{
			TargetVAM: cfg.Objective.TargetVAM,
			Weeks:     cfg.Objective.Weeks,
		},
	})

	// Launch TUI
	interactive.Store(false)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}
