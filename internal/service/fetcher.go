package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vertical-coach/internal/analysis"
	"vertical-coach/internal/config"
	"vertical-coach/internal/store"
	"vertical-coach/internal/strava"
)

// TokenProvider hands out an access token that is valid for the next call
type TokenProvider interface {
	EnsureValidAccessToken(ctx context.Context) (string, error)
}

// ActivityReader performs the protected Strava reads
type ActivityReader interface {
	GetAthlete(ctx context.Context, accessToken string) (*strava.Athlete, error)
	GetActivities(ctx context.Context, accessToken string, perPage int) ([]strava.Activity, error)
}

// SnapshotStore keeps the most recent profile
type SnapshotStore interface {
	SaveSnapshot(payload []byte, fetchedAt time.Time) error
	GetSnapshot() (*store.Snapshot, error)
}

// Fetcher turns the athlete's recent Strava history into an AthleteProfile
type Fetcher struct {
	tokens    TokenProvider
	reader    ActivityReader
	snapshots SnapshotStore
	params    analysis.Params
	pageSize  int
	now       func() time.Time
	log       *logrus.Entry
}

// NewFetcher creates a Fetcher. snapshots may be nil.
func NewFetcher(tokens TokenProvider, reader ActivityReader, snapshots SnapshotStore, cfg config.MetricsConfig) *Fetcher {
	return &Fetcher{
		tokens:    tokens,
		reader:    reader,
		snapshots: snapshots,
		params: analysis.Params{
			Thresholds: analysis.Thresholds{
				MinElevationGain: cfg.MinElevationGain,
				MinMovingTime:    cfg.MinMovingTime,
			},
			RecentLimit:    cfg.RecentLimit,
			CapacityFactor: cfg.CapacityFactor,
		},
		pageSize: cfg.PageSize,
		now:      time.Now,
		log:      logrus.WithField("component", "fetcher"),
	}
}

// FetchAthleteProfile validates the token, reads the athlete and the latest
// activity page concurrently, and reduces them to a profile. Token errors
// are returned as-is; either failed read fails the whole fetch.
func (f *Fetcher) FetchAthleteProfile(ctx context.Context) (*analysis.AthleteProfile, error) {
	token, err := f.tokens.EnsureValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var (
		athlete    *strava.Athlete
		activities []strava.Activity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := f.reader.GetAthlete(gctx, token)
		if err != nil {
			return fmt.Errorf("fetching athlete: %w", err)
		}
		athlete = a
		return nil
	})
	g.Go(func() error {
		list, err := f.reader.GetActivities(gctx, token, f.pageSize)
		if err != nil {
			return fmt.Errorf("fetching activities: %w", err)
		}
		activities = list
		return nil
	})
	if err := g.Wait(); err != nil {
		f.log.WithError(err).Warn("strava read failed")
		return nil, err
	}

	var weight float64
	if athlete != nil {
		weight = athlete.Weight
	}

	profile := analysis.BuildProfile(weight, convertActivities(activities), f.params)
	profile.FetchedAt = f.now()

	f.log.WithFields(logrus.Fields{
		"activities": len(activities),
		"qualifying": len(profile.RecentActivities),
		"best_vam":   profile.BestVerticalRate,
		"fallback":   profile.Fallback,
	}).Info("athlete profile derived")

	f.saveSnapshot(&profile)
	return &profile, nil
}

// LatestSnapshot returns the profile of the last successful fetch.
// Returns store.ErrNoSnapshot if nothing has been fetched yet.
func (f *Fetcher) LatestSnapshot() (*analysis.AthleteProfile, error) {
	if f.snapshots == nil {
		return nil, store.ErrNoSnapshot
	}

	snap, err := f.snapshots.GetSnapshot()
	if err != nil {
		return nil, err
	}

	var profile analysis.AthleteProfile
	if err := json.Unmarshal(snap.Payload, &profile); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	profile.FetchedAt = snap.FetchedAt
	return &profile, nil
}

func (f *Fetcher) saveSnapshot(profile *analysis.AthleteProfile) {
	if f.snapshots == nil {
		return
	}

	payload, err := json.Marshal(profile)
	if err == nil {
		err = f.snapshots.SaveSnapshot(payload, profile.FetchedAt)
	}
	if err != nil {
		f.log.WithError(err).Warn("saving snapshot")
	}
}

// convertActivities keeps only the fields the derivation needs
func convertActivities(activities []strava.Activity) []analysis.Sample {
	samples := make([]analysis.Sample, 0, len(activities))
	for _, a := range activities {
		samples = append(samples, analysis.Sample{
			Name:               a.Name,
			TotalElevationGain: a.TotalElevationGain,
			MovingTime:         a.MovingTime,
		})
	}
	return samples
}
