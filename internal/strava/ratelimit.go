package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day

const (
	shortWindow = 15 * time.Minute
	dayWindow   = 24 * time.Hour
)

// RateLimiter tracks Strava's two request windows and spaces out calls
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	// 15-minute window
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	// Daily window
	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	return newRateLimiter(time.Now, 150*time.Millisecond) // ~6.6 req/s max
}

func newRateLimiter(now func() time.Time, minInterval time.Duration) *RateLimiter {
	t := now()
	return &RateLimiter{
		now:           now,
		shortLimit:    100,
		shortResetsAt: t.Add(shortWindow),
		dailyLimit:    1000,
		dailyResetsAt: t.Truncate(dayWindow).Add(dayWindow),
		minInterval:   minInterval,
	}
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetExpired()

	if r.shortUsage >= r.shortLimit {
		if err := r.sleepLocked(ctx, r.shortResetsAt.Sub(r.now())); err != nil {
			return err
		}
		r.shortUsage = 0
		r.shortResetsAt = r.now().Add(shortWindow)
	}

	if r.dailyUsage >= r.dailyLimit {
		if err := r.sleepLocked(ctx, r.dailyResetsAt.Sub(r.now())); err != nil {
			return err
		}
		r.dailyUsage = 0
		r.dailyResetsAt = r.now().Truncate(dayWindow).Add(dayWindow)
	}

	if elapsed := r.now().Sub(r.lastRequest); elapsed < r.minInterval {
		if err := r.sleepLocked(ctx, r.minInterval-elapsed); err != nil {
			return err
		}
	}

	r.shortUsage++
	r.dailyUsage++
	r.lastRequest = r.now()

	return nil
}

func (r *RateLimiter) resetExpired() {
	now := r.now()
	if now.After(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(shortWindow)
	}
	if now.After(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = now.Truncate(dayWindow).Add(dayWindow)
	}
}

// sleepLocked releases the lock for d, or until ctx is done
func (r *RateLimiter) sleepLocked(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	r.mu.Unlock()
	defer r.mu.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage, r.dailyUsage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}
