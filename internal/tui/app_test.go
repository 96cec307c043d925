package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vertical-coach/internal/analysis"
	"vertical-coach/internal/auth"
	"vertical-coach/internal/coach"
	"vertical-coach/internal/store"
	"vertical-coach/internal/strava"
)

type fakeProfiles struct {
	profile  *analysis.AthleteProfile
	err      error
	snapshot *analysis.AthleteProfile
	fetches  int
}

func (f *fakeProfiles) FetchAthleteProfile(context.Context) (*analysis.AthleteProfile, error) {
	f.fetches++
	return f.profile, f.err
}

func (f *fakeProfiles) LatestSnapshot() (*analysis.AthleteProfile, error) {
	if f.snapshot == nil {
		return nil, store.ErrNoSnapshot
	}
	return f.snapshot, nil
}

type fakeSession struct {
	state   auth.State
	logouts int
}

func (f *fakeSession) State() auth.State { return f.state }

func (f *fakeSession) Expiry() (time.Time, bool) {
	return time.Now().Add(time.Hour), f.state != auth.StateUnauthenticated
}

func (f *fakeSession) Logout() error {
	f.logouts++
	f.state = auth.StateUnauthenticated
	return nil
}

type staticAdvisor string

func (s staticAdvisor) Insight(context.Context, analysis.AthleteProfile, coach.Objective) string {
	return string(s)
}

var climber = &analysis.AthleteProfile{
	BodyMassKg:          61,
	EstimatedVO2Max:     93,
	BestVerticalRate:    1350,
	SourceActivityLabel: "Vertical KM",
	RecentActivities: []analysis.DerivedActivity{
		{Name: "Vertical KM", ElevationMeters: 1000, DurationSeconds: 2667, VerticalRate: 1350},
	},
	FetchedAt: time.Now(),
}

func newTestApp(profiles *fakeProfiles, session *fakeSession) *App {
	return NewApp(context.Background(), Deps{
		Profiles:  profiles,
		Session:   session,
		Connect:   func(context.Context) error { return nil },
		Advisor:   staticAdvisor("Climb steady."),
		Objective: coach.Objective{TargetVAM: 1500, Weeks: 10},
	})
}

// drain runs cmd and feeds every resulting message back into the app
func drain(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()

	for i := 0; cmd != nil && i < 20; i++ {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				drain(t, a, c)
			}
			return
		}
		_, cmd = a.Update(msg)
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitFetchesWhenAuthenticated(t *testing.T) {
	profiles := &fakeProfiles{profile: climber}
	a := newTestApp(profiles, &fakeSession{state: auth.StateValid})

	drain(t, a, a.Init())

	assert.Equal(t, 1, profiles.fetches)
	require.NotNil(t, a.profile)
	assert.Equal(t, 1350, a.profile.BestVerticalRate)
	assert.Len(t, a.dashboard.projection, 11)
	assert.Equal(t, 30, len(a.plan.plan.Sessions))
	assert.Equal(t, "Climb steady.", a.dashboard.insight)
	assert.Contains(t, a.View(), "Vertical KM")
}

func TestInitWithoutCredentialShowsSnapshot(t *testing.T) {
	profiles := &fakeProfiles{snapshot: climber}
	a := newTestApp(profiles, &fakeSession{state: auth.StateUnauthenticated})

	drain(t, a, a.Init())

	assert.Equal(t, 0, profiles.fetches)
	assert.Same(t, climber, a.profile)
	assert.Contains(t, a.status, "press c to connect")
}

func TestSessionExpiredPromptsReconnect(t *testing.T) {
	profiles := &fakeProfiles{err: &auth.SessionExpiredError{Err: errors.New("invalid_grant")}}
	a := newTestApp(profiles, &fakeSession{state: auth.StateExpiring})

	drain(t, a, a.Init())

	assert.Equal(t, "Strava session expired, press c to reconnect", a.status)
	assert.True(t, a.statusErr)
	assert.False(t, a.fetching)
}

func TestConnectThenFetch(t *testing.T) {
	profiles := &fakeProfiles{profile: climber}
	session := &fakeSession{state: auth.StateUnauthenticated}
	a := newTestApp(profiles, session)
	a.deps.Connect = func(context.Context) error {
		session.state = auth.StateValid
		return nil
	}

	drain(t, a, a.Init())
	_, cmd := a.Update(key("c"))
	drain(t, a, cmd)

	assert.Equal(t, 1, profiles.fetches)
	assert.NotNil(t, a.profile)
}

func TestConnectFailure(t *testing.T) {
	a := newTestApp(&fakeProfiles{}, &fakeSession{})
	a.deps.Connect = func(context.Context) error {
		return fmt.Errorf("%w: missing client secret", auth.ErrConfiguration)
	}

	_, cmd := a.Update(key("c"))
	drain(t, a, cmd)

	assert.Contains(t, a.status, "Configuration error")
	assert.False(t, a.connecting)
}

func TestLogoutClearsProfile(t *testing.T) {
	session := &fakeSession{state: auth.StateValid}
	a := newTestApp(&fakeProfiles{profile: climber}, session)
	drain(t, a, a.Init())

	_, cmd := a.Update(key("L"))
	drain(t, a, cmd)

	assert.Equal(t, 1, session.logouts)
	assert.Nil(t, a.profile)
	assert.Empty(t, a.plan.plan.Sessions)
}

func TestObjectiveEditor(t *testing.T) {
	a := newTestApp(&fakeProfiles{profile: climber}, &fakeSession{state: auth.StateValid})
	drain(t, a, a.Init())

	_, _ = a.Update(key("3"))
	require.Equal(t, ScreenObjective, a.screen)

	// digits go to the input, not to the screen switcher
	a.objective.inputs[fieldTarget].SetValue("")
	_, _ = a.Update(key("1"))
	_, _ = a.Update(key("6"))
	_, _ = a.Update(key("0"))
	_, _ = a.Update(key("0"))
	assert.Equal(t, ScreenObjective, a.screen)

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(t, a, cmd)

	assert.Equal(t, ScreenDashboard, a.screen)
	assert.Equal(t, coach.Objective{TargetVAM: 1600, Weeks: 10}, a.goal)
	assert.Len(t, a.dashboard.projection, 11)
	assert.Equal(t, 1600, a.dashboard.projection[10])
}

func TestParseObjective(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		weeks   string
		want    coach.Objective
		wantErr bool
	}{
		{"valid", "1200", "12", coach.Objective{TargetVAM: 1200, Weeks: 12}, false},
		{"trims spaces", " 900 ", " 4", coach.Objective{TargetVAM: 900, Weeks: 4}, false},
		{"target too low", "300", "12", coach.Objective{}, true},
		{"target too high", "2500", "12", coach.Objective{}, true},
		{"too few weeks", "1200", "2", coach.Objective{}, true},
		{"not a number", "abc", "12", coach.Objective{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseObjective(tt.target, tt.weeks)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&auth.SessionExpiredError{}, "Strava session expired, press c to reconnect"},
		{auth.ErrNotAuthenticated, "Not connected to Strava, press c to connect"},
		{&strava.APIError{Path: "/athlete", StatusCode: 500}, "Could not read from Strava"},
		{context.Canceled, "Cancelled"},
	}

	for _, tt := range tests {
		assert.Contains(t, describeError(tt.err), tt.want)
	}
}
