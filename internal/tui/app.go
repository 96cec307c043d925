package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"vertical-coach/internal/analysis"
	"vertical-coach/internal/auth"
	"vertical-coach/internal/coach"
	"vertical-coach/internal/store"
	"vertical-coach/internal/strava"
)

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenPlan
	ScreenObjective
	ScreenHelp
)

// ProfileSource fetches the athlete profile
type ProfileSource interface {
	FetchAthleteProfile(ctx context.Context) (*analysis.AthleteProfile, error)
	LatestSnapshot() (*analysis.AthleteProfile, error)
}

// Session exposes the Strava credential lifecycle
type Session interface {
	State() auth.State
	Expiry() (time.Time, bool)
	Logout() error
}

// InsightSource produces the coaching tip
type InsightSource interface {
	Insight(ctx context.Context, profile analysis.AthleteProfile, objective coach.Objective) string
}

// RateLimits reports the remaining Strava request budget
type RateLimits interface {
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// Deps are the collaborators of the App
type Deps struct {
	Profiles  ProfileSource
	Session   Session
	Connect   func(ctx context.Context) error // runs the browser authorization flow
	Advisor   InsightSource
	Limits    RateLimits // optional
	Objective coach.Objective
}

// App is the root Bubble Tea model
type App struct {
	ctx  context.Context
	deps Deps
	log  *logrus.Entry

	screen     Screen
	prevScreen Screen

	dashboard DashboardModel
	plan      PlanModel
	objective ObjectiveModel
	help      HelpModel

	profile *analysis.AthleteProfile
	goal    coach.Objective

	fetching   bool
	connecting bool

	width  int
	height int

	status    string
	statusErr bool
}

// NewApp creates a new App with all dependencies
func NewApp(ctx context.Context, deps Deps) *App {
	a := &App{
		ctx:       ctx,
		deps:      deps,
		log:       logrus.WithField("component", "tui"),
		screen:    ScreenDashboard,
		goal:      deps.Objective,
		dashboard: NewDashboardModel(),
		plan:      NewPlanModel(0, 0),
		objective: NewObjectiveModel(deps.Objective),
		help:      NewHelpModel(),
	}
	a.dashboard.objective = deps.Objective
	return a
}

type profileMsg struct {
	profile *analysis.AthleteProfile
	err     error
	cached  bool
}

type insightMsg struct {
	text      string
	objective coach.Objective
	rate      int
}

type connectMsg struct{ err error }

type logoutMsg struct{ err error }

// objectiveMsg is sent when the objective editor accepts new values
type objectiveMsg struct{ objective coach.Objective }

// Init loads the cached profile and, when a credential exists, fetches a fresh one
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.loadSnapshot}
	if a.deps.Session.State() != auth.StateUnauthenticated {
		a.fetching = true
		a.dashboard.loading = true
		cmds = append(cmds, a.fetchProfile)
	} else {
		a.setStatus("Not connected to Strava, press c to connect", false)
	}
	return tea.Batch(cmds...)
}

func (a *App) loadSnapshot() tea.Msg {
	profile, err := a.deps.Profiles.LatestSnapshot()
	return profileMsg{profile: profile, err: err, cached: true}
}

func (a *App) fetchProfile() tea.Msg {
	profile, err := a.deps.Profiles.FetchAthleteProfile(a.ctx)
	return profileMsg{profile: profile, err: err}
}

func (a *App) connect() tea.Msg {
	return connectMsg{err: a.deps.Connect(a.ctx)}
}

func (a *App) logout() tea.Msg {
	return logoutMsg{err: a.deps.Session.Logout()}
}

func (a *App) requestInsight() tea.Cmd {
	if a.profile == nil || a.deps.Advisor == nil {
		return nil
	}
	profile, objective := *a.profile, a.goal
	return func() tea.Msg {
		return insightMsg{
			text:      a.deps.Advisor.Insight(a.ctx, profile, objective),
			objective: objective,
			rate:      profile.BestVerticalRate,
		}
	}
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		// The objective editor owns the keyboard until esc
		if a.screen == ScreenObjective {
			if msg.String() == "esc" {
				a.objective.Blur()
				a.screen = ScreenDashboard
				return a, nil
			}
			break
		}

		switch msg.String() {
		case "q":
			return a, tea.Quit
		case "1":
			a.screen = ScreenDashboard
			return a, nil
		case "2":
			a.screen = ScreenPlan
			return a, nil
		case "3":
			a.screen = ScreenObjective
			return a, a.objective.Focus(a.goal)
		case "?":
			if a.screen != ScreenHelp {
				a.prevScreen = a.screen
				a.screen = ScreenHelp
			}
			return a, nil
		case "esc":
			if a.screen == ScreenHelp {
				a.screen = a.prevScreen
			}
			return a, nil
		case "r":
			return a, a.startFetch()
		case "c":
			return a, a.startConnect()
		case "L":
			return a, a.logout
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.dashboard.width = msg.Width
		var cmd tea.Cmd
		a.plan, cmd = a.plan.Update(msg)
		return a, cmd

	case profileMsg:
		return a, a.handleProfile(msg)

	case insightMsg:
		// Drop advice computed for an older profile or objective
		if a.profile != nil && msg.objective == a.goal && msg.rate == a.profile.BestVerticalRate {
			a.dashboard.insight = msg.text
		}
		return a, nil

	case connectMsg:
		a.connecting = false
		if msg.err != nil {
			a.log.WithError(msg.err).Warn("strava authorization failed")
			a.setStatus(describeError(msg.err), true)
			return a, nil
		}
		a.setStatus("Connected to Strava", false)
		return a, a.startFetch()

	case logoutMsg:
		if msg.err != nil {
			a.setStatus(describeError(msg.err), true)
			return a, nil
		}
		a.profile = nil
		a.dashboard.profile = nil
		a.dashboard.insight = ""
		a.plan.SetPlan(coach.Plan{})
		a.setStatus("Logged out, press c to connect", false)
		return a, nil

	case objectiveMsg:
		a.goal = msg.objective
		a.objective.Blur()
		a.screen = ScreenDashboard
		a.recompute()
		a.setStatus(fmt.Sprintf("Objective set to %d m/h in %d weeks", a.goal.TargetVAM, a.goal.Weeks), false)
		return a, a.requestInsight()
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenPlan:
		a.plan, cmd = a.plan.Update(msg)
	case ScreenObjective:
		a.objective, cmd = a.objective.Update(msg)
	}
	return a, cmd
}

func (a *App) startFetch() tea.Cmd {
	if a.fetching {
		return nil
	}
	a.fetching = true
	a.dashboard.loading = true
	a.setStatus("Fetching Strava profile...", false)
	return a.fetchProfile
}

func (a *App) startConnect() tea.Cmd {
	if a.connecting {
		return nil
	}
	a.connecting = true
	a.setStatus("Waiting for Strava authorization in your browser...", false)
	return a.connect
}

func (a *App) handleProfile(msg profileMsg) tea.Cmd {
	if msg.cached {
		// A live result wins over the snapshot
		if msg.err != nil || a.profile != nil {
			if msg.err != nil && !errors.Is(msg.err, store.ErrNoSnapshot) {
				a.log.WithError(msg.err).Warn("loading snapshot")
			}
			return nil
		}
		a.profile = msg.profile
		a.recompute()
		return a.requestInsight()
	}

	a.fetching = false
	a.dashboard.loading = false
	if msg.err != nil {
		a.setStatus(describeError(msg.err), true)
		return nil
	}

	a.profile = msg.profile
	a.recompute()
	if a.profile.Fallback {
		a.setStatus("No qualifying climb in your recent activities, using default values", false)
	} else {
		a.setStatus("Profile updated", false)
	}
	return a.requestInsight()
}

// recompute rebuilds the plan and projection from the profile and objective
func (a *App) recompute() {
	a.dashboard.profile = a.profile
	a.dashboard.objective = a.goal
	if a.profile == nil {
		return
	}

	plan, err := coach.GeneratePlan(*a.profile, a.goal)
	if err != nil {
		a.setStatus(err.Error(), true)
		return
	}
	projection, err := coach.Projection(*a.profile, a.goal)
	if err != nil {
		a.setStatus(err.Error(), true)
		return
	}

	a.dashboard.intensity = plan.IntensityFactor
	a.dashboard.projection = projection
	a.plan.SetPlan(plan)
}

func (a *App) setStatus(s string, isErr bool) {
	a.status = s
	a.statusErr = isErr
}

// describeError maps domain errors to what the user can do about them
func describeError(err error) string {
	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		return "Strava session expired, press c to reconnect"
	case errors.Is(err, auth.ErrNotAuthenticated):
		return "Not connected to Strava, press c to connect"
	case errors.Is(err, auth.ErrConfiguration):
		return fmt.Sprintf("Configuration error: %v", err)
	case errors.Is(err, auth.ErrAuthorizationExchange):
		return fmt.Sprintf("Strava rejected the authorization: %v", err)
	case errors.Is(err, strava.ErrProviderRead):
		return fmt.Sprintf("Could not read from Strava: %v", err)
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// View renders the app
func (a *App) View() string {
	header := headerStyle.Render("Vertical Coach")
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenPlan:
		content = a.plan.View()
	case ScreenObjective:
		content = a.objective.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, a.renderFooter())
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Plan", ScreenPlan},
		{"3", "Objective", ScreenObjective},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}
		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}
	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	var parts []string

	state := a.deps.Session.State()
	session := "Strava: " + state.String()
	if expiry, ok := a.deps.Session.Expiry(); ok && state != auth.StateUnauthenticated {
		session += ", token expires " + humanize.Time(expiry)
	}
	parts = append(parts, session)

	if a.profile != nil && !a.profile.FetchedAt.IsZero() {
		parts = append(parts, "last sync "+humanize.Time(a.profile.FetchedAt))
	}

	if a.deps.Limits != nil {
		short, daily := a.deps.Limits.RateLimitStatus()
		parts = append(parts, fmt.Sprintf("API %d/15min %d/day left", short, daily))
	}

	line := mutedStyle.Render(strings.Join(parts, " · "))
	if a.status == "" {
		return statusStyle.Render(line)
	}

	status := successStyle.Render(a.status)
	if a.statusErr {
		status = errorStyle.Render(a.status)
	}
	return statusStyle.Render(lipgloss.JoinVertical(lipgloss.Left, status, line))
}
