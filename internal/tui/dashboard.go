package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"vertical-coach/internal/analysis"
	"vertical-coach/internal/coach"
)

// DashboardModel renders the profile, objective and projection. The App
// fills its fields.
type DashboardModel struct {
	profile    *analysis.AthleteProfile
	objective  coach.Objective
	intensity  float64
	projection []int
	insight    string
	loading    bool
	width      int
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel() DashboardModel {
	return DashboardModel{}
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.profile == nil {
		if m.loading {
			return "\n  Fetching your Strava profile..."
		}
		return "\n  No profile yet. Press 'c' to connect Strava, then 'r' to fetch."
	}

	var sections []string

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.renderProfileCard(), "  ", m.renderObjectiveCard())
	sections = append(sections, topRow)

	if len(m.projection) > 1 {
		sections = append(sections, m.renderProjection())
	}

	sections = append(sections, m.renderRecentActivities())

	if m.insight != "" {
		sections = append(sections, "", insightStyle.Render(m.insight))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderProfileCard() string {
	p := m.profile

	lines := []string{
		renderMetric("Weight", fmt.Sprintf("%.1f kg", p.BodyMassKg)),
		renderMetric("VO2max (est.)", fmt.Sprintf("%d", p.EstimatedVO2Max)),
		renderMetric("Best VAM", fmt.Sprintf("%d m/h", p.BestVerticalRate)),
		renderMetric("From", truncateName(p.SourceActivityLabel, 22)),
	}
	if p.Fallback {
		lines = append(lines, "", warningStyle.Render("Default values, no qualifying climb"))
	}

	return card("Athlete", 44, lines...)
}

func (m DashboardModel) renderObjectiveCard() string {
	lines := []string{
		renderMetric("Target VAM", fmt.Sprintf("%d m/h", m.objective.TargetVAM)),
		renderMetric("Preparation", fmt.Sprintf("%d weeks", m.objective.Weeks)),
		renderMetric("Intensity factor", fmt.Sprintf("%.2f", m.intensity)),
		renderMetric("Gap", fmt.Sprintf("%+d m/h", m.objective.TargetVAM-m.profile.BestVerticalRate)),
	}
	return card("Objective", 38, lines...)
}

func (m DashboardModel) renderProjection() string {
	data := make([]float64, len(m.projection))
	for i, v := range m.projection {
		data[i] = float64(v)
	}

	width := 60
	if m.width > 0 && m.width-16 < width {
		width = m.width - 16
	}
	if width < len(data) {
		width = len(data)
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.Caption(fmt.Sprintf("week 0 to %d", len(data)-1)),
	)

	return card("Projected VAM (m/h)", 0, graph)
}

func (m DashboardModel) renderRecentActivities() string {
	title := "Recent Climbs"

	if len(m.profile.RecentActivities) == 0 {
		return card(title, 0, mutedStyle.Render("No activity above the elevation and duration thresholds"))
	}

	rows := []string{
		tableHeaderStyle.Render(fmt.Sprintf("%-24s  %7s  %8s  %8s", "Name", "D+", "Time", "VAM")),
	}
	for _, a := range m.profile.RecentActivities {
		rows = append(rows, fmt.Sprintf("%-24s  %6dm  %8s  %4d m/h",
			truncateName(a.Name, 24),
			a.ElevationMeters,
			formatDuration(a.DurationSeconds),
			a.VerticalRate,
		))
	}

	return card(title, 0, rows...)
}

func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func truncateName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
