package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

type keyHelp struct {
	key  string
	desc string
}

// View renders the help screen
func (m HelpModel) View() string {
	sections := []string{
		cardTitleStyle.Render("Keyboard Shortcuts"),
		m.renderSection("Navigation", []keyHelp{
			{"1", "Dashboard"},
			{"2", "Training plan"},
			{"3", "Edit objective"},
			{"?", "Help (this screen)"},
			{"esc", "Back / close help"},
			{"q", "Quit"},
		}),
		m.renderSection("Strava", []keyHelp{
			{"r", "Fetch latest activities"},
			{"c", "Connect or reconnect (opens the browser)"},
			{"L", "Log out and forget the stored token"},
		}),
		m.renderSection("Plan", []keyHelp{
			{"j / down", "Scroll down"},
			{"k / up", "Scroll up"},
		}),
		m.renderMetricsHelp(),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m HelpModel) renderSection(title string, keys []keyHelp) string {
	lines := []string{"", sectionStyle.Render(title)}
	for _, k := range keys {
		lines = append(lines, "  "+renderKeyHelp(k.key, k.desc))
	}
	return strings.Join(lines, "\n")
}

func (m HelpModel) renderMetricsHelp() string {
	lines := []string{"", sectionStyle.Render("Metrics Explained"), ""}

	metrics := []struct {
		name string
		desc string
	}{
		{"VAM", "Vertical ascent rate: meters climbed per hour of moving time."},
		{"Best VAM", "Highest VAM among recent activities above the elevation and duration thresholds."},
		{"VO2max (est.)", "Best VAM divided by the capacity factor (14.5 by default). A rough estimate."},
		{"Intensity factor", "Target VAM over current VAM, capped at 1.2."},
	}

	for _, metric := range metrics {
		lines = append(lines, "  "+helpKeyStyle.Render(metric.name), "  "+mutedStyle.Render(metric.desc), "")
	}

	return strings.Join(lines, "\n")
}
