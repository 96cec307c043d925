package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	accentColor  = lipgloss.Color("#FC4C02") // Strava orange
	goodColor    = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#737373") // Neutral gray
	textColor    = lipgloss.Color("#F5F5F5")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(accentColor).
			Padding(0, 1).
			MarginBottom(1)

	navStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginBottom(1)

	navActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	navInactiveStyle = lipgloss.NewStyle().
				Foreground(mutedColor)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 2)

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor)

	insightStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(textColor).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(accentColor).
			PaddingLeft(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(goodColor)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	successStyle = lipgloss.NewStyle().Foreground(goodColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)

	helpKeyStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	helpDescStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// renderMetric renders a label/value pair on one line
func renderMetric(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render(label), valueStyle.Render(value))
}

// renderKeyHelp renders a key binding help item
func renderKeyHelp(key, desc string) string {
	return helpKeyStyle.Render(key) + " " + helpDescStyle.Render(desc)
}

// card wraps content under a title
func card(title string, width int, lines ...string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	style := cardStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, cardTitleStyle.Render(title), body))
}
