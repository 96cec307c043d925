package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vertical-coach/internal/coach"
)

// chromeHeight is the space taken by header, nav and footer
const chromeHeight = 8

// PlanModel is the scrollable training plan screen
type PlanModel struct {
	plan     coach.Plan
	viewport viewport.Model
	ready    bool
}

// NewPlanModel creates a new plan model
func NewPlanModel(width, height int) PlanModel {
	m := PlanModel{}
	if width > 0 && height > chromeHeight {
		m.viewport = viewport.New(width, height-chromeHeight)
		m.ready = true
	}
	return m
}

// SetPlan replaces the displayed plan
func (m *PlanModel) SetPlan(p coach.Plan) {
	m.plan = p
	if m.ready {
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
	}
}

// Update handles messages
func (m PlanModel) Update(msg tea.Msg) (PlanModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		height := msg.Height - chromeHeight
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the plan screen
func (m PlanModel) View() string {
	if len(m.plan.Sessions) == 0 {
		return "\n  No plan yet. Fetch your profile first."
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render(fmt.Sprintf("  %d%%  j/k or arrows: scroll  3: change objective", int(m.viewport.ScrollPercent()*100)))
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m PlanModel) renderContent() string {
	if len(m.plan.Sessions) == 0 {
		return ""
	}

	var lines []string
	lines = append(lines, cardTitleStyle.Render(fmt.Sprintf("Training plan, %d weeks (intensity factor %.2f)",
		m.plan.Weeks(), m.plan.IntensityFactor)))

	for w := 1; w <= m.plan.Weeks(); w++ {
		lines = append(lines, sectionStyle.Render(fmt.Sprintf("Week %d", w)))
		for _, s := range m.plan.Week(w) {
			lines = append(lines,
				fmt.Sprintf("  %s  %s", helpKeyStyle.Render(fmt.Sprintf("%-9s", s.Type)), valueStyle.Render(s.Title)),
				mutedStyle.Render(fmt.Sprintf("             %s · %s", s.Intensity, s.Duration)),
				fmt.Sprintf("             %s", s.Description),
			)
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
