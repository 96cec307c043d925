package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vertical-coach/internal/coach"
)

const (
	fieldTarget = iota
	fieldWeeks
)

// ObjectiveModel edits the target VAM and the preparation length
type ObjectiveModel struct {
	inputs  []textinput.Model
	focused int
	err     error
}

// NewObjectiveModel creates the editor prefilled with o
func NewObjectiveModel(o coach.Objective) ObjectiveModel {
	target := textinput.New()
	target.Placeholder = strconv.Itoa(o.TargetVAM)
	target.CharLimit = 4
	target.Width = 8
	target.Prompt = "Target VAM (m/h): "

	weeks := textinput.New()
	weeks.Placeholder = strconv.Itoa(o.Weeks)
	weeks.CharLimit = 2
	weeks.Width = 8
	weeks.Prompt = "Weeks:            "

	m := ObjectiveModel{inputs: []textinput.Model{target, weeks}}
	m.setValues(o)
	return m
}

func (m *ObjectiveModel) setValues(o coach.Objective) {
	m.inputs[fieldTarget].SetValue(strconv.Itoa(o.TargetVAM))
	m.inputs[fieldWeeks].SetValue(strconv.Itoa(o.Weeks))
}

// Focus resets the inputs to o and focuses the first one
func (m *ObjectiveModel) Focus(o coach.Objective) tea.Cmd {
	m.setValues(o)
	m.err = nil
	m.focused = fieldTarget
	m.inputs[fieldWeeks].Blur()
	return m.inputs[fieldTarget].Focus()
}

// Blur removes focus from every input
func (m *ObjectiveModel) Blur() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

// Update handles messages
func (m ObjectiveModel) Update(msg tea.Msg) (ObjectiveModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down", "shift+tab", "up":
			m.inputs[m.focused].Blur()
			m.focused = (m.focused + 1) % len(m.inputs)
			return m, m.inputs[m.focused].Focus()
		case "enter":
			o, err := parseObjective(m.inputs[fieldTarget].Value(), m.inputs[fieldWeeks].Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			return m, func() tea.Msg { return objectiveMsg{objective: o} }
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

// View renders the editor
func (m ObjectiveModel) View() string {
	lines := []string{
		cardTitleStyle.Render("Objective"),
		m.inputs[fieldTarget].View(),
		mutedStyle.Render(fmt.Sprintf("  %d to %d m/h", coach.MinTargetVAM, coach.MaxTargetVAM)),
		"",
		m.inputs[fieldWeeks].View(),
		mutedStyle.Render(fmt.Sprintf("  %d to %d weeks", coach.MinWeeks, coach.MaxWeeks)),
	}
	if m.err != nil {
		lines = append(lines, "", errorStyle.Render(m.err.Error()))
	}
	lines = append(lines, "", statusStyle.Render("tab: next field  enter: apply  esc: back"))

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// parseObjective validates the raw input against the editor bounds
func parseObjective(target, weeks string) (coach.Objective, error) {
	t, err := strconv.Atoi(strings.TrimSpace(target))
	if err != nil {
		return coach.Objective{}, fmt.Errorf("target VAM must be a whole number")
	}
	w, err := strconv.Atoi(strings.TrimSpace(weeks))
	if err != nil {
		return coach.Objective{}, fmt.Errorf("weeks must be a whole number")
	}

	if t < coach.MinTargetVAM || t > coach.MaxTargetVAM {
		return coach.Objective{}, fmt.Errorf("%w: target VAM must be between %d and %d m/h",
			coach.ErrInvalidObjective, coach.MinTargetVAM, coach.MaxTargetVAM)
	}
	if w < coach.MinWeeks || w > coach.MaxWeeks {
		return coach.Objective{}, fmt.Errorf("%w: preparation must be between %d and %d weeks",
			coach.ErrInvalidObjective, coach.MinWeeks, coach.MaxWeeks)
	}

	o := coach.Objective{TargetVAM: t, Weeks: w}
	return o, o.Validate()
}
