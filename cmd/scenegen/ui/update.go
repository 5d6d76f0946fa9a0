package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepDoneMsg:
		return m.handleStepDone(msg)
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)
	case animationTickMsg:
		return m.handleAnimation(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

func (m Model) handleStepDone(msg stepDoneMsg) (tea.Model, tea.Cmd) {
	label := m.steps[msg.index].Label

	if msg.err != nil {
		m.debug.Printf("Step %q failed: %v", label, msg.err)
		m.messages = append(m.messages, fmt.Sprintf("[ERROR] %s: %v", label, msg.err))
		m.err = msg.err
		m.loading = false
		m.cancel()
		return m, tea.Quit
	}

	m.results = append(m.results, msg.result)
	m.messages = append(m.messages, "> "+label)
	m.messages = append(m.messages, Summary(msg.result)...)

	m.current = msg.index + 1
	if m.current >= len(m.steps) {
		m.loading = false
		m.cancel()
		return m, tea.Quit
	}
	return m, runStep(m.ctx, m.steps[m.current], m.current)
}

func (m Model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	return m, nil
}

func (m Model) handleAnimation(msg animationTickMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		m.animationFrame++
		return m, animationTimer()
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancel()
		if m.loading {
			m.err = fmt.Errorf("interrupted during %q", m.steps[m.current].Label)
			m.loading = false
		}
		return m, tea.Quit
	}
	return m, nil
}
