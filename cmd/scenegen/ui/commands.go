package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func animationTimer() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func runStep(ctx context.Context, step Step, index int) tea.Cmd {
	return func() tea.Msg {
		res, err := step.Run(ctx)
		return stepDoneMsg{index: index, result: res, err: err}
	}
}
