package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"scenegen/internal/debug"
	"scenegen/internal/scene"
)

// Step is one unit of work shown in the progress view.
type Step struct {
	Label string
	Run   func(ctx context.Context) (*scene.Result, error)
}

// Model runs steps one after another and renders their results.
type Model struct {
	ctx            context.Context
	cancel         context.CancelFunc
	steps          []Step
	current        int
	messages       []string
	results        []*scene.Result
	err            error
	width          int
	height         int
	loading        bool
	animationFrame int
	debug          *debug.Logger
}

func NewModel(ctx context.Context, steps []Step, debug *debug.Logger) Model {
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		ctx:     ctx,
		cancel:  cancel,
		steps:   steps,
		loading: len(steps) > 0,
		debug:   debug,
	}
}

func (m Model) Init() tea.Cmd {
	if len(m.steps) == 0 {
		return tea.Quit
	}
	return tea.Batch(runStep(m.ctx, m.steps[0], 0), animationTimer())
}

// Results returns the scenes generated so far, in order.
func (m Model) Results() []*scene.Result {
	return m.results
}

// Err is the error that stopped the run, if any.
func (m Model) Err() error {
	return m.err
}

type animationTickMsg struct{}

type stepDoneMsg struct {
	index  int
	result *scene.Result
	err    error
}
