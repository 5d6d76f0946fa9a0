package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenegen/internal/scene"
)

func okStep(label string, num int) Step {
	return Step{
		Label: label,
		Run: func(context.Context) (*scene.Result, error) {
			return &scene.Result{
				SceneNum: num,
				Record: &scene.Record{
					SceneName:  []string{"Harbor"},
					Entities:   []string{"boat", "gull"},
					Background: []string{"calm, water"},
				},
				Location: "output/scene_01.json",
			}, nil
		},
	}
}

func TestModelRunsStepsInOrder(t *testing.T) {
	steps := []Step{okStep("first", 1), okStep("second", 2)}
	m := NewModel(context.Background(), steps, nil)

	res, err := steps[0].Run(context.Background())
	require.NoError(t, err)
	next, cmd := m.Update(stepDoneMsg{index: 0, result: res})
	require.NotNil(t, cmd)

	model := next.(Model)
	assert.True(t, model.loading)
	assert.Equal(t, 1, model.current)
	assert.Len(t, model.Results(), 1)

	msg := cmd()
	done, ok := msg.(stepDoneMsg)
	require.True(t, ok)
	assert.Equal(t, 1, done.index)

	next, _ = model.Update(done)
	model = next.(Model)
	assert.False(t, model.loading)
	assert.Len(t, model.Results(), 2)
	assert.NoError(t, model.Err())
	assert.Contains(t, model.View(), "Scene 02: Harbor")
}

func TestModelStopsOnError(t *testing.T) {
	steps := []Step{okStep("first", 1), okStep("second", 2)}
	m := NewModel(context.Background(), steps, nil)

	next, _ := m.Update(stepDoneMsg{index: 0, err: scene.ErrGenerationFailed})
	model := next.(Model)

	assert.True(t, errors.Is(model.Err(), scene.ErrGenerationFailed))
	assert.False(t, model.loading)
	assert.Empty(t, model.Results())
	assert.Contains(t, model.View(), "[ERROR] first")
}

func TestModelQuitKey(t *testing.T) {
	m := NewModel(context.Background(), []Step{okStep("first", 1)}, nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Error(t, next.(Model).Err())
}

func TestSummaryIncludesWarning(t *testing.T) {
	lines := Summary(&scene.Result{
		SceneNum:   3,
		Record:     &scene.Record{SceneName: []string{"Alley"}, Entities: []string{"cat"}, Background: []string{"wet, street"}},
		PersistErr: errors.New("disk full"),
	})
	require.Len(t, lines, 4)
	assert.Equal(t, "Scene 03: Alley", lines[0])
	assert.Equal(t, "[WARN] disk full", lines[3])
}

func TestWrapAndIndent(t *testing.T) {
	assert.Equal(t, " short", wrapAndIndent("short", 20, " "))
	assert.Equal(t, " one two\n three", wrapAndIndent("one two three", 9, " "))
}
