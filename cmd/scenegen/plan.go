package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"scenegen/internal/scene"
)

// Plan is a scripted sequence of generation steps.
type Plan struct {
	Control bool       `yaml:"control,omitempty"`
	Steps   []PlanStep `yaml:"steps"`
}

// PlanStep generates a new scene, or regenerates the previous one when
// Regenerate is set.
type PlanStep struct {
	scene.SceneInput `yaml:",inline"`
	Regenerate       bool `yaml:"regenerate,omitempty"`
}

func (s PlanStep) Label() string {
	switch {
	case s.Regenerate:
		return "Regenerate previous scene"
	case s.ControlText != "":
		return "Scene from control text"
	case s.Background != "":
		return "Scene with background: " + s.Background
	default:
		return "Scene: " + s.SceneName
	}
}

func loadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan %s has no steps", path)
	}
	return &plan, nil
}

func writePlan(path string, plan *Plan) error {
	data, err := yaml.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write plan %s: %w", path, err)
	}
	return nil
}

var planOutput string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Work with generation plans",
}

var planNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Build a plan file interactively",
	Long: `Ask for a style and a list of scenes, then write them as a plan that
"scenegen generate --plan" can run.`,
	RunE: runPlanNew,
}

func init() {
	planNewCmd.Flags().StringVarP(&planOutput, "output", "o", "plan.yaml", "Where to write the plan")
	planCmd.AddCommand(planNewCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlanNew(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("New scene plan"))

	var style string
	if err := huh.NewInput().
		Title("Art style").
		Placeholder("watercolor").
		Value(&style).
		Validate(requireText("style")).
		Run(); err != nil {
		return err
	}

	plan := &Plan{}
	for {
		step, err := askStep(style, len(plan.Steps)+1)
		if err != nil {
			return err
		}
		plan.Steps = append(plan.Steps, step)

		more := true
		if err := huh.NewConfirm().
			Title("Add another scene?").
			Value(&more).
			Run(); err != nil {
			return err
		}
		if !more {
			break
		}
	}

	if err := writePlan(planOutput, plan); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Wrote %d steps to %s", len(plan.Steps), planOutput)))
	return nil
}

func askStep(style string, number int) (PlanStep, error) {
	var (
		sceneName  string
		background string
		entities   string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Scene %d name", number)).
				Description("Leave empty to describe a background instead").
				Value(&sceneName),
			huh.NewInput().
				Title("Background").
				Description("Takes precedence over the scene name").
				Value(&background),
			huh.NewInput().
				Title("Entities").
				Description("Comma separated").
				Value(&entities).
				Validate(requireText("entities")),
		),
	)
	if err := form.Run(); err != nil {
		return PlanStep{}, err
	}

	if strings.TrimSpace(sceneName) == "" && strings.TrimSpace(background) == "" {
		return PlanStep{}, errors.New("a scene needs a name or a background")
	}

	return PlanStep{SceneInput: scene.SceneInput{
		Style:      style,
		Entities:   splitList(entities),
		SceneName:  strings.TrimSpace(sceneName),
		Background: strings.TrimSpace(background),
	}}, nil
}

func requireText(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
