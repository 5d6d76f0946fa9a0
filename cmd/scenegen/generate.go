package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"scenegen/cmd/scenegen/ui"
	"scenegen/internal/scene"
)

var (
	genStyle      string
	genEntities   []string
	genSceneName  string
	genBackground string
	genControl    string
	genPlan       string
	genOutputDir  string
	genNoSave     bool
	genPlain      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one scene, or every step of a plan",
	Long: `Generate a scene from flags, or run a plan file step by step. Each scene
is written to scene_NN.json in the output directory together with
all_content.txt, the conversation so far.`,
	Example: `  scenegen generate --style watercolor --entities boat,gull --scene-name "Harbor at dusk"
  scenegen generate --style "oil painting" --control "A lighthouse in a storm"
  scenegen generate --plan plan.yaml`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genStyle, "style", "s", "", "Art style of the scene")
	generateCmd.Flags().StringSliceVarP(&genEntities, "entities", "e", nil, "Entities in the scene (comma separated)")
	generateCmd.Flags().StringVarP(&genSceneName, "scene-name", "n", "", "Scene name")
	generateCmd.Flags().StringVarP(&genBackground, "background", "b", "", "Background description (preferred over --scene-name)")
	generateCmd.Flags().StringVar(&genControl, "control", "", "Free-form scene description")
	generateCmd.Flags().StringVarP(&genPlan, "plan", "p", "", "Plan file with a sequence of scenes")
	generateCmd.Flags().StringVarP(&genOutputDir, "output", "o", "", "Output directory (overrides config)")
	generateCmd.Flags().BoolVar(&genNoSave, "no-save", false, "Do not write scene files")
	generateCmd.Flags().BoolVar(&genPlain, "plain", false, "Print results without the progress view")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	plan, err := generationPlan()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx, appOptions{outputDir: genOutputDir, noSave: genNoSave})
	if err != nil {
		return err
	}
	defer cleanup()

	session := a.newSession(a.mode(plan.Control))
	steps := make([]ui.Step, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		steps = append(steps, ui.Step{Label: step.Label(), Run: stepRunner(session, step)})
	}

	a.debug.Printf("Session %s: running %d steps", a.sessionID, len(steps))

	if genPlain {
		return runPlain(ctx, steps)
	}

	final, err := tea.NewProgram(ui.NewModel(ctx, steps, a.debug)).Run()
	if err != nil {
		return fmt.Errorf("progress view: %w", err)
	}
	return final.(ui.Model).Err()
}

func generationPlan() (*Plan, error) {
	if genPlan != "" {
		return loadPlan(genPlan)
	}

	input := scene.SceneInput{
		Style:       genStyle,
		Entities:    genEntities,
		SceneName:   genSceneName,
		Background:  genBackground,
		ControlText: genControl,
	}
	if input.ControlText == "" && input.SceneName == "" && input.Background == "" {
		return nil, errors.New("provide --scene-name, --background, --control or --plan")
	}
	return &Plan{Control: input.ControlText != "", Steps: []PlanStep{{SceneInput: input}}}, nil
}

func stepRunner(session *scene.Session, step PlanStep) func(ctx context.Context) (*scene.Result, error) {
	return func(ctx context.Context) (*scene.Result, error) {
		if step.Regenerate {
			return session.Regenerate(ctx)
		}
		return session.Next(ctx, step.SceneInput)
	}
}

func runPlain(ctx context.Context, steps []ui.Step) error {
	for _, step := range steps {
		fmt.Println(infoStyle.Render("> " + step.Label))

		res, err := step.Run(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", step.Label, err)
		}

		for _, line := range ui.Summary(res) {
			if strings.HasPrefix(line, "[WARN] ") {
				fmt.Println(warnStyle.Render(line))
				continue
			}
			fmt.Println(line)
		}
	}
	return nil
}
