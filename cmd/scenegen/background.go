package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scenegen/internal/scene"
)

var (
	bgStyle     string
	bgEntities  []string
	bgSceneName string
	bgCurrent   string
)

var backgroundCmd = &cobra.Command{
	Use:   "background",
	Short: "Suggest a new background for a named scene",
	Example: `  scenegen background --scene-name "Harbor at dusk" --entities boat,gull --style watercolor \
    --current "grey piers under a low sky"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(cmd.Context(), appOptions{noSave: true})
		if err != nil {
			return err
		}
		defer cleanup()

		gen := a.newSession(scene.ModeNext).Generator()
		background, err := gen.RegenerateBackground(cmd.Context(), scene.SceneInput{
			Style:      bgStyle,
			Entities:   bgEntities,
			SceneName:  bgSceneName,
			Background: bgCurrent,
		})
		if err != nil {
			return err
		}
		fmt.Println(background)
		return nil
	},
}

func init() {
	backgroundCmd.Flags().StringVarP(&bgStyle, "style", "s", "", "Art style")
	backgroundCmd.Flags().StringSliceVarP(&bgEntities, "entities", "e", nil, "Entities (comma separated)")
	backgroundCmd.Flags().StringVarP(&bgSceneName, "scene-name", "n", "", "Scene name")
	backgroundCmd.Flags().StringVar(&bgCurrent, "current", "", "Background to replace")
	rootCmd.AddCommand(backgroundCmd)
}
