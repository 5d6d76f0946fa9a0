package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scenegen/internal/debug"
	"scenegen/internal/keywords"
	"scenegen/internal/scene"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords <text>",
	Short: "Print the nouns and adjectives of a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor := keywords.NewExtractor(nil, debug.NewLogger(verbose, ""))
		fmt.Println(extractor.Extract(strings.Join(args, " ")))
		return nil
	},
}

var (
	promptStyle      string
	promptEntities   []string
	promptSceneName  string
	promptBackground string
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the text-to-image prompt for a scene",
	Example: `  scenegen prompt --style noir --entities car,cat --background "a tall red building at night"
  scenegen prompt --style noir --entities car,cat,dog --scene-name Alley`,
	RunE: runPrompt,
}

func init() {
	promptCmd.Flags().StringVarP(&promptStyle, "style", "s", "", "Art style")
	promptCmd.Flags().StringSliceVarP(&promptEntities, "entities", "e", nil, "Entities (comma separated)")
	promptCmd.Flags().StringVarP(&promptSceneName, "scene-name", "n", "", "Scene name")
	promptCmd.Flags().StringVarP(&promptBackground, "background", "b", "", "Background description")
	rootCmd.AddCommand(keywordsCmd, promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	p, err := loadPrompts(cfg)
	if err != nil {
		return err
	}

	extractor := keywords.NewExtractor(nil, debug.NewLogger(verbose, ""))
	prompt, err := scene.BuildImagePrompt(p, extractor, scene.SceneInput{
		Style:      promptStyle,
		Entities:   promptEntities,
		SceneName:  promptSceneName,
		Background: promptBackground,
	})
	if err != nil {
		return err
	}

	fmt.Println(prompt)
	return nil
}
