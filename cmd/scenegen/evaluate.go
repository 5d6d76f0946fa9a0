package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"scenegen/internal/config"
	"scenegen/internal/scene"
)

var evalDescription string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <image>",
	Short: "Ask a vision model to assess a generated image",
	Long: `Send a PNG or JPEG image to the configured vision model and print its
assessment of blur, composition and artifacts. Requires OPENAI_API_KEY even
when the text provider is Groq.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evalDescription, "description", "d", "", "What the image is meant to show")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	img, err := decodeImage(args[0])
	if err != nil {
		return err
	}

	a, cleanup, err := newApp(cmd.Context(), appOptions{noSave: true})
	if err != nil {
		return err
	}
	defer cleanup()

	if a.openai == nil {
		return fmt.Errorf("%w: image evaluation needs OPENAI_API_KEY", config.ErrMissingCredential)
	}

	evaluator := scene.NewEvaluator(a.openai, a.prompts, a.cfg.LLM.VisionModel, a.cfg.LLM.MaxTokens)
	fmt.Println(infoStyle.Render("Evaluating " + args[0] + "..."))

	out, err := evaluator.EvaluateFor(cmd.Context(), img, evalDescription)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}
