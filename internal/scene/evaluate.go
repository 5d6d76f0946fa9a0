package scene

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"scenegen/internal/llm"
	"scenegen/internal/prompts"
)

// ImageDescriber is a vision-capable completion service.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, req llm.ImageCompletionRequest) (string, error)
}

// Evaluator asks a vision model for a quality assessment of a rendered scene.
type Evaluator struct {
	client    ImageDescriber
	prompts   *prompts.Prompts
	model     string
	maxTokens int
}

// NewEvaluator creates an evaluator. An empty model uses the client's vision default.
func NewEvaluator(client ImageDescriber, p *prompts.Prompts, model string, maxTokens int) *Evaluator {
	if p == nil {
		p = prompts.Default()
	}
	return &Evaluator{
		client:    client,
		prompts:   p,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (e *Evaluator) Evaluate(ctx context.Context, img image.Image) (string, error) {
	return e.EvaluateFor(ctx, img, "")
}

// EvaluateFor also tells the model what the image is meant to show.
func (e *Evaluator) EvaluateFor(ctx context.Context, img image.Image, description string) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: image is required", ErrValidation)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	prompt, err := e.prompts.RenderEvaluate(prompts.EvaluateParams{Description: description})
	if err != nil {
		return "", fmt.Errorf("render evaluation prompt: %w", err)
	}

	ctx = llm.WithOperationType(ctx, "scene.evaluate_image")
	content, err := e.client.DescribeImage(ctx, llm.ImageCompletionRequest{
		SystemPrompt: e.prompts.System.Evaluation,
		Prompt:       prompt,
		PNG:          buf.Bytes(),
		MaxTokens:    e.maxTokens,
		Model:        e.model,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrService, err)
	}
	return content, nil
}
