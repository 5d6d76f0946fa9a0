package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/conneroisu/groq-go"

	"scenegen/internal/debug"
)

const DefaultGroqModel = "llama-3.3-70b-versatile"

// GroqService is a text-only completion provider backed by Groq. It has no
// vision model, so image evaluation always goes through Service. MaxTokens
// on requests is ignored; Groq applies the model's own limit.
type GroqService struct {
	client *groq.Client
	model  groq.ChatModel
	debug  *debug.Logger
}

// NewGroqService creates a Groq provider. An empty baseURL uses the public
// Groq endpoint.
func NewGroqService(apiKey, model, baseURL string, debug *debug.Logger) (*GroqService, error) {
	var client *groq.Client
	var err error
	if baseURL != "" {
		client, err = groq.NewClient(apiKey, groq.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	} else {
		client, err = groq.NewClient(apiKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGroqModel
	}

	return &GroqService{
		client: client,
		model:  groq.ChatModel(model),
		debug:  debug,
	}, nil
}

func (g *GroqService) Model() string {
	return string(g.model)
}

func (g *GroqService) CompleteText(ctx context.Context, req TextCompletionRequest) (string, error) {
	return g.complete(ctx, req.Model, req.SystemPrompt, req.UserPrompt, false)
}

func (g *GroqService) CompleteJSON(ctx context.Context, req JSONCompletionRequest) (string, error) {
	return g.complete(ctx, req.Model, req.SystemPrompt, req.UserPrompt, true)
}

func (g *GroqService) complete(ctx context.Context, override, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	model := g.model
	if strings.TrimSpace(override) != "" {
		model = groq.ChatModel(override)
	}

	req := groq.ChatCompletionRequest{
		Model: model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: systemPrompt},
			{Role: groq.RoleUser, Content: userPrompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &groq.ChatResponseFormat{Type: "json_object"}
	}

	g.debug.Printf("Groq request - model=%s json=%t user_prompt_len=%d", model, jsonMode, len(userPrompt))

	resp, err := g.client.ChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ServiceError{Provider: "groq", Transient: true, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ServiceError{Provider: "groq", Transient: true, Err: ErrNoChoices}
	}

	content := resp.Choices[0].Message.Content
	g.debug.Printf("Groq response - len=%d", len(content))
	return content, nil
}
