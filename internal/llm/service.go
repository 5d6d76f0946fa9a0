package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scenegen/internal/debug"
	"scenegen/internal/observability"
)

const (
	DefaultModel       = "gpt-4o"
	DefaultVisionModel = "gpt-4o"

	formatText  = "text"
	formatJSON  = "json"
	formatImage = "image"
)

// Service talks to the OpenAI chat completions API.
type Service struct {
	client      *openai.Client
	model       string
	visionModel string
	debug       *debug.Logger
	tracer      trace.Tracer

	// Models that rejected JSON mode; CompleteJSON sends them plain requests.
	noJSONMode sync.Map
}

type TextCompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Model        string // optional override
}

type JSONCompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Model        string // optional override
}

// ImageCompletionRequest asks a vision model about a PNG image.
type ImageCompletionRequest struct {
	SystemPrompt string
	Prompt       string
	PNG          []byte
	MaxTokens    int
	Model        string // optional override
}

// NewService builds an OpenAI-backed service. SDK-level retries are off so
// callers own the retry policy; opts may override that and the base URL.
func NewService(apiKey, model, visionModel string, debug *debug.Logger, opts ...option.RequestOption) *Service {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	client := openai.NewClient(append(base, opts...)...)

	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if strings.TrimSpace(visionModel) == "" {
		visionModel = DefaultVisionModel
	}

	return &Service{
		client:      &client,
		model:       model,
		visionModel: visionModel,
		debug:       debug,
		tracer:      otel.Tracer("llm-service"),
	}
}

func (s *Service) Model() string {
	return s.model
}

func (s *Service) CompleteText(ctx context.Context, req TextCompletionRequest) (string, error) {
	params := s.newParams(req.Model, s.model, req.MaxTokens,
		openai.SystemMessage(req.SystemPrompt),
		openai.UserMessage(req.UserPrompt),
	)
	return s.complete(ctx, "llm.complete_text", formatText, req.SystemPrompt, req.UserPrompt, params)
}

// CompleteJSON requests a JSON object response. The content is returned
// verbatim; decoding is the caller's job. Models without JSON mode get the
// same request without response_format and the reply is parsed as text.
func (s *Service) CompleteJSON(ctx context.Context, req JSONCompletionRequest) (string, error) {
	params := s.newParams(req.Model, s.model, req.MaxTokens,
		openai.SystemMessage(req.SystemPrompt),
		openai.UserMessage(req.UserPrompt),
	)
	model := string(params.Model)
	if _, unsupported := s.noJSONMode.Load(model); unsupported {
		return s.complete(ctx, "llm.complete_json", formatText, req.SystemPrompt, req.UserPrompt, params)
	}

	jsonParams := params
	jsonParams.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: func() *shared.ResponseFormatJSONObjectParam {
			p := shared.NewResponseFormatJSONObjectParam()
			return &p
		}(),
	}
	content, err := s.complete(ctx, "llm.complete_json", formatJSON, req.SystemPrompt, req.UserPrompt, jsonParams)
	if err == nil || !jsonModeRejected(err) {
		return content, err
	}

	s.debug.Printf("Model %s does not support JSON mode, retrying without response_format", model)
	s.noJSONMode.Store(model, struct{}{})
	return s.complete(ctx, "llm.complete_json", formatText, req.SystemPrompt, req.UserPrompt, params)
}

func jsonModeRejected(err error) bool {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.StatusCode != http.StatusBadRequest {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.Param == "response_format" {
		return true
	}
	return strings.Contains(svcErr.Error(), "response_format")
}

// DescribeImage sends the image inline as a base64 data URL together with
// the prompt to the vision model.
func (s *Service) DescribeImage(ctx context.Context, req ImageCompletionRequest) (string, error) {
	if len(req.PNG) == 0 {
		return "", fmt.Errorf("describe image: empty image")
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.PNG)
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}))

	params := s.newParams(req.Model, s.visionModel, req.MaxTokens, messages...)
	return s.complete(ctx, "llm.describe_image", formatImage, req.SystemPrompt, req.Prompt, params)
}

func (s *Service) newParams(override, fallback string, maxTokens int, messages ...openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	model := fallback
	if strings.TrimSpace(override) != "" {
		model = override
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	return params
}

func (s *Service) complete(ctx context.Context, defaultOp, format, systemPrompt, userPrompt string, params openai.ChatCompletionNewParams) (string, error) {
	operationType := defaultOp
	if opType := getOperationType(ctx); opType != "" {
		operationType = opType
	}
	model := string(params.Model)

	ctx, span := s.tracer.Start(ctx, operationType,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.CreateGenAIAttributes("openai", model, 0, 0)...),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("langfuse.observation.type", "generation"),
		attribute.String("response_format", format),
		attribute.String("scene.operation_type", operationType),
	)
	CopySceneContextToSpan(ctx, span)
	span.AddEvent("gen_ai.user.message", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", userPrompt),
	))

	s.debug.Printf("LLM %s request - model=%s system_prompt_len=%d user_prompt_len=%d", format, model, len(systemPrompt), len(userPrompt))

	startTime := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		s.debug.Printf("LLM %s completion error: %v", format, err)
		return "", wrapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		err := &ServiceError{Provider: "openai", Err: ErrNoChoices, Transient: true}
		span.RecordError(err)
		return "", err
	}

	content := resp.Choices[0].Message.Content
	duration := time.Since(startTime)

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.String("langfuse.observation.input", systemPrompt+"\n\n"+userPrompt),
		attribute.String("langfuse.observation.output", content),
		attribute.String("langfuse.observation.output_format", format),
		attribute.String("langfuse.observation.model.name", model),
	)
	span.AddEvent("gen_ai.choice", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", content),
	))

	s.debug.Printf("LLM %s response - len=%d finish_reason=%s tokens=%d/%d duration=%v",
		format, len(content), resp.Choices[0].FinishReason, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, duration)

	return content, nil
}
