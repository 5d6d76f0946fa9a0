package scene

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scenegen/internal/debug"
	"scenegen/internal/llm"
	"scenegen/internal/logging"
	"scenegen/internal/observability"
	"scenegen/internal/prompts"
)

const (
	DefaultMaxAttempts    = 10
	DefaultServiceBackoff = time.Second
)

// Completer is the completion service the generator talks to.
type Completer interface {
	CompleteJSON(ctx context.Context, req llm.JSONCompletionRequest) (string, error)
	CompleteText(ctx context.Context, req llm.TextCompletionRequest) (string, error)
}

// AttemptRecorder stores every completion attempt, e.g. logging.CompletionLogger.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a logging.Attempt) error
}

// Generator turns a conversation into a Record, retrying until a response
// parses or the attempt budget runs out.
type Generator struct {
	client      Completer
	prompts     *prompts.Prompts
	recorder    AttemptRecorder
	tokens      *llm.TokenCounter
	debug       *debug.Logger
	tracer      trace.Tracer
	model       string
	maxTokens   int
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

type GeneratorOption func(*Generator)

func WithMaxAttempts(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithServiceBackoff sets the pause after a service error. Parse errors are
// retried without a pause.
func WithServiceBackoff(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d >= 0 {
			g.backoff = d
		}
	}
}

func WithRecorder(r AttemptRecorder) GeneratorOption {
	return func(g *Generator) { g.recorder = r }
}

func WithTokenCounter(c *llm.TokenCounter) GeneratorOption {
	return func(g *Generator) { g.tokens = c }
}

func WithDebugLogger(d *debug.Logger) GeneratorOption {
	return func(g *Generator) { g.debug = d }
}

// WithModel overrides the provider's default model for every request.
func WithModel(model string) GeneratorOption {
	return func(g *Generator) { g.model = model }
}

func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) { g.maxTokens = n }
}

func NewGenerator(client Completer, p *prompts.Prompts, opts ...GeneratorOption) *Generator {
	if p == nil {
		p = prompts.Default()
	}
	g := &Generator{
		client:      client,
		prompts:     p,
		tracer:      otel.Tracer("scene-generator"),
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultServiceBackoff,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate sends the conversation until a response parses. Parse failures
// are retried immediately; service failures are retried after the backoff.
// A service error that is not transient, or an exhausted budget, yields a
// *GenerationError.
func (g *Generator) Generate(ctx context.Context, conv *Conversation) (*Record, error) {
	ctx, span := g.tracer.Start(ctx, "scene.generate", trace.WithAttributes(
		attribute.Int("scene.number", conv.SceneNum()),
		attribute.Int("scene.max_attempts", g.maxAttempts),
	))
	defer span.End()

	ctx = llm.WithSceneContext(ctx, map[string]any{"number": conv.SceneNum()})
	if n := g.tokens.Count(conv.Content()); n > 0 {
		g.debug.Printf("Generating scene %d - conversation tokens=%d", conv.SceneNum(), n)
		span.SetAttributes(attribute.Int("scene.conversation_tokens", n))
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := g.attempt(ctx, conv, attempt)
		if err == nil {
			generationsTotal.WithLabelValues("success").Inc()
			span.SetAttributes(attribute.Int("scene.attempts", attempt))
			return rec, nil
		}
		lastErr = err

		if errors.Is(err, ErrParse) {
			g.debug.Printf("Scene %d attempt %d: could not parse response, retrying: %v", conv.SceneNum(), attempt, err)
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !llm.IsTransient(err) {
			g.debug.Printf("Scene %d attempt %d: service error is not retryable: %v", conv.SceneNum(), attempt, err)
			return nil, g.fail(span, attempt, err)
		}

		g.debug.Printf("Scene %d attempt %d: service error, retrying in %v: %v", conv.SceneNum(), attempt, g.backoff, err)
		if attempt < g.maxAttempts {
			if err := g.sleep(ctx, g.backoff); err != nil {
				return nil, err
			}
		}
	}

	return nil, g.fail(span, g.maxAttempts, lastErr)
}

func (g *Generator) fail(span trace.Span, attempts int, last error) error {
	generationsTotal.WithLabelValues("failed").Inc()
	err := &GenerationError{Attempts: attempts, Last: last}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (g *Generator) attempt(ctx context.Context, conv *Conversation, attempt int) (*Record, error) {
	ctx = llm.WithOperationType(ctx, "scene.attempt")
	ctx = llm.WithSceneContext(ctx, map[string]any{"attempt": attempt})

	req := llm.JSONCompletionRequest{
		SystemPrompt: g.prompts.System.Scene,
		UserPrompt:   conv.Content(),
		MaxTokens:    g.maxTokens,
		Model:        g.model,
	}

	start := time.Now()
	raw, err := g.client.CompleteJSON(ctx, req)
	duration := time.Since(start)
	attemptDuration.Observe(duration.Seconds())

	var rec *Record
	outcome := logging.OutcomeSuccess
	if err != nil {
		outcome = logging.OutcomeServiceError
		err = fmt.Errorf("%w: %w", ErrService, err)
	} else if rec, err = Parse(raw); err != nil {
		outcome = logging.OutcomeParseError
	}
	attemptsTotal.WithLabelValues(outcome).Inc()

	g.record(ctx, logging.Attempt{
		SessionID:    observability.SessionIDFromContext(ctx),
		SceneNum:     conv.SceneNum(),
		Attempt:      attempt,
		Model:        g.modelName(),
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Response:     raw,
		Outcome:      outcome,
		Error:        errString(err),
		Duration:     duration,
	})

	return rec, err
}

func (g *Generator) modelName() string {
	if g.model != "" {
		return g.model
	}
	if m, ok := g.client.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

func (g *Generator) record(ctx context.Context, a logging.Attempt) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.RecordAttempt(ctx, a); err != nil {
		g.debug.Printf("Failed to record attempt %d of scene %d: %v", a.Attempt, a.SceneNum, err)
	}
}

// RegenerateBackground asks for a fresh background for a named scene and
// returns the completion text as is. It makes a single request.
func (g *Generator) RegenerateBackground(ctx context.Context, in SceneInput) (string, error) {
	if strings.TrimSpace(in.SceneName) == "" {
		return "", fmt.Errorf("%w: scene name is required", ErrValidation)
	}
	if len(nonEmpty(in.Entities)) == 0 {
		return "", fmt.Errorf("%w: at least one entity is required", ErrValidation)
	}

	prompt, err := g.prompts.RenderRegenerateBackground(prompts.BackgroundParams{
		SceneName:  in.SceneName,
		Background: trimDots(in.Background),
		Entities:   formatEntities(in.Entities),
		Style:      in.Style,
	})
	if err != nil {
		return "", fmt.Errorf("render background prompt: %w", err)
	}

	ctx = llm.WithOperationType(ctx, "scene.regenerate_background")
	content, err := g.client.CompleteText(ctx, llm.TextCompletionRequest{
		SystemPrompt: g.prompts.System.Background,
		UserPrompt:   prompt,
		MaxTokens:    g.maxTokens,
		Model:        g.model,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrService, err)
	}
	return content, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
