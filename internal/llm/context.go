package llm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scenegen/internal/observability"
)

type contextKey string

const (
	operationTypeKey contextKey = "operation_type"
	sceneContextKey  contextKey = "scene_context"
)

func WithOperationType(ctx context.Context, opType string) context.Context {
	return context.WithValue(ctx, operationTypeKey, opType)
}

// WithSceneContext merges attrs into any scene context already on ctx.
func WithSceneContext(ctx context.Context, attrs map[string]any) context.Context {
	if existing, ok := ctx.Value(sceneContextKey).(map[string]any); ok && existing != nil {
		merged := make(map[string]any, len(existing)+len(attrs))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range attrs {
			merged[k] = v
		}
		return context.WithValue(ctx, sceneContextKey, merged)
	}
	return context.WithValue(ctx, sceneContextKey, attrs)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return observability.WithSessionID(ctx, sessionID)
}

func getOperationType(ctx context.Context) string {
	if opType, ok := ctx.Value(operationTypeKey).(string); ok {
		return opType
	}
	return ""
}

func getSceneContext(ctx context.Context) map[string]any {
	if sceneCtx, ok := ctx.Value(sceneContextKey).(map[string]any); ok {
		return sceneCtx
	}
	return nil
}

// CopySceneContextToSpan attaches scene context and session id attributes to an existing span.
func CopySceneContextToSpan(ctx context.Context, span trace.Span) {
	if span == nil {
		return
	}
	if sid := observability.SessionIDFromContext(ctx); sid != "" {
		span.SetAttributes(
			attribute.String("langfuse.session.id", sid),
			attribute.String("session.id", sid),
		)
	}
	for k, v := range getSceneContext(ctx) {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String("scene."+k, val))
		case int:
			span.SetAttributes(attribute.Int("scene."+k, val))
		case []string:
			span.SetAttributes(attribute.StringSlice("scene."+k, val))
		}
	}
}
