package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"scenegen/internal/config"
	"scenegen/internal/debug"
	"scenegen/internal/keywords"
	"scenegen/internal/llm"
	"scenegen/internal/logging"
	"scenegen/internal/observability"
	"scenegen/internal/prompts"
	"scenegen/internal/scene"
	"scenegen/internal/storage"
)

// app holds everything a generation command needs. Build it with newApp and
// release it with the returned cleanup.
type app struct {
	cfg         *config.Config
	debug       *debug.Logger
	prompts     *prompts.Prompts
	completer   scene.Completer
	openai      *llm.Service
	completions *logging.CompletionLogger
	backend     storage.Backend
	extractor   *keywords.Extractor
	tokens      *llm.TokenCounter
	sessionID   string
}

type appOptions struct {
	outputDir string
	noSave    bool
}

func newApp(ctx context.Context, opts appOptions) (*app, func(), error) {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return nil, nil, err
	}

	debugLogger := debug.NewLogger(cfg.Debug || verbose, cfg.Logging.DebugFile)
	cleanups := []func(){func() { _ = debugLogger.Close() }}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	tracing := false
	tracerProvider, err := observability.InitTracing(ctx, observability.LoadConfigFromEnv(version))
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else if tracerProvider.IsEnabled() {
		tracing = true
		debugLogger.Println("OpenTelemetry tracing initialized and enabled")
		cleanups = append(cleanups, func() { _ = tracerProvider.Shutdown(context.Background()) })
	} else {
		debugLogger.Println("OpenTelemetry tracing disabled (set OTEL_TRACES_ENABLED=true to enable)")
	}

	p, err := loadPrompts(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	a := &app{
		cfg:       cfg,
		debug:     debugLogger,
		prompts:   p,
		extractor: keywords.NewExtractor(nil, debugLogger),
		sessionID: uuid.New().String(),
	}

	if cfg.OpenAIAPIKey != "" {
		a.openai = llm.NewService(cfg.OpenAIAPIKey, cfg.LLM.Model, cfg.LLM.VisionModel, debugLogger)
	}
	switch cfg.Provider {
	case config.ProviderGroq:
		groqService, err := llm.NewGroqService(cfg.GroqAPIKey, cfg.LLM.Model, "", debugLogger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		a.completer = groqService
	default:
		a.completer = a.openai
	}
	debugLogger.Printf("Using provider %s with model %s", cfg.Provider, cfg.LLM.Model)

	a.tokens = newTokenCounter(cfg.LLM.Model, debugLogger, tracing)

	completions, err := logging.NewCompletionLogger(cfg.Logging.CompletionDB)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize completion logger: %w", err)
	}
	a.completions = completions
	cleanups = append(cleanups, func() { _ = completions.Close() })

	if !opts.noSave && !cfg.Generation.DisableSave {
		backend, closeBackend, err := newBackend(ctx, cfg, opts.outputDir, a.sessionID)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		a.backend = backend
		if closeBackend != nil {
			cleanups = append(cleanups, closeBackend)
		}
	}

	return a, cleanup, nil
}

// newTokenCounter returns nil unless debug logging or tracing will report
// the counts. Loading an encoding may download its BPE file.
func newTokenCounter(model string, debugLogger *debug.Logger, tracing bool) *llm.TokenCounter {
	if !debugLogger.Enabled() && !tracing {
		return nil
	}
	counter, err := llm.NewTokenCounter(model)
	if err != nil {
		debugLogger.Printf("Token counting disabled: %v", err)
		return nil
	}
	return counter
}

func loadPrompts(cfg *config.Config) (*prompts.Prompts, error) {
	if cfg.PromptsPath == "" {
		return prompts.Default(), nil
	}
	p, err := prompts.LoadFrom(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return p, nil
}

// newBackend picks GCS when enabled, the local output directory otherwise.
// GCS objects go under <prefix>/<session id>.
func newBackend(ctx context.Context, cfg *config.Config, outputDir, sessionID string) (storage.Backend, func(), error) {
	if cfg.GCS.Enabled {
		gcs, err := storage.NewGCSStorage(ctx, cfg.GCS.Bucket, filepath.ToSlash(filepath.Join(cfg.GCS.Prefix, sessionID)))
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	}

	if outputDir == "" {
		outputDir = cfg.Output.Dir
	}
	return storage.NewLocalStorage(outputDir), nil, nil
}

func (a *app) newSession(mode scene.Mode) *scene.Session {
	gen := scene.NewGenerator(a.completer, a.prompts,
		scene.WithMaxAttempts(a.cfg.Generation.MaxAttempts),
		scene.WithServiceBackoff(a.cfg.Generation.ServiceBackoff),
		scene.WithMaxTokens(a.cfg.LLM.MaxTokens),
		scene.WithRecorder(a.completions),
		scene.WithTokenCounter(a.tokens),
		scene.WithDebugLogger(a.debug),
	)

	var archive *scene.Archive
	if a.backend != nil {
		archive = scene.NewArchive(a.backend, a.extractor, a.debug)
	}

	return scene.NewSession(a.sessionID, scene.NewConversation(mode, a.prompts), gen, archive, a.debug)
}

func (a *app) mode(control bool) scene.Mode {
	if control || a.cfg.Generation.ControlMode {
		return scene.ModeControl
	}
	return scene.ModeNext
}
