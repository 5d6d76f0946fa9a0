package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"scenegen/internal/debug"
	"scenegen/internal/prompts"
	"scenegen/internal/scene"
)

const (
	ToolGenerateScene   = "generate_scene"
	ToolRegenerateScene = "regenerate_scene"
	ToolExtractKeywords = "extract_keywords"
	ToolImagePrompt     = "build_image_prompt"
)

type GenerateSceneArgs struct {
	Style       string   `json:"style,omitempty" jsonschema:"art style of the scene"`
	Entities    []string `json:"entities,omitempty" jsonschema:"entities that appear in the scene"`
	SceneName   string   `json:"scene_name,omitempty" jsonschema:"short scene name"`
	Background  string   `json:"background,omitempty" jsonschema:"background description, preferred over scene_name"`
	ControlText string   `json:"control_text,omitempty" jsonschema:"free-form scene description replacing the structured fields"`
}

type RegenerateSceneArgs struct{}

type ExtractKeywordsArgs struct {
	Text string `json:"text" jsonschema:"text to reduce to its nouns and adjectives"`
}

type ImagePromptArgs struct {
	Style      string   `json:"style" jsonschema:"art style"`
	Entities   []string `json:"entities" jsonschema:"entities in the image"`
	SceneName  string   `json:"scene_name,omitempty" jsonschema:"scene name, used when there is no background"`
	Background string   `json:"background,omitempty" jsonschema:"background description"`
}

// SceneResult is the JSON payload returned by the generation tools.
type SceneResult struct {
	SceneNum int           `json:"scene_num"`
	Record   *scene.Record `json:"record"`
	Location string        `json:"location,omitempty"`
	Warning  string        `json:"warning,omitempty"`
}

// Server exposes a scene session as MCP tools. Tool calls share one
// conversation, so they are serialised.
type Server struct {
	mu        sync.Mutex
	session   *scene.Session
	extractor scene.KeywordExtractor
	prompts   *prompts.Prompts
	debug     *debug.Logger
	server    *mcp.Server
}

func NewServer(session *scene.Session, extractor scene.KeywordExtractor, p *prompts.Prompts, debug *debug.Logger, version string) *Server {
	if p == nil {
		p = prompts.Default()
	}

	s := &Server{
		session:   session,
		extractor: extractor,
		prompts:   p,
		debug:     debug,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "scenegen",
			Version: version,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGenerateScene,
		Description: "Generate the next scene. Requires style, entities and a scene name or background, or control text.",
	}, s.generateScene)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolRegenerateScene,
		Description: "Generate the current scene again from the unchanged conversation.",
	}, s.regenerateScene)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolExtractKeywords,
		Description: "Return the nouns and adjectives of a text joined by commas.",
	}, s.extractKeywords)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolImagePrompt,
		Description: "Build a text-to-image prompt for a scene.",
	}, s.imagePrompt)

	return s
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, mcp.NewStdioTransport())
}

// Connect serves a single client over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t)
}

func (s *Server) generateScene(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[GenerateSceneArgs]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	s.debug.Printf("MCP %s: style=%q entities=%v", ToolGenerateScene, args.Style, args.Entities)

	s.mu.Lock()
	res, err := s.session.Next(ctx, scene.SceneInput{
		Style:       args.Style,
		Entities:    args.Entities,
		SceneName:   args.SceneName,
		Background:  args.Background,
		ControlText: args.ControlText,
	})
	s.mu.Unlock()

	return sceneResult(res, err)
}

func (s *Server) regenerateScene(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[RegenerateSceneArgs]) (*mcp.CallToolResultFor[any], error) {
	s.debug.Printf("MCP %s", ToolRegenerateScene)

	s.mu.Lock()
	res, err := s.session.Regenerate(ctx)
	s.mu.Unlock()

	return sceneResult(res, err)
}

func (s *Server) extractKeywords(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ExtractKeywordsArgs]) (*mcp.CallToolResultFor[any], error) {
	return textResult(s.extractor.Extract(params.Arguments.Text)), nil
}

func (s *Server) imagePrompt(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ImagePromptArgs]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	prompt, err := scene.BuildImagePrompt(s.prompts, s.extractor, scene.SceneInput{
		Style:      args.Style,
		Entities:   args.Entities,
		SceneName:  args.SceneName,
		Background: args.Background,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(prompt), nil
}

func sceneResult(res *scene.Result, err error) (*mcp.CallToolResultFor[any], error) {
	if err != nil {
		return errorResult(err), nil
	}

	out := SceneResult{
		SceneNum: res.SceneNum,
		Record:   res.Record,
		Location: res.Location,
	}
	if res.PersistErr != nil {
		out.Warning = res.PersistErr.Error()
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode scene result: %w", err)
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
