package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"scenegen/internal/debug"
)

// SceneClient drives a scenegen MCP server, either in-process or as a
// `scenegen serve` subprocess.
type SceneClient struct {
	client  *mcp.Client
	session *mcp.ClientSession
	debug   *debug.Logger
}

func NewSceneClient(debug *debug.Logger) *SceneClient {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "scenegen-client",
		Version: "v1.0.0",
	}, nil)

	return &SceneClient{
		client: client,
		debug:  debug,
	}
}

// ConnectCommand starts binary with the serve subcommand and connects over
// its stdio.
func (c *SceneClient) ConnectCommand(ctx context.Context, binary string, args ...string) error {
	cmd := exec.Command(binary, append([]string{"serve"}, args...)...)
	return c.Connect(ctx, mcp.NewCommandTransport(cmd))
}

func (c *SceneClient) Connect(ctx context.Context, transport mcp.Transport) error {
	session, err := c.client.Connect(ctx, transport)
	if err != nil {
		return fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	c.session = session
	c.debug.Println("Connected to scenegen MCP server")
	return nil
}

func (c *SceneClient) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *SceneClient) GenerateScene(ctx context.Context, args GenerateSceneArgs) (*SceneResult, error) {
	return c.callScene(ctx, ToolGenerateScene, args)
}

func (c *SceneClient) RegenerateScene(ctx context.Context) (*SceneResult, error) {
	return c.callScene(ctx, ToolRegenerateScene, RegenerateSceneArgs{})
}

func (c *SceneClient) ExtractKeywords(ctx context.Context, text string) (string, error) {
	return c.call(ctx, ToolExtractKeywords, ExtractKeywordsArgs{Text: text})
}

func (c *SceneClient) ImagePrompt(ctx context.Context, args ImagePromptArgs) (string, error) {
	return c.call(ctx, ToolImagePrompt, args)
}

func (c *SceneClient) ListTools(ctx context.Context) (string, error) {
	if c.session == nil {
		return "", errors.New("not connected")
	}

	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return "", fmt.Errorf("failed to list tools: %w", err)
	}

	descriptions := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		descriptions = append(descriptions, fmt.Sprintf("- %s: %s", tool.Name, tool.Description))
	}
	return strings.Join(descriptions, "\n"), nil
}

func (c *SceneClient) callScene(ctx context.Context, name string, args any) (*SceneResult, error) {
	text, err := c.call(ctx, name, args)
	if err != nil {
		return nil, err
	}

	var res SceneResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return nil, fmt.Errorf("failed to parse %s result: %w", name, err)
	}
	return &res, nil
}

func (c *SceneClient) call(ctx context.Context, name string, args any) (string, error) {
	if c.session == nil {
		return "", errors.New("not connected")
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", name, err)
	}

	text := firstText(result.Content)
	if result.IsError {
		return "", fmt.Errorf("%s: %s", name, text)
	}
	c.debug.Printf("MCP %s result: %d bytes", name, len(text))
	return text, nil
}

func firstText(content []mcp.Content) string {
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
