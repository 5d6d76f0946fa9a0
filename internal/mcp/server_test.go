package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenegen/internal/keywords"
	"scenegen/internal/llm"
	"scenegen/internal/scene"
	"scenegen/internal/storage"
)

type fixedCompleter struct {
	content string
	calls   int
}

func (f *fixedCompleter) CompleteJSON(context.Context, llm.JSONCompletionRequest) (string, error) {
	f.calls++
	return f.content, nil
}

func (f *fixedCompleter) CompleteText(context.Context, llm.TextCompletionRequest) (string, error) {
	return f.content, nil
}

type wordTagger map[string]string

func (w wordTagger) Tag(text string) ([]keywords.Token, error) {
	var tokens []keywords.Token
	for _, word := range strings.Fields(text) {
		tag, ok := w[word]
		if !ok {
			tag = "DT"
		}
		tokens = append(tokens, keywords.Token{Text: word, Tag: tag})
	}
	return tokens, nil
}

func connectTestClient(t *testing.T, completer scene.Completer, backend storage.Backend) *SceneClient {
	t.Helper()
	ctx := context.Background()

	extractor := keywords.NewExtractor(wordTagger{"quiet": "JJ", "harbor": "NN", "boats": "NNS"}, nil)
	var archive *scene.Archive
	if backend != nil {
		archive = scene.NewArchive(backend, extractor, nil)
	}
	session := scene.NewSession("mcp-test",
		scene.NewConversation(scene.ModeNext, nil),
		scene.NewGenerator(completer, nil, scene.WithServiceBackoff(0)),
		archive, nil)

	server := NewServer(session, extractor, nil, nil, "test")
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := NewSceneClient(nil)
	require.NoError(t, client.Connect(ctx, clientTransport))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestExtractKeywordsTool(t *testing.T) {
	client := connectTestClient(t, &fixedCompleter{}, nil)

	out, err := client.ExtractKeywords(context.Background(), "a quiet harbor with boats")
	require.NoError(t, err)
	assert.Equal(t, "quiet, harbor, boats", out)
}

func TestListTools(t *testing.T) {
	client := connectTestClient(t, &fixedCompleter{}, nil)

	out, err := client.ListTools(context.Background())
	require.NoError(t, err)
	for _, name := range []string{ToolGenerateScene, ToolRegenerateScene, ToolExtractKeywords, ToolImagePrompt} {
		assert.Contains(t, out, name)
	}
}

func TestGenerateAndRegenerateSceneTools(t *testing.T) {
	completer := &fixedCompleter{content: `{"scene_name": "Harbor", "entities": ["boat"], "background": "a quiet harbor"}`}
	dir := t.TempDir()
	client := connectTestClient(t, completer, storage.NewLocalStorage(dir))
	ctx := context.Background()

	_, err := client.RegenerateScene(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regenerate")

	res, err := client.GenerateScene(ctx, GenerateSceneArgs{
		Style:     "watercolor",
		Entities:  []string{"boat"},
		SceneName: "Harbor",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SceneNum)
	assert.Equal(t, []string{"Harbor"}, res.Record.SceneName)
	assert.Equal(t, []string{"quiet, harbor"}, res.Record.Background)
	assert.True(t, strings.HasSuffix(res.Location, "scene_01.json"))
	assert.Empty(t, res.Warning)

	res, err = client.RegenerateScene(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SceneNum)
	assert.Equal(t, 2, completer.calls)
}

func TestGenerateSceneValidationError(t *testing.T) {
	completer := &fixedCompleter{content: "{}"}
	client := connectTestClient(t, completer, nil)

	_, err := client.GenerateScene(context.Background(), GenerateSceneArgs{Style: "ink", Entities: []string{"fox"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene name")
	assert.Equal(t, 0, completer.calls)
}

func TestImagePromptTool(t *testing.T) {
	client := connectTestClient(t, &fixedCompleter{}, nil)

	out, err := client.ImagePrompt(context.Background(), ImagePromptArgs{
		Style:     "noir",
		Entities:  []string{"car", "cat"},
		SceneName: "Alley",
	})
	require.NoError(t, err)
	assert.Equal(t, "Style: noir. Alley with car, and cat", out)
}
