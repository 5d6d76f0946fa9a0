package scene

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenegen/internal/keywords"
	"scenegen/internal/storage"
)

// wordTagger tags whitespace-separated words from a fixed table.
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

var buildingTagger = wordTagger{"tall": "JJ", "red": "JJ", "building": "NN"}

type failingBackend struct{}

func (failingBackend) Write(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func (failingBackend) Location(name string) string { return name }

func TestArchiveSaveRewritesBackground(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	archive := NewArchive(storage.NewLocalStorage(dir), keywords.NewExtractor(buildingTagger, nil), nil)

	rec := &Record{
		SceneName:  []string{"Downtown"},
		Entities:   []string{"car"},
		Background: []string{"a tall red building"},
	}
	require.NoError(t, archive.Save(context.Background(), rec, 3))

	assert.Equal(t, "tall, red, building", rec.Background[0])

	data, err := os.ReadFile(filepath.Join(dir, "scene_03.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"scene_name\": [")

	var saved Record
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, []string{"tall, red, building"}, saved.Background)
	assert.Equal(t, []string{"Downtown"}, saved.SceneName)
}

func TestArchiveSaveErrors(t *testing.T) {
	archive := NewArchive(failingBackend{}, keywords.NewExtractor(buildingTagger, nil), nil)
	ctx := context.Background()

	err := archive.Save(ctx, &Record{Background: []string{"x"}}, 1)
	assert.ErrorIs(t, err, ErrPersistence)

	err = archive.Save(ctx, &Record{SceneName: []string{"x"}}, 1)
	assert.ErrorIs(t, err, ErrPersistence)

	assert.ErrorIs(t, archive.SaveTranscript(ctx, "content"), ErrPersistence)
}

func TestSceneFileName(t *testing.T) {
	assert.Equal(t, "scene_01.json", SceneFileName(1))
	assert.Equal(t, "scene_12.json", SceneFileName(12))
	assert.Equal(t, "scene_100.json", SceneFileName(100))
}

func newTestSession(t *testing.T, client Completer, backend storage.Backend) *Session {
	t.Helper()
	gen, _ := newTestGenerator(client)
	var archive *Archive
	if backend != nil {
		archive = NewArchive(backend, keywords.NewExtractor(buildingTagger, nil), nil)
	}
	return NewSession("session-1", NewConversation(ModeNext, nil), gen, archive, nil)
}

func TestSessionNextSavesSceneAndTranscript(t *testing.T) {
	dir := t.TempDir()
	client := &stubCompleter{replies: []reply{{content: validResponse}}}
	session := newTestSession(t, client, storage.NewLocalStorage(dir))

	res, err := session.Next(context.Background(), SceneInput{
		Style:      "watercolor",
		Entities:   []string{"boat", "gull"},
		Background: "A harbor",
	})
	require.NoError(t, err)
	require.NoError(t, res.PersistErr)

	assert.Equal(t, 1, res.SceneNum)
	assert.Equal(t, filepath.Join(dir, "scene_01.json"), res.Location)
	assert.Equal(t, "tall, red, building", res.Record.Background[0])

	transcript, err := os.ReadFile(filepath.Join(dir, TranscriptFile))
	require.NoError(t, err)
	assert.Equal(t, session.Conversation().Content(), string(transcript))
	assert.FileExists(t, filepath.Join(dir, "scene_01.json"))
}

func TestSessionControlText(t *testing.T) {
	client := &stubCompleter{replies: []reply{{content: validResponse}}}
	session := newTestSession(t, client, nil)

	res, err := session.Next(context.Background(), SceneInput{ControlText: "A lighthouse in a storm", Style: "oil"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SceneNum)
	assert.Contains(t, client.requests[0].UserPrompt, "Scene information: A lighthouse in a storm; Style: oil")
	assert.Empty(t, res.Location)
}

func TestSessionValidationBeforeRequest(t *testing.T) {
	client := &stubCompleter{replies: []reply{{content: validResponse}}}
	session := newTestSession(t, client, nil)

	_, err := session.Next(context.Background(), SceneInput{Style: "ink", Entities: []string{"fox"}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = session.Regenerate(context.Background())
	assert.ErrorIs(t, err, ErrState)
	assert.Equal(t, 0, client.calls())
}

func TestSessionRegenerateKeepsNumber(t *testing.T) {
	dir := t.TempDir()
	client := &stubCompleter{replies: []reply{{content: validResponse}}}
	session := newTestSession(t, client, storage.NewLocalStorage(dir))
	ctx := context.Background()

	_, err := session.Next(ctx, SceneInput{Style: "ink", Entities: []string{"fox"}, SceneName: "Forest"})
	require.NoError(t, err)

	res, err := session.Regenerate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SceneNum)
	assert.Equal(t, 2, client.calls())
	assert.Equal(t, client.requests[0].UserPrompt, client.requests[1].UserPrompt)
}

func TestSessionPersistenceFailureIsNotFatal(t *testing.T) {
	client := &stubCompleter{replies: []reply{{content: validResponse}}}
	session := newTestSession(t, client, failingBackend{})

	res, err := session.Next(context.Background(), SceneInput{Style: "ink", Entities: []string{"fox"}, SceneName: "Forest"})
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.ErrorIs(t, res.PersistErr, ErrPersistence)
	assert.Empty(t, res.Location)
}

func TestSessionGenerationFailure(t *testing.T) {
	client := &stubCompleter{replies: malformed(10)}
	session := newTestSession(t, client, storage.NewLocalStorage(t.TempDir()))

	res, err := session.Next(context.Background(), SceneInput{Style: "ink", Entities: []string{"fox"}, SceneName: "Forest"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}
