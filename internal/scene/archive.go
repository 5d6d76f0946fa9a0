package scene

import (
	"context"
	"encoding/json"
	"fmt"

	"scenegen/internal/debug"
	"scenegen/internal/storage"
)

const TranscriptFile = "all_content.txt"

// KeywordExtractor reduces free text to its keywords.
type KeywordExtractor interface {
	Extract(text string) string
}

// Archive writes generated scenes and the conversation transcript to a
// storage backend.
type Archive struct {
	backend   storage.Backend
	extractor KeywordExtractor
	debug     *debug.Logger
}

func NewArchive(backend storage.Backend, extractor KeywordExtractor, debug *debug.Logger) *Archive {
	return &Archive{
		backend:   backend,
		extractor: extractor,
		debug:     debug,
	}
}

func SceneFileName(sceneNum int) string {
	return fmt.Sprintf("scene_%02d.json", sceneNum)
}

// Location reports where a file written by the archive ends up.
func (a *Archive) Location(name string) string {
	return a.backend.Location(name)
}

// Save replaces rec.Background[0] with its keywords and writes the record as
// scene_NN.json. The record is modified in place.
func (a *Archive) Save(ctx context.Context, rec *Record, sceneNum int) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrPersistence)
	}
	if len(rec.Background) == 0 {
		return fmt.Errorf("%w: record has no background", ErrPersistence)
	}

	if a.extractor != nil {
		rec.Background[0] = a.extractor.Extract(rec.Background[0])
	}

	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode scene %d: %v", ErrPersistence, sceneNum, err)
	}

	name := SceneFileName(sceneNum)
	if err := a.backend.Write(ctx, name, data); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, name, err)
	}

	a.debug.Printf("Saved scene %d to %s", sceneNum, a.backend.Location(name))
	return nil
}

// SaveTranscript overwrites the transcript with the full conversation.
func (a *Archive) SaveTranscript(ctx context.Context, content string) error {
	if err := a.backend.Write(ctx, TranscriptFile, []byte(content)); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, TranscriptFile, err)
	}
	return nil
}
