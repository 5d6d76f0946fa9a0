package scene

import (
	"context"
	"errors"

	"scenegen/internal/debug"
	"scenegen/internal/observability"
)

// Result is a generated scene together with where it was written.
type Result struct {
	Record   *Record
	SceneNum int
	Location string
	// PersistErr is set when the scene or transcript could not be written.
	// The scene itself was still generated.
	PersistErr error
}

// Session ties a conversation to a generator and an optional archive. It is
// not safe for concurrent use.
type Session struct {
	id      string
	conv    *Conversation
	gen     *Generator
	archive *Archive
	debug   *debug.Logger
}

// NewSession creates a session. A nil archive disables saving.
func NewSession(id string, conv *Conversation, gen *Generator, archive *Archive, debug *debug.Logger) *Session {
	return &Session{
		id:      id,
		conv:    conv,
		gen:     gen,
		archive: archive,
		debug:   debug,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Conversation() *Conversation {
	return s.conv
}

func (s *Session) Generator() *Generator {
	return s.gen
}

// Next appends the request to the conversation and generates the scene.
// Control text, when present, replaces the structured fields.
func (s *Session) Next(ctx context.Context, in SceneInput) (*Result, error) {
	var err error
	if in.ControlText != "" {
		err = s.conv.AppendControl(in.ControlText, in.Style)
	} else {
		err = s.conv.AppendScene(in)
	}
	if err != nil {
		return nil, err
	}
	return s.generate(ctx)
}

// Regenerate generates the current scene again from the unchanged conversation.
func (s *Session) Regenerate(ctx context.Context) (*Result, error) {
	if err := s.conv.Regenerate(); err != nil {
		return nil, err
	}
	return s.generate(ctx)
}

func (s *Session) generate(ctx context.Context) (*Result, error) {
	if s.id != "" {
		ctx = observability.WithSessionID(ctx, s.id)
	}

	rec, err := s.gen.Generate(ctx, s.conv)
	if err != nil {
		return nil, err
	}

	res := &Result{Record: rec, SceneNum: s.conv.SceneNum()}
	s.persist(ctx, res)
	return res, nil
}

func (s *Session) persist(ctx context.Context, res *Result) {
	if s.archive == nil {
		return
	}

	var errs []error
	if err := s.archive.Save(ctx, res.Record, res.SceneNum); err != nil {
		errs = append(errs, err)
	} else {
		res.Location = s.archive.Location(SceneFileName(res.SceneNum))
	}
	if err := s.archive.SaveTranscript(ctx, s.conv.Content()); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		res.PersistErr = errors.Join(errs...)
		persistenceFailures.Add(float64(len(errs)))
		s.debug.Printf("Scene %d generated but not fully saved: %v", res.SceneNum, res.PersistErr)
	}
}
