package scene

import (
	"fmt"
	"strings"

	"scenegen/internal/prompts"
)

// Mode selects the instruction a conversation starts with.
type Mode int

const (
	// ModeNext asks for the scene that follows the ones described so far.
	ModeNext Mode = iota
	// ModeControl asks for a scene built from free-form control text.
	ModeControl
)

// SceneInput is a caller's request for the next scene. ControlText, when set,
// takes precedence over the structured fields.
type SceneInput struct {
	Style       string   `json:"style" yaml:"style"`
	Entities    []string `json:"entities" yaml:"entities"`
	SceneName   string   `json:"scene_name,omitempty" yaml:"scene_name,omitempty"`
	Background  string   `json:"background,omitempty" yaml:"background,omitempty"`
	ControlText string   `json:"control_text,omitempty" yaml:"control_text,omitempty"`
}

// Conversation is the running prompt sent as the user message on every
// attempt. It is not safe for concurrent use.
type Conversation struct {
	prompts  *prompts.Prompts
	base     string
	content  string
	sceneNum int
}

func NewConversation(mode Mode, p *prompts.Prompts) *Conversation {
	if p == nil {
		p = prompts.Default()
	}

	base := p.Conversation.NextBase
	if mode == ModeControl {
		base = p.Conversation.ControlBase
	}

	return &Conversation{
		prompts: p,
		base:    base,
		content: base,
	}
}

func (c *Conversation) Content() string {
	return c.content
}

func (c *Conversation) SceneNum() int {
	return c.sceneNum
}

// AppendScene adds a structured scene segment. A background takes precedence
// over a scene name. Nothing changes when the input is rejected.
func (c *Conversation) AppendScene(in SceneInput) error {
	if err := validateSceneInput(in); err != nil {
		return err
	}

	params := prompts.SceneParams{
		Number:   c.sceneNum + 1,
		Style:    in.Style,
		Entities: formatEntities(in.Entities),
	}

	var segment string
	var err error
	if bg := trimDots(in.Background); bg != "" {
		params.Background = bg
		segment, err = c.prompts.RenderSceneBackground(params)
	} else {
		params.SceneName = trimDots(in.SceneName)
		segment, err = c.prompts.RenderSceneName(params)
	}
	if err != nil {
		return fmt.Errorf("render scene segment: %w", err)
	}

	c.sceneNum++
	c.content += "\n" + segment
	return nil
}

// AppendControl replaces any earlier segments with a single control segment.
func (c *Conversation) AppendControl(controlText, style string) error {
	text := trimDots(controlText)
	if text == "" {
		return fmt.Errorf("%w: control text is empty", ErrValidation)
	}

	segment, err := c.prompts.RenderControl(prompts.ControlParams{
		ControlText: text,
		Style:       style,
	})
	if err != nil {
		return fmt.Errorf("render control segment: %w", err)
	}

	c.sceneNum++
	c.content = c.base + "\n" + segment
	return nil
}

// Regenerate checks that there is a scene to generate again. The content is
// left as is.
func (c *Conversation) Regenerate() error {
	if c.sceneNum == 0 {
		return fmt.Errorf("%w: no scene content available to regenerate", ErrState)
	}
	return nil
}

func validateSceneInput(in SceneInput) error {
	if strings.TrimSpace(in.Style) == "" {
		return fmt.Errorf("%w: style is required", ErrValidation)
	}
	if len(nonEmpty(in.Entities)) == 0 {
		return fmt.Errorf("%w: at least one entity is required", ErrValidation)
	}
	if trimDots(in.SceneName) == "" && trimDots(in.Background) == "" {
		return fmt.Errorf("%w: at least one of background or scene name must be provided", ErrValidation)
	}
	return nil
}

func formatEntities(entities []string) string {
	return "[" + strings.Join(nonEmpty(entities), ", ") + "]"
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func trimDots(s string) string {
	return strings.Trim(strings.TrimSpace(s), ".")
}
