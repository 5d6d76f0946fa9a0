package prompts

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const responseFormat = `Please use the format below (the output should be a JSON object):
{"scene_name": ["scene_name"], "entities": ["entity_1", "entity_2", "entity_3"], "background": ["background prompt"]}`

type Prompts struct {
	System       SystemPrompts       `yaml:"system"`
	Conversation ConversationPrompts `yaml:"conversation"`
	Image        ImagePrompts        `yaml:"image"`
}

type SystemPrompts struct {
	Scene      string `yaml:"scene"`
	Background string `yaml:"background"`
	Evaluation string `yaml:"evaluation"`
}

type ConversationPrompts struct {
	NextBase             string `yaml:"next_base"`
	ControlBase          string `yaml:"control_base"`
	SceneBackground      string `yaml:"scene_background"`
	SceneName            string `yaml:"scene_name"`
	Control              string `yaml:"control"`
	RegenerateBackground string `yaml:"regenerate_background"`
}

type ImagePrompts struct {
	Background string `yaml:"background"`
	SceneName  string `yaml:"scene_name"`
	Evaluate   string `yaml:"evaluate"`
}

type SceneParams struct {
	Number     int
	Style      string
	Entities   string
	SceneName  string
	Background string
}

type ControlParams struct {
	ControlText string
	Style       string
}

type BackgroundParams struct {
	SceneName  string
	Background string
	Entities   string
	Style      string
}

type ImageParams struct {
	Style      string
	Entities   string
	SceneName  string
	Background string
}

type EvaluateParams struct {
	Description string
}

// Default returns the built-in prompt set.
func Default() *Prompts {
	return &Prompts{
		System: SystemPrompts{
			Scene:      "You are an intelligent scene generator. Generate a background without entities. " + responseFormat,
			Background: "You are an intelligent scene generator. Generate a background prompt without mentioning entities. " + responseFormat,
			Evaluation: "You are an art director reviewing frames produced by an image generation pipeline.",
		},
		Conversation: ConversationPrompts{
			NextBase:             "Please generate next scene based on the given scene/scenes information:",
			ControlBase:          "Please generate scene description based on the given information:",
			SceneBackground:      "Scene {{.Number}}: {Background: {{.Background}} . Entities: {{.Entities}}; Style: {{.Style}}}",
			SceneName:            "Scene {{.Number}}: {Scene name: {{.SceneName}} . Entities: {{.Entities}}; Style: {{.Style}}}",
			Control:              "Scene information: {{.ControlText}}; Style: {{.Style}}",
			RegenerateBackground: "Please generate a brief scene background with Scene name: {{.SceneName}}; {{if .Background}}Background: {{.Background}}; {{end}}Entities: {{.Entities}}; Style: {{.Style}}",
		},
		Image: ImagePrompts{
			Background: "Style: {{.Style}}. Entities: {{.Entities}}. Background: {{.Background}}",
			SceneName:  "Style: {{.Style}}. {{.SceneName}} with {{.Entities}}",
			Evaluate:   "Evaluate this generated image. Say whether it is blurry, whether the composition is coherent, and list any visible artifacts.{{if .Description}} The image should depict: {{.Description}}{{end}}",
		},
	}
}

// LoadFrom overlays the YAML file at path on top of Default, so a file only
// needs the prompts it changes.
func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	return p, nil
}

func (p *Prompts) RenderSceneBackground(params SceneParams) (string, error) {
	return render(p.Conversation.SceneBackground, params)
}

func (p *Prompts) RenderSceneName(params SceneParams) (string, error) {
	return render(p.Conversation.SceneName, params)
}

func (p *Prompts) RenderControl(params ControlParams) (string, error) {
	return render(p.Conversation.Control, params)
}

func (p *Prompts) RenderRegenerateBackground(params BackgroundParams) (string, error) {
	return render(p.Conversation.RegenerateBackground, params)
}

func (p *Prompts) RenderImageBackground(params ImageParams) (string, error) {
	return render(p.Image.Background, params)
}

func (p *Prompts) RenderImageSceneName(params ImageParams) (string, error) {
	return render(p.Image.SceneName, params)
}

func (p *Prompts) RenderEvaluate(params EvaluateParams) (string, error) {
	return render(p.Image.Evaluate, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
