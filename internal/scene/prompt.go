package scene

import (
	"fmt"
	"strings"

	"scenegen/internal/prompts"
)

// BuildImagePrompt renders the text-to-image prompt for a scene. A background
// is reduced to its keywords; without one the scene name is used.
func BuildImagePrompt(p *prompts.Prompts, extractor KeywordExtractor, in SceneInput) (string, error) {
	if p == nil {
		p = prompts.Default()
	}

	entities := nonEmpty(in.Entities)
	if len(entities) == 0 {
		return "", fmt.Errorf("%w: at least one entity is required", ErrValidation)
	}

	params := prompts.ImageParams{Style: in.Style}
	switch {
	case strings.TrimSpace(in.Background) != "":
		params.Background = in.Background
		if extractor != nil {
			params.Background = extractor.Extract(in.Background)
		}
		params.Entities = strings.Join(entities, ", ")
		return p.RenderImageBackground(params)
	case strings.TrimSpace(in.SceneName) != "":
		params.SceneName = strings.TrimSpace(in.SceneName)
		params.Entities = listWithAnd(entities)
		return p.RenderImageSceneName(params)
	default:
		return "", fmt.Errorf("%w: at least one of background or scene name must be provided", ErrValidation)
	}
}

// listWithAnd joins "a, b, and c"; a single item is returned alone.
func listWithAnd(items []string) string {
	if len(items) == 1 {
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
