package scene

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one generated scene. Every field is a list once parsed.
type Record struct {
	SceneName  []string `json:"scene_name"`
	Entities   []string `json:"entities"`
	Background []string `json:"background"`
}

// Parse decodes a completion into a Record. Input must be strict JSON: an
// object, or an array whose first element is the object. Scalar string fields
// are wrapped into one-element lists.
func Parse(raw string) (*Record, error) {
	text := stripFence(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrParse)
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if list, ok := decoded.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty array", ErrParse)
		}
		decoded = list[0]
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object, got %T", ErrParse, decoded)
	}

	rec := &Record{}
	var err error
	if rec.SceneName, err = stringList(obj, "scene_name"); err != nil {
		return nil, err
	}
	if rec.Entities, err = stringList(obj, "entities"); err != nil {
		return nil, err
	}
	if rec.Background, err = stringList(obj, "background"); err != nil {
		return nil, err
	}
	return rec, nil
}

func stringList(obj map[string]any, key string) ([]string, error) {
	value, ok := obj[key]
	if !ok || value == nil {
		return nil, fmt.Errorf("%w: missing %q", ErrParse, key)
	}

	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] is %T, not a string", ErrParse, key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q is %T, not a string or list", ErrParse, key, value)
	}
}

// stripFence trims whitespace and a single surrounding Markdown code fence.
func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
