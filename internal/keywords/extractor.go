package keywords

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"scenegen/internal/debug"
)

const separator = ", "

// Token is a single tagged word. Tag uses Penn Treebank labels.
type Token struct {
	Text string
	Tag  string
}

// Tagger splits text into part-of-speech tagged tokens.
type Tagger interface {
	Tag(text string) ([]Token, error)
}

// ProseTagger tags text with the prose averaged-perceptron model.
type ProseTagger struct{}

func (ProseTagger) Tag(text string) ([]Token, error) {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tag text: %w", err)
	}

	tokens := doc.Tokens()
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, Token{Text: tok.Text, Tag: tok.Tag})
	}
	return out, nil
}

// Extractor reduces free text to its noun and adjective tokens.
type Extractor struct {
	tagger Tagger
	debug  *debug.Logger
}

// NewExtractor returns an Extractor using tagger, or ProseTagger when nil.
func NewExtractor(tagger Tagger, debug *debug.Logger) *Extractor {
	if tagger == nil {
		tagger = ProseTagger{}
	}
	return &Extractor{tagger: tagger, debug: debug}
}

// Extract returns the nouns and adjectives of text in their original order,
// duplicates included, joined by ", ". Tagging failures yield "".
func (e *Extractor) Extract(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	tokens, err := e.tagger.Tag(text)
	if err != nil {
		e.debug.Printf("Keyword extraction failed: %v", err)
		return ""
	}

	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if IsKeywordTag(tok.Tag) {
			keywords = append(keywords, tok.Text)
		}
	}
	return strings.Join(keywords, separator)
}

// IsKeywordTag reports whether a Penn Treebank tag is a common noun or an
// adjective. Proper nouns (NNP, NNPS) are excluded.
func IsKeywordTag(tag string) bool {
	switch tag {
	case "NN", "NNS", "JJ", "JJR", "JJS":
		return true
	}
	return false
}
