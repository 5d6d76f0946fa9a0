package llm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter estimates prompt sizes so the conversation length can be
// reported before each request.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter picks the encoding for model, falling back to cl100k_base
// for models tiktoken does not know (Groq-hosted ones, for instance).
func NewTokenCounter(model string) (*TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load token encoding: %w", err)
		}
	}
	return &TokenCounter{enc: enc}, nil
}

// Count returns the number of tokens in text. A nil counter counts nothing.
func (c *TokenCounter) Count(text string) int {
	if c == nil || c.enc == nil {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
