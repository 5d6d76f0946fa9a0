package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a caller request is missing required input.
	ErrValidation = errors.New("invalid scene request")
	// ErrState is returned when an operation needs a prior scene that does not exist.
	ErrState = errors.New("invalid conversation state")
	// ErrParse marks a completion that could not be decoded into a Record.
	ErrParse = errors.New("malformed scene response")
	// ErrService marks a retryable failure reported by the completion service.
	ErrService = errors.New("completion service error")
	// ErrPersistence marks a failed write of a scene or transcript.
	ErrPersistence = errors.New("scene persistence failed")
	// ErrGenerationFailed is returned once every attempt has been used up.
	ErrGenerationFailed = errors.New("scene generation failed")
)

// GenerationError reports an exhausted attempt budget.
type GenerationError struct {
	Attempts int
	Last     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrGenerationFailed, e.Attempts, e.Last)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Last}
}
