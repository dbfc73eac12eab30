package chapter

import (
	"fmt"

	"github.com/valpere/sefer/internal/reference"
)

// GenerationError reports that the generator failed on one passage.
// The translator's state is unchanged when it is returned.
type GenerationError struct {
	Passage reference.Passage
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("passage %d: %v", e.Passage.Number(), e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// OverloadedError means the generation service is temporarily at capacity.
// Translations completed before the failure are still on the Translator.
type OverloadedError struct {
	Err error
}

func (e *OverloadedError) Error() string {
	return "generation service is overloaded, try again later"
}

func (e *OverloadedError) Unwrap() error {
	return e.Err
}

// TranslationFailedError reports where a chapter run stopped.
type TranslationFailedError struct {
	// Passage is the 1-based number of the passage that failed.
	Passage   int
	Completed int
	Total     int
	Err       error
}

func (e *TranslationFailedError) Error() string {
	return fmt.Sprintf("translation failed at passage %d. Completed %d/%d passages. Error: %v",
		e.Passage, e.Completed, e.Total, cause(e.Err))
}

func (e *TranslationFailedError) Unwrap() error {
	return e.Err
}

// cause strips the passage prefix so the generator's message is embedded as is.
func cause(err error) error {
	if genErr, ok := err.(*GenerationError); ok {
		return genErr.Err
	}
	return err
}
