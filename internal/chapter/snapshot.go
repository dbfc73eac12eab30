package chapter

import (
	"fmt"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/translator"
)

// Snapshot is the serializable state of a Translator.
type Snapshot struct {
	Ref          reference.Reference `json:"reference"`
	Passages     []string            `json:"passages"`
	Translations []string            `json:"translations"`
}

// Snapshot captures the current state. The slices are copies.
func (t *Translator) Snapshot() Snapshot {
	return Snapshot{
		Ref:          t.ref.Ref(),
		Passages:     t.Passages(),
		Translations: t.Translations(),
	}
}

// Restore rebuilds a Translator from a snapshot so translation continues
// at the first untranslated passage.
func Restore(s Snapshot, gen translator.Generator, opts ...Option) (*Translator, error) {
	ref, err := reference.AsChapter(s.Ref)
	if err != nil {
		return nil, err
	}
	if len(s.Translations) > len(s.Passages) {
		return nil, fmt.Errorf("corrupt snapshot for %s: %d translations for %d passages: %w",
			ref, len(s.Translations), len(s.Passages), internal.ErrInvalidArgument)
	}

	t, err := New(ref, s.Passages, gen, opts...)
	if err != nil {
		return nil, err
	}
	t.translations = append([]string(nil), s.Translations...)
	return t, nil
}
