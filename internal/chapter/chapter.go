// Package chapter translates one chapter passage by passage, keeping every
// completed translation when a later passage fails so the run can resume.
package chapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/prompt"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/translator"
)

// PromptFunc renders the prompt for one passage of a chapter.
type PromptFunc func(ref reference.Passage, chapter []string) (string, error)

// PassageHook is called after each passage is translated.
type PassageHook func(ref reference.Passage, original, translation string)

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithPromptFunc replaces the default prompt builder.
func WithPromptFunc(f PromptFunc) Option {
	return func(t *Translator) {
		if f != nil {
			t.prompt = f
		}
	}
}

// WithPassageHook registers a callback run after every successful passage.
func WithPassageHook(h PassageHook) Option {
	return func(t *Translator) {
		t.hook = h
	}
}

// Translator holds the translation progress of one chapter. translations is
// always a prefix of passages: translations[i] translates passages[i].
//
// A Translator is not safe for concurrent use.
type Translator struct {
	ref          reference.Chapter
	passages     []string
	translations []string

	gen    translator.Generator
	prompt PromptFunc
	hook   PassageHook
	logger *slog.Logger

	current    reference.Passage
	hasCurrent bool
}

// New creates a translator for a fetched chapter. passages is copied.
func New(ref reference.Chapter, passages []string, gen translator.Generator, opts ...Option) (*Translator, error) {
	if len(passages) == 0 {
		return nil, fmt.Errorf("chapter cannot be empty: %w", internal.ErrInvalidArgument)
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required: %w", internal.ErrInvalidArgument)
	}
	if ref.Number() == 0 {
		return nil, fmt.Errorf("chapter reference is required: %w", internal.ErrInvalidArgument)
	}

	t := &Translator{
		ref:      ref,
		passages: append([]string(nil), passages...),
		gen:      gen,
		prompt:   prompt.Build,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Ref returns the chapter reference.
func (t *Translator) Ref() reference.Chapter {
	return t.ref
}

// Len returns the number of passages in the chapter.
func (t *Translator) Len() int {
	return len(t.passages)
}

// Completed returns the number of translated passages.
func (t *Translator) Completed() int {
	return len(t.translations)
}

// IsComplete reports whether every passage has been translated.
func (t *Translator) IsComplete() bool {
	return len(t.translations) == len(t.passages)
}

// NextPassage returns the 1-based number of the next passage to translate.
// ok is false once the chapter is complete.
func (t *Translator) NextPassage() (n int, ok bool) {
	if t.IsComplete() {
		return 0, false
	}
	return len(t.translations) + 1, true
}

// Current returns the passage most recently translated or attempted.
func (t *Translator) Current() (reference.Passage, bool) {
	return t.current, t.hasCurrent
}

// Passages returns a copy of the chapter text.
func (t *Translator) Passages() []string {
	return append([]string(nil), t.passages...)
}

// Translations returns a copy of the completed translations.
func (t *Translator) Translations() []string {
	return append([]string(nil), t.translations...)
}

// Pairs returns the completed passages paired with their translations.
func (t *Translator) Pairs() []internal.TranslatedPassage {
	pairs := make([]internal.TranslatedPassage, len(t.translations))
	for i, tr := range t.translations {
		pairs[i] = internal.TranslatedPassage{Original: t.passages[i], Translation: tr}
	}
	return pairs
}

// TranslateNext translates the next passage and appends the result.
// It returns ok=false without side effects when the chapter is complete.
// A generator failure is returned as *GenerationError and leaves the
// translations unchanged.
func (t *Translator) TranslateNext(ctx context.Context) (translation string, ok bool, err error) {
	n, ok := t.NextPassage()
	if !ok {
		return "", false, nil
	}

	p, err := t.ref.Passage(n)
	if err != nil {
		return "", false, err
	}
	t.current, t.hasCurrent = p, true

	text, err := t.prompt(p, t.passages)
	if err != nil {
		return "", false, fmt.Errorf("building prompt for %s: %w", p, err)
	}

	if err := ctx.Err(); err != nil {
		return "", false, &GenerationError{Passage: p, Err: err}
	}
	translation, err = t.gen.Generate(ctx, text)
	if err != nil {
		return "", false, &GenerationError{Passage: p, Err: err}
	}

	t.translations = append(t.translations, translation)
	if t.hook != nil {
		t.hook(p, t.passages[n-1], translation)
	}
	return translation, true, nil
}

// TranslateRemaining translates passages until the chapter is complete.
// On failure the completed translations stay on t and the error is an
// *OverloadedError or a *TranslationFailedError.
func (t *Translator) TranslateRemaining(ctx context.Context) ([]internal.TranslatedPassage, error) {
	for !t.IsComplete() {
		_, ok, err := t.TranslateNext(ctx)
		if err != nil {
			return nil, t.classify(err)
		}
		if !ok {
			break
		}
		t.logger.Info("passage translated",
			"chapter", t.ref.String(),
			"passage", len(t.translations),
			"total", len(t.passages))
	}
	t.logger.Info("chapter translated", "chapter", t.ref.String(), "passages", len(t.passages))
	return t.Pairs(), nil
}

func (t *Translator) classify(err error) error {
	if translator.IsOverloaded(err) {
		t.logger.Warn("generation service overloaded",
			"chapter", t.ref.String(),
			"completed", len(t.translations),
			"error", err)
		return &OverloadedError{Err: err}
	}

	failed := len(t.translations) + 1
	t.logger.Error("translation failed",
		"chapter", t.ref.String(),
		"passage", failed,
		"completed", len(t.translations),
		"total", len(t.passages),
		"error", err)
	return &TranslationFailedError{
		Passage:   failed,
		Completed: len(t.translations),
		Total:     len(t.passages),
		Err:       err,
	}
}
