// Package reference locates a position inside a titled, sectioned corpus
// (section / chapter / passage) and renders it for people and for machines.
package reference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valpere/sefer/internal"
)

// Level is the depth of a reference.
type Level int

const (
	// LevelSelf asks renderers to use the reference's own level.
	LevelSelf Level = 0
	// LevelSection references a whole section.
	LevelSection Level = 1
	// LevelChapter references a chapter within a section.
	LevelChapter Level = 2
	// LevelPassage references a single passage within a chapter.
	LevelPassage Level = 3
)

// Labels are the display names of each level, e.g. "Gate" instead of "Section".
type Labels struct {
	Section string `json:"section" mapstructure:"section"`
	Chapter string `json:"chapter" mapstructure:"chapter"`
	Passage string `json:"passage" mapstructure:"passage"`
}

// DefaultLabels returns the generic level names.
func DefaultLabels() Labels {
	return Labels{Section: "Section", Chapter: "Chapter", Passage: "Passage"}
}

// withDefaults fills empty labels with the generic names.
func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	if l.Section == "" {
		l.Section = d.Section
	}
	if l.Chapter == "" {
		l.Chapter = d.Chapter
	}
	if l.Passage == "" {
		l.Passage = d.Passage
	}
	return l
}

// Reference identifies a section, chapter or passage of a titled text.
// Chapter and Passage are zero when absent.
type Reference struct {
	Title   string `json:"title"`
	Section int    `json:"section_num"`
	Chapter int    `json:"chapter_num,omitempty"`
	Passage int    `json:"passage_num,omitempty"`
	Labels  Labels `json:"labels"`
}

// New builds a validated reference. Pass 0 for chapter or passage to leave
// them unset.
func New(title string, section, chapter, passage int) (Reference, error) {
	r := Reference{
		Title:   title,
		Section: section,
		Chapter: chapter,
		Passage: passage,
		Labels:  DefaultLabels(),
	}
	if err := r.Validate(); err != nil {
		return Reference{}, err
	}
	return r, nil
}

// WithLabels returns a copy of r using labels; empty labels keep their defaults.
func (r Reference) WithLabels(labels Labels) Reference {
	r.Labels = labels.withDefaults()
	return r
}

// Validate checks the numeric and title invariants.
func (r Reference) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title cannot be empty: %w", internal.ErrInvalidArgument)
	}
	if r.Section < 1 {
		return fmt.Errorf("section number must be positive, got %d: %w", r.Section, internal.ErrInvalidArgument)
	}
	if r.Chapter < 0 {
		return fmt.Errorf("chapter number must be positive, got %d: %w", r.Chapter, internal.ErrInvalidArgument)
	}
	if r.Passage < 0 {
		return fmt.Errorf("passage number must be positive, got %d: %w", r.Passage, internal.ErrInvalidArgument)
	}
	if r.Passage > 0 && r.Chapter == 0 {
		return fmt.Errorf("passage number set without a chapter number: %w", internal.ErrInvalidArgument)
	}
	return nil
}

// Level reports how deep the reference goes.
func (r Reference) Level() Level {
	switch {
	case r.Chapter > 0 && r.Passage > 0:
		return LevelPassage
	case r.Chapter > 0:
		return LevelChapter
	default:
		return LevelSection
	}
}

// DisplayText renders the reference for readers, for example
// "Pardes Rimmonim, Gate 6, Chapter 5, Passage 3". LevelSelf renders the
// reference at its own depth.
func (r Reference) DisplayText(level Level, includeTitle bool) (string, error) {
	level, err := r.resolve(level)
	if err != nil {
		return "", err
	}
	labels := r.Labels.withDefaults()

	var parts []string
	if includeTitle {
		parts = append(parts, strings.ReplaceAll(r.Title, "_", " "))
	}
	parts = append(parts, fmt.Sprintf("%s %d", labels.Section, r.Section))
	if level >= LevelChapter {
		parts = append(parts, fmt.Sprintf("%s %d", labels.Chapter, r.Chapter))
	}
	if level == LevelPassage {
		parts = append(parts, fmt.Sprintf("%s %d", labels.Passage, r.Passage))
	}
	return strings.Join(parts, ", "), nil
}

// String renders the full display text at the reference's own level.
func (r Reference) String() string {
	s, err := r.DisplayText(LevelSelf, true)
	if err != nil {
		return r.Title
	}
	return s
}

// URLPath renders the archive path form, e.g. "Pardes_Rimmonim_6_5".
func (r Reference) URLPath(level Level) (string, error) {
	level, err := r.resolve(level)
	if err != nil {
		return "", err
	}
	parts := []string{r.Title, strconv.Itoa(r.Section)}
	if level >= LevelChapter {
		parts = append(parts, strconv.Itoa(r.Chapter))
	}
	if level == LevelPassage {
		parts = append(parts, strconv.Itoa(r.Passage))
	}
	return strings.Join(parts, "_"), nil
}

// FileName renders a lower-case file stem with zero-padded numbers,
// e.g. "pardes_rimmonim_006_005". The extension is left to the caller.
func (r Reference) FileName(level Level) (string, error) {
	level, err := r.resolve(level)
	if err != nil {
		return "", err
	}
	parts := []string{strings.ToLower(r.Title), pad(r.Section)}
	if level >= LevelChapter {
		parts = append(parts, pad(r.Chapter))
	}
	if level == LevelPassage {
		parts = append(parts, pad(r.Passage))
	}
	return strings.Join(parts, "_"), nil
}

// resolve maps LevelSelf to the reference's level and checks that every
// number the requested level needs is present.
func (r Reference) resolve(level Level) (Level, error) {
	if level == LevelSelf {
		return r.Level(), nil
	}
	if level < LevelSection || level > LevelPassage {
		return 0, fmt.Errorf("level must be between 1 and 3, got %d: %w", level, internal.ErrInvalidArgument)
	}
	labels := r.Labels.withDefaults()
	if level >= LevelChapter && r.Chapter == 0 {
		return 0, fmt.Errorf("level %d requires a %s number: %w", level, labels.Chapter, internal.ErrInvalidArgument)
	}
	if level == LevelPassage && r.Passage == 0 {
		return 0, fmt.Errorf("level %d requires a %s number: %w", level, labels.Passage, internal.ErrInvalidArgument)
	}
	return level, nil
}

func pad(n int) string {
	return fmt.Sprintf("%03d", n)
}
