package reference

import (
	"fmt"

	"github.com/valpere/sefer/internal"
)

// Chapter is a reference guaranteed to carry a chapter number. It can only be
// obtained through AsChapter, so holders never need to re-check the field.
// Any passage number on the source reference is dropped.
type Chapter struct {
	ref Reference
}

// AsChapter narrows r to a chapter reference.
func AsChapter(r Reference) (Chapter, error) {
	if err := r.Validate(); err != nil {
		return Chapter{}, err
	}
	if r.Chapter == 0 {
		return Chapter{}, fmt.Errorf("%s has no %s number: %w", r, r.Labels.withDefaults().Chapter, internal.ErrInvalidArgument)
	}
	r.Passage = 0
	r.Labels = r.Labels.withDefaults()
	return Chapter{ref: r}, nil
}

// Ref returns the underlying reference value.
func (c Chapter) Ref() Reference { return c.ref }

// Title returns the corpus title.
func (c Chapter) Title() string { return c.ref.Title }

// Section returns the section number.
func (c Chapter) Section() int { return c.ref.Section }

// Number returns the chapter number.
func (c Chapter) Number() int { return c.ref.Chapter }

// Labels returns the display labels.
func (c Chapter) Labels() Labels { return c.ref.Labels }

// String renders the chapter display text with its title.
func (c Chapter) String() string { return c.ref.String() }

// Passage returns the passage-level reference for passage n of this chapter.
func (c Chapter) Passage(n int) (Passage, error) {
	if n < 1 {
		return Passage{}, fmt.Errorf("passage number must be positive, got %d: %w", n, internal.ErrInvalidArgument)
	}
	r := c.ref
	r.Passage = n
	return Passage{ref: r}, nil
}

// Passage is a reference guaranteed to carry chapter and passage numbers.
type Passage struct {
	ref Reference
}

// AsPassage narrows r to a passage reference.
func AsPassage(r Reference) (Passage, error) {
	if err := r.Validate(); err != nil {
		return Passage{}, err
	}
	if r.Level() != LevelPassage {
		return Passage{}, fmt.Errorf("%s is not a passage reference: %w", r, internal.ErrInvalidArgument)
	}
	r.Labels = r.Labels.withDefaults()
	return Passage{ref: r}, nil
}

// Ref returns the underlying reference value.
func (p Passage) Ref() Reference { return p.ref }

// Number returns the 1-based passage number.
func (p Passage) Number() int { return p.ref.Passage }

// Chapter returns the enclosing chapter reference.
func (p Passage) Chapter() Chapter {
	r := p.ref
	r.Passage = 0
	return Chapter{ref: r}
}

// String renders the passage display text with its title.
func (p Passage) String() string { return p.ref.String() }
