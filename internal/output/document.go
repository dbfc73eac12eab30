package output

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/chapter"
	"github.com/valpere/sefer/internal/reference"
)

// Passage is one translated passage as stored on disk.
type Passage struct {
	Original    string `json:"hebrew"`
	Translation string `json:"english"`
	Number      int    `json:"passage_num"`
	Type        string `json:"type"`
}

// Document is a translated chapter as stored on disk.
type Document struct {
	Ref          reference.Reference `json:"reference"`
	SectionNum   int                 `json:"section_num"`
	ChapterNum   int                 `json:"chapter_num"`
	Passages     []Passage           `json:"passages"`
	RetrievedAt  time.Time           `json:"retrieved_at"`
	TranslatedAt time.Time           `json:"translated_at"`
	ModelVersion string              `json:"ai_model_version"`
	Type         string              `json:"type"`
}

const (
	passageType = "TranslatedPassage"
	chapterType = "TranslatedChapter"
)

// NewDocument builds the stored form of a translated chapter.
func NewDocument(ref reference.Chapter, pairs []internal.TranslatedPassage, model string, retrievedAt, translatedAt time.Time) *Document {
	doc := &Document{
		Ref:          ref.Ref(),
		SectionNum:   ref.Section(),
		ChapterNum:   ref.Number(),
		RetrievedAt:  retrievedAt,
		TranslatedAt: translatedAt,
		ModelVersion: model,
		Type:         chapterType,
	}
	for i, p := range pairs {
		doc.Passages = append(doc.Passages, Passage{
			Original:    p.Original,
			Translation: p.Translation,
			Number:      i + 1,
			Type:        passageType,
		})
	}
	return doc
}

// FromTranslator builds a document from a finished translator.
func FromTranslator(t *chapter.Translator, model string, retrievedAt, translatedAt time.Time) (*Document, error) {
	if !t.IsComplete() {
		return nil, fmt.Errorf("%s is not complete (%d/%d passages): %w",
			t.Ref(), t.Completed(), t.Len(), internal.ErrInvalidArgument)
	}
	return NewDocument(t.Ref(), t.Pairs(), model, retrievedAt, translatedAt), nil
}

// Chapter returns the document's chapter reference.
func (d *Document) Chapter() (reference.Chapter, error) {
	ref := d.Ref
	if ref.Title == "" {
		return reference.Chapter{}, fmt.Errorf("document has no reference: %w", internal.ErrInvalidArgument)
	}
	return reference.AsChapter(ref)
}

// Snapshot converts the document back into translator state.
func (d *Document) Snapshot() chapter.Snapshot {
	s := chapter.Snapshot{Ref: d.Ref}
	for _, p := range d.Passages {
		s.Passages = append(s.Passages, p.Original)
		s.Translations = append(s.Translations, p.Translation)
	}
	return s
}

// Pairs returns the stored passage pairs.
func (d *Document) Pairs() []internal.TranslatedPassage {
	pairs := make([]internal.TranslatedPassage, len(d.Passages))
	for i, p := range d.Passages {
		pairs[i] = internal.TranslatedPassage{Original: p.Original, Translation: p.Translation}
	}
	return pairs
}

// ReadChapter loads a JSON chapter document.
func ReadChapter(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc.Type != "" && doc.Type != chapterType {
		return nil, fmt.Errorf("%s is a %q document, not %q: %w", path, doc.Type, chapterType, internal.ErrInvalidArgument)
	}
	return &doc, nil
}
