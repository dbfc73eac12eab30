package store

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/valpere/sefer/internal"
)

// GlossaryFile is the YAML exchange format of one language pair:
//
//	source: he
//	target: en
//	terms:
//	  חסד: Ḥesed
type GlossaryFile struct {
	Source string            `yaml:"source"`
	Target string            `yaml:"target"`
	Terms  map[string]string `yaml:"terms"`
}

// ReadGlossaryFile decodes a glossary file.
func ReadGlossaryFile(r io.Reader) (GlossaryFile, error) {
	var f GlossaryFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return GlossaryFile{}, fmt.Errorf("failed to parse glossary file: %w", err)
	}
	if f.Source == "" || f.Target == "" {
		return GlossaryFile{}, fmt.Errorf("glossary file needs source and target languages: %w", internal.ErrInvalidArgument)
	}
	return f, nil
}

// WriteGlossaryFile encodes f as YAML.
func WriteGlossaryFile(w io.Writer, f GlossaryFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// ImportGlossary adds every term of f and returns the number imported.
func (s *Store) ImportGlossary(ctx context.Context, f GlossaryFile) (int, error) {
	n := 0
	for src, tgt := range f.Terms {
		if _, err := s.AddGlossaryTerm(ctx, f.Source, f.Target, src, tgt); err != nil {
			return n, fmt.Errorf("term %q: %w", src, err)
		}
		n++
	}
	return n, nil
}

// ExportGlossary collects the terms of one language pair.
func (s *Store) ExportGlossary(ctx context.Context, sourceLang, targetLang string) (GlossaryFile, error) {
	terms, err := s.GetGlossaryTerms(ctx, sourceLang, targetLang)
	if err != nil {
		return GlossaryFile{}, err
	}
	return GlossaryFile{Source: sourceLang, Target: targetLang, Terms: terms}, nil
}
