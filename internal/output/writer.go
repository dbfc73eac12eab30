// Package output lays translated chapters and text metadata out on disk as
// JSON, HTML or plain text.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/sefaria"
)

// Format is an output file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts "json", "html", "txt", "text", "md" or "markdown".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	case "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q: %w", s, internal.ErrInvalidArgument)
}

// Policy decides what happens when an artifact already exists.
type Policy string

const (
	PolicySkip      Policy = "skip"
	PolicyOverwrite Policy = "overwrite"
)

// ParsePolicy accepts "skip" or "overwrite".
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicySkip:
		return PolicySkip, nil
	case PolicyOverwrite:
		return PolicyOverwrite, nil
	}
	return "", fmt.Errorf("unknown overwrite policy %q: %w", s, internal.ErrInvalidArgument)
}

// Writer places files under a base directory:
//
//	{base}/{title}/metadata_{title}.json
//	{base}/{title}/section_006/{title}_006_005.json
//
// where {title} is the lower-cased underscored title.
type Writer struct {
	baseDir string
	policy  Policy
	logger  *slog.Logger
}

func NewWriter(baseDir string, policy Policy, logger *slog.Logger) *Writer {
	if baseDir == "" {
		baseDir = "saved_translations"
	}
	if policy == "" {
		policy = PolicySkip
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{baseDir: baseDir, policy: policy, logger: logger}
}

func (w *Writer) Policy() Policy {
	return w.policy
}

func titleDir(title string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
}

// TextDir returns the directory of a whole text.
func (w *Writer) TextDir(title string) string {
	return filepath.Join(w.baseDir, titleDir(title))
}

// MetaPath returns the metadata file of a text.
func (w *Writer) MetaPath(title string) string {
	t := titleDir(title)
	return filepath.Join(w.baseDir, t, "metadata_"+t+".json")
}

// SectionDir returns the directory holding a section's chapters.
func (w *Writer) SectionDir(title string, section int) string {
	return filepath.Join(w.TextDir(title), fmt.Sprintf("section_%03d", section))
}

// ChapterPath returns where the chapter is stored in format f.
func (w *Writer) ChapterPath(ref reference.Chapter, f Format) (string, error) {
	name, err := ref.Ref().FileName(reference.LevelChapter)
	if err != nil {
		return "", err
	}
	return filepath.Join(w.SectionDir(ref.Title(), ref.Section()), name+"."+string(f)), nil
}

// Exists reports whether the chapter is already stored in format f.
func (w *Writer) Exists(ref reference.Chapter, f Format) (bool, error) {
	path, err := w.ChapterPath(ref, f)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// AllExist reports whether the chapter is stored in every format.
func (w *Writer) AllExist(ref reference.Chapter, formats []Format) (bool, error) {
	for _, f := range formats {
		ok, err := w.Exists(ref, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return len(formats) > 0, nil
}

// WriteChapter stores doc in format f. With PolicySkip an existing file is
// left alone and written is false.
func (w *Writer) WriteChapter(doc *Document, f Format) (path string, written bool, err error) {
	ref, err := doc.Chapter()
	if err != nil {
		return "", false, err
	}
	path, err = w.ChapterPath(ref, f)
	if err != nil {
		return "", false, err
	}

	if w.policy == PolicySkip {
		if _, err := os.Stat(path); err == nil {
			w.logger.Info("skipping existing file", "path", path)
			return path, false, nil
		}
	}

	data, err := Render(doc, f)
	if err != nil {
		return "", false, err
	}
	if err := writeFile(path, data); err != nil {
		return "", false, err
	}
	w.logger.Info("saved chapter", "path", path, "format", string(f))
	return path, true, nil
}

// WriteMeta stores the text metadata, replacing any previous file.
func (w *Writer) WriteMeta(meta sefaria.Meta) (string, error) {
	title := meta.SefariaTitle
	if title == "" {
		title = meta.Title
	}
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("metadata has no title: %w", internal.ErrInvalidArgument)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	path := w.MetaPath(title)
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	w.logger.Info("saved metadata", "path", path)
	return path, nil
}

// writeFile writes through a temporary file so readers never see a partial artifact.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
