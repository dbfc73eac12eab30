// Package validator checks that a passage translation looks like a
// translation: written in the target language and not an echo of the source.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/sefer/internal/detector"
	"github.com/valpere/sefer/internal/markdown"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Validator checks translations of one language pair.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det        *detector.Detector
	targetLang string
}

// New creates a Validator for translations into targetLang. languages
// narrows detection to the codes in use, e.g. New("en", "he", "en").
func New(targetLang string, languages ...string) *Validator {
	return &Validator{det: detector.New(languages...), targetLang: targetLang}
}

// TargetLang returns the expected language code.
func (v *Validator) TargetLang() string {
	return v.targetLang
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass without error. When the detected language differs
// from targetLang the returned error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(markdown.StripHTMLTags(translatedText))
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	if !strings.EqualFold(detected, targetLang) {
		return false, fmt.Errorf("expected %s but detected %s", strings.ToLower(targetLang), strings.ToLower(detected))
	}

	return true, nil
}

// CheckPassage reports why translation does not look like a translation of
// original, or nil.
func (v *Validator) CheckPassage(original, translation string) error {
	if strings.TrimSpace(translation) != "" &&
		strings.TrimSpace(translation) == strings.TrimSpace(original) {
		return fmt.Errorf("translation repeats the original text")
	}
	_, err := v.IsValid(translation, v.targetLang)
	return err
}

// SourceLanguage returns the detected lower-case code of a source passage.
func (v *Validator) SourceLanguage(original string) (string, bool) {
	code, ok := v.det.DetectISO(markdown.StripHTMLTags(original))
	return strings.ToLower(code), ok
}
