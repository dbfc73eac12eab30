// Package detector identifies the language of source passages and their
// translations.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector restricted to the given ISO 639-1 codes, e.g.
// New("he", "en"). With fewer than two known codes every language is
// considered. Building is expensive; reuse the instance.
func New(isoCodes ...string) *Detector {
	langs := Languages(isoCodes...)

	builder := lingua.NewLanguageDetectorBuilder()
	var detector lingua.LanguageDetector
	if len(langs) >= 2 {
		detector = builder.FromLanguages(langs...).Build()
	} else {
		detector = builder.FromAllLanguages().Build()
	}

	return &Detector{detector: detector}
}

// Languages resolves ISO 639-1 codes, skipping unknown ones and duplicates.
func Languages(isoCodes ...string) []lingua.Language {
	var langs []lingua.Language
	seen := make(map[lingua.Language]bool)
	for _, code := range isoCodes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(code)))
		if iso == lingua.UnknownIsoCode639_1 {
			continue
		}
		lang := lingua.GetLanguageFromIsoCode639_1(iso)
		if lang == lingua.Unknown || seen[lang] {
			continue
		}
		seen[lang] = true
		langs = append(langs, lang)
	}
	return langs
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the upper-case ISO 639-1 code of text, e.g. "HE".
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}
