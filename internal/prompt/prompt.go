// Package prompt builds the generation prompt for one passage, embedding the
// whole chapter as context and marking the passage to translate.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/postprocess"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/sefaria"
)

// Builder holds the language pair and optional terminology of a prompt.
type Builder struct {
	SourceLanguage string
	TargetLanguage string
	// Glossary maps source terms to their required translations.
	Glossary map[string]string
}

// Default translates Hebrew religious texts into English.
var Default = Builder{SourceLanguage: "Hebrew", TargetLanguage: "English"}

// Build renders the prompt for ref using the Default builder.
func Build(ref reference.Passage, chapter []string) (string, error) {
	return Default.Build(ref, chapter)
}

// Mark wraps a passage in the marker tags the prompt refers to.
func Mark(passage string) string {
	return "<" + postprocess.MarkerTag + ">" + passage + "</" + postprocess.MarkerTag + ">"
}

// Build renders the prompt for passage ref of chapter. chapter is not modified.
func (b Builder) Build(ref reference.Passage, chapter []string) (string, error) {
	n := ref.Number()
	if n < 1 {
		return "", fmt.Errorf("passage number must be provided: %w", internal.ErrInvalidArgument)
	}
	if n > len(chapter) {
		return "", fmt.Errorf("passage %d is not in chapter of %d passages: %w", n, len(chapter), internal.ErrInvalidArgument)
	}

	source, target := b.SourceLanguage, b.TargetLanguage
	if source == "" {
		source = Default.SourceLanguage
	}
	if target == "" {
		target = Default.TargetLanguage
	}

	marked := sefaria.CleanPassages(chapter)
	marked[n-1] = Mark(marked[n-1])

	var sb strings.Builder
	fmt.Fprintf(&sb, "<system>You are translating %s religious texts into %s.</system>\n\n", source, target)
	sb.WriteString("Context for this translation (text information and the full chapter in which the passage appears).\n\n")
	fmt.Fprintf(&sb, "<text-information>\n%s\n</text-information>\n\n", ref.String())
	fmt.Fprintf(&sb, "<context>\n%s\n</context>\n\n", strings.Join(marked, "\n\n"))
	sb.WriteString("Please translate the following specific passage from this chapter:\n\n")
	fmt.Fprintf(&sb, "%s\n\n", marked[n-1])
	sb.WriteString("<guidelines>\n")
	sb.WriteString("- Maintain a scholarly tone\n")
	sb.WriteString("- Translate for clarity while preserving meaning\n")
	fmt.Fprintf(&sb, "- Preserve any html tags that may be present in the %s text\n", strings.ToLower(source))
	sb.WriteString("- Do not output anything else before or after the translation.\n")
	sb.WriteString("</guidelines>\n\n")

	if len(b.Glossary) > 0 {
		sb.WriteString("<terminology>\nUse these exact translations:\n")
		terms := make([]string, 0, len(b.Glossary))
		for src := range b.Glossary {
			terms = append(terms, src)
		}
		sort.Strings(terms)
		for _, src := range terms {
			fmt.Fprintf(&sb, "- %s → %s\n", src, b.Glossary[src])
		}
		sb.WriteString("</terminology>\n\n")
	}

	sb.WriteString("Please begin your translation:\n\n")
	return sb.String(), nil
}
