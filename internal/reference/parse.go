package reference

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/valpere/sefer/internal"
)

// refGrammar parses archive-style references:
// "Pardes_Rimmonim.6", "Pardes_Rimmonim.6.5", "Pardes_Rimmonim.6.5.3".
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	Title      string       `parser:"@Ident"`
	Section    int          `parser:"'.' @Int"`
	ChapterRef *chapterPart `parser:"( '.' @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type chapterPart struct {
	Chapter int  `parser:"@Int"`
	Passage *int `parser:"( '.' @Int )?"`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9_,'\-]*`},
	{Name: "Punct", Pattern: `\.`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// Parse reads a dotted reference string and applies labels to the result.
// Spaces in the title must be written as underscores, as in archive paths.
func Parse(s string, labels Labels) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, fmt.Errorf("empty reference string: %w", internal.ErrInvalidArgument)
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return Reference{}, fmt.Errorf("invalid reference format %q: %v: %w", s, err, internal.ErrInvalidArgument)
	}

	chapter, passage := 0, 0
	if parsed.ChapterRef != nil {
		chapter = parsed.ChapterRef.Chapter
		if parsed.ChapterRef.Passage != nil {
			passage = *parsed.ChapterRef.Passage
		}
	}

	r, err := New(parsed.Title, parsed.Section, chapter, passage)
	if err != nil {
		return Reference{}, err
	}
	// "0" parses as an Int but means "absent" to New; reject it explicitly.
	if parsed.ChapterRef != nil && chapter == 0 {
		return Reference{}, fmt.Errorf("chapter number must be positive in %q: %w", s, internal.ErrInvalidArgument)
	}
	if parsed.ChapterRef != nil && parsed.ChapterRef.Passage != nil && passage == 0 {
		return Reference{}, fmt.Errorf("passage number must be positive in %q: %w", s, internal.ErrInvalidArgument)
	}
	return r.WithLabels(labels), nil
}
