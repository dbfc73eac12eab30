// Package markdown renders model output, which may mix Markdown emphasis with
// inline HTML carried over from the source text, for HTML and text exports.
package markdown

import (
	"bytes"
	"html"
	"strings"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

func ToHTML(md []byte) string {
	opts := mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	}
	renderer := mdhtml.NewRenderer(opts)
	ext := parser.CommonExtensions | parser.Attributes
	p := parser.NewWithExtensions(ext)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

// PassageHTML renders a single passage. A lone wrapping paragraph is
// removed so the result can sit inside an existing block element.
func PassageHTML(s string) string {
	out := strings.TrimSpace(ToHTML([]byte(s)))
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") &&
		strings.Count(out, "<p>") == 1 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return out
}

var fromHTML = newHTMLConverter()

func newHTMLConverter() *htmltomd.Converter {
	c := htmltomd.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return c
}

// FromHTML converts inline Sefaria markup to Markdown. Markdown syntax in the
// input is escaped; render it with PassageHTML first.
func FromHTML(s string) (string, error) {
	out, err := fromHTML.ConvertString(s)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func ToPlainText(md []byte) string {
	return strings.TrimSpace(StripHTMLTags(ToHTML(md)))
}

// StripHTMLTags drops tags and decodes entities. <br> becomes a newline.
func StripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	var tag strings.Builder
	inTag := false

	for _, ch := range htmlContent {
		switch {
		case ch == '<':
			inTag = true
			tag.Reset()
		case ch == '>' && inTag:
			inTag = false
			name := strings.ToLower(strings.Trim(tag.String(), "/ "))
			if name == "br" || strings.HasPrefix(name, "br ") {
				result.WriteByte('\n')
			}
		case inTag:
			tag.WriteRune(ch)
		default:
			result.WriteRune(ch)
		}
	}

	return html.UnescapeString(result.String())
}
