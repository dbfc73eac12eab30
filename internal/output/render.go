package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/valpere/sefer/internal/markdown"
	"github.com/valpere/sefer/internal/reference"
)

var chapterTemplate = template.Must(template.New("chapter").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
.passage { margin-bottom: 2em; }
.hebrew { direction: rtl; margin-bottom: 1em; }
footer { margin-top: 3em; font-size: 0.8em; color: #666; }
</style>
</head>
<body>
<h3>{{.Heading}}</h3>
{{range .Passages}}
<div class="passage" id="p{{.Number}}">
<div class="hebrew">{{.Original}}</div>
<div class="english">{{.Translation}}</div>
</div>
{{end}}
<footer>
<p>Disclaimer: The English text is translated by AI and may not be 100% accurate.
The original Hebrew text was retrieved from
<a href="https://sefaria.org" target="_blank">sefaria.org</a>
on {{.Retrieved}}.</p>
</footer>
</body>
</html>
`))

type htmlPassage struct {
	Number      int
	Original    template.HTML
	Translation template.HTML
}

// Render encodes doc in the given format.
func Render(doc *Document, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatHTML:
		return renderHTML(doc)
	case FormatText:
		return renderText(doc)
	case FormatMarkdown:
		return renderMarkdown(doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

func headings(doc *Document) (title, heading string, err error) {
	title, err = doc.Ref.DisplayText(reference.LevelChapter, true)
	if err != nil {
		return "", "", err
	}
	heading, err = doc.Ref.DisplayText(reference.LevelChapter, false)
	if err != nil {
		return "", "", err
	}
	return title, heading, nil
}

func renderHTML(doc *Document) ([]byte, error) {
	title, heading, err := headings(doc)
	if err != nil {
		return nil, err
	}

	data := struct {
		Title     string
		Heading   string
		Passages  []htmlPassage
		Retrieved string
	}{
		Title:     title,
		Heading:   heading,
		Retrieved: doc.RetrievedAt.Format("2006-01-02"),
	}
	for _, p := range doc.Passages {
		data.Passages = append(data.Passages, htmlPassage{
			Number: p.Number,
			// Sefaria text carries its own inline markup.
			Original:    template.HTML(p.Original),
			Translation: template.HTML(markdown.PassageHTML(p.Translation)),
		})
	}

	var buf bytes.Buffer
	if err := chapterTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}
	return buf.Bytes(), nil
}

func renderText(doc *Document) ([]byte, error) {
	title, _, err := headings(doc)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len([]rune(title))))
	sb.WriteString("\n\n")
	for _, p := range doc.Passages {
		fmt.Fprintf(&sb, "[%d]\n", p.Number)
		sb.WriteString(strings.TrimSpace(markdown.StripHTMLTags(p.Original)))
		sb.WriteString("\n\n")
		sb.WriteString(markdown.ToPlainText([]byte(p.Translation)))
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Translated by AI (%s). Original text retrieved from sefaria.org on %s.\n",
		doc.ModelVersion, doc.RetrievedAt.Format("2006-01-02"))
	return []byte(sb.String()), nil
}

func renderMarkdown(doc *Document) ([]byte, error) {
	title, _, err := headings(doc)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	for _, p := range doc.Passages {
		original, err := markdown.FromHTML(p.Original)
		if err != nil {
			return nil, fmt.Errorf("passage %d: %w", p.Number, err)
		}
		translation, err := markdown.FromHTML(markdown.PassageHTML(p.Translation))
		if err != nil {
			return nil, fmt.Errorf("passage %d: %w", p.Number, err)
		}
		fmt.Fprintf(&sb, "### %d\n\n%s\n\n%s\n\n", p.Number, original, translation)
	}
	fmt.Fprintf(&sb, "---\n\n_Translated by AI (%s). Original text retrieved from [sefaria.org](https://sefaria.org) on %s._\n",
		doc.ModelVersion, doc.RetrievedAt.Format("2006-01-02"))
	return []byte(sb.String()), nil
}
