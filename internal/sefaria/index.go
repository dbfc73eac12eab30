package sefaria

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/reference"
)

// TitleNode is one localized title of a schema node.
type TitleNode struct {
	Lang    string `json:"lang"`
	Text    string `json:"text"`
	Primary bool   `json:"primary"`
}

// Node describes one jagged-array node of a text's schema.
type Node struct {
	NodeType     string      `json:"nodeType"`
	Depth        int         `json:"depth"`
	SectionNames []string    `json:"sectionNames"`
	Titles       []TitleNode `json:"titles"`
}

// PrimaryTitles returns the primary English and Hebrew titles, if any.
func (n Node) PrimaryTitles() (english, hebrew string) {
	for _, t := range n.Titles {
		if !t.Primary {
			continue
		}
		switch t.Lang {
		case "en":
			english = t.Text
		case "he":
			hebrew = t.Text
		}
	}
	return english, hebrew
}

// Index is the raw index record of a text.
type Index struct {
	Title      string   `json:"title"`
	Categories []string `json:"categories"`
	EnDesc     string   `json:"enDesc"`
	Authors    []string `json:"authors"`
	Schema     struct {
		Nodes        []Node   `json:"nodes"`
		Depth        int      `json:"depth"`
		SectionNames []string `json:"sectionNames"`
	} `json:"schema"`
}

// FetchIndex returns the index record for title ("Pardes_Rimmonim" or "Pardes Rimmonim").
func (c *Client) FetchIndex(ctx context.Context, title string) (*Index, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", internal.ErrInvalidArgument)
	}
	endpoint := fmt.Sprintf("%s/api/v2/raw/index/%s", c.baseURL, url.PathEscape(strings.ReplaceAll(title, " ", "_")))

	var idx Index
	if err := c.getJSON(ctx, endpoint, &idx); err != nil {
		return nil, err
	}
	if idx.Title == "" {
		return nil, &FetchError{URL: endpoint, Err: fmt.Errorf("index has no title")}
	}
	return &idx, nil
}

// sectionNames returns the level names of the text's first jagged-array
// node, falling back to the schema root for simple texts.
func (i *Index) sectionNames() []string {
	for _, n := range i.Schema.Nodes {
		if len(n.SectionNames) > 0 {
			return n.SectionNames
		}
	}
	return i.Schema.SectionNames
}

// Labels maps the text's own level names ("Gate", "Chapter", "Paragraph")
// onto reference labels. Missing names keep the generic defaults.
func (i *Index) Labels() reference.Labels {
	labels := reference.DefaultLabels()
	names := i.sectionNames()
	if len(names) > 0 && names[0] != "" {
		labels.Section = names[0]
	}
	if len(names) > 1 && names[1] != "" {
		labels.Chapter = names[1]
	}
	if len(names) > 2 && names[2] != "" {
		labels.Passage = names[2]
	}
	return labels
}

// NodeMeta is the stored summary of a schema node.
type NodeMeta struct {
	Depth        int      `json:"depth"`
	SectionNames []string `json:"section_names"`
	EnglishTitle string   `json:"content_block_title_english,omitempty"`
	HebrewTitle  string   `json:"content_block_title_hebrew,omitempty"`
}

// Meta is the per-text metadata written next to the translated chapters.
type Meta struct {
	Title               string           `json:"title"`
	SefariaTitle        string           `json:"sefaria_title"`
	Categories          []string         `json:"categories,omitempty"`
	Description         string           `json:"description,omitempty"`
	AuthorNames         []string         `json:"sefaria_author_names"`
	AuthorsDisplayNames string           `json:"authors_display_names"`
	Labels              reference.Labels `json:"labels"`
	Schema              []NodeMeta       `json:"text_schema"`
}

// Meta summarizes the index. sefariaTitle defaults to the title with
// spaces replaced by underscores.
func (i *Index) Meta(sefariaTitle, authorsDisplayNames string) Meta {
	if sefariaTitle == "" {
		sefariaTitle = strings.ReplaceAll(i.Title, " ", "_")
	}
	m := Meta{
		Title:               i.Title,
		SefariaTitle:        sefariaTitle,
		Categories:          i.Categories,
		Description:         i.EnDesc,
		AuthorNames:         i.Authors,
		AuthorsDisplayNames: authorsDisplayNames,
		Labels:              i.Labels(),
	}
	for _, n := range i.Schema.Nodes {
		en, he := n.PrimaryTitles()
		m.Schema = append(m.Schema, NodeMeta{
			Depth:        n.Depth,
			SectionNames: n.SectionNames,
			EnglishTitle: en,
			HebrewTitle:  he,
		})
	}
	if m.AuthorNames == nil {
		m.AuthorNames = []string{}
	}
	return m
}
