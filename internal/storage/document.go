package storage

import (
	"time"

	"paperetl/internal/domain/entity"
)

// Document is the serialized form of an article used by the search index and
// flat-file backends.
type Document struct {
	ID           string            `json:"id" yaml:"id"`
	Source       string            `json:"source" yaml:"source"`
	Published    string            `json:"published" yaml:"published"`
	Publication  string            `json:"publication" yaml:"publication"`
	Authors      string            `json:"authors" yaml:"authors"`
	Affiliations string            `json:"affiliations" yaml:"affiliations"`
	Affiliation  string            `json:"affiliation" yaml:"affiliation"`
	Title        string            `json:"title" yaml:"title"`
	Tags         string            `json:"tags" yaml:"tags"`
	Reference    string            `json:"reference" yaml:"reference"`
	Entry        string            `json:"entry" yaml:"entry"`
	Sections     []DocumentSection `json:"sections" yaml:"sections"`
	Citations    []string          `json:"citations" yaml:"citations"`
}

// DocumentSection is a named text section within a Document.
type DocumentSection struct {
	Name string `json:"name" yaml:"name"`
	Text string `json:"text" yaml:"text"`
}

// dateLayout is the canonical timestamp format stored in every backend.
const dateLayout = "2006-01-02 15:04:05"

// BuildDocument flattens an article into its serialized form.
func BuildDocument(article *entity.Article) Document {
	sections := make([]DocumentSection, 0, len(article.Sections))
	for _, section := range article.Sections {
		sections = append(sections, DocumentSection{Name: section.Name, Text: section.Text})
	}

	citations := make([]string, 0, len(article.Citations))
	for _, citation := range article.Citations {
		citations = append(citations, citation.Title)
	}

	return Document{
		ID:           article.UID,
		Source:       article.Source,
		Published:    formatDate(article.Published),
		Publication:  article.Publication,
		Authors:      article.Authors,
		Affiliations: article.Affiliations,
		Affiliation:  article.Affiliation,
		Title:        article.Title,
		Tags:         article.Tags,
		Reference:    article.Reference,
		Entry:        article.Entry.Format(dateLayout),
		Sections:     sections,
		Citations:    citations,
	}
}

func formatDate(date *time.Time) string {
	if date == nil {
		return ""
	}
	return date.Format(dateLayout)
}
