package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"paperetl/internal/domain/entity"
	"paperetl/internal/utils/text"
)

// Arxiv parses the arXiv API's Atom dialect, including the arxiv namespace
// extensions for journal references and author affiliations.
type Arxiv struct{}

// NewArxiv creates an arXiv feed parser.
func NewArxiv() *Arxiv {
	return &Arxiv{}
}

// Parse implements Parser. Entries are decoded one at a time; a malformed
// entry is logged and skipped.
func (a *Arxiv) Parse(stream io.Reader, source string, emit Emit) error {
	decoder := xml.NewDecoder(stream)
	decoder.Strict = false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("Parse: token: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "entry" {
			continue
		}

		var record arxivEntry
		if err := decoder.DecodeElement(&record, &start); err != nil {
			slog.Warn("skipping malformed entry",
				slog.String("source", source),
				slog.Any("error", err))
			continue
		}

		article := a.process(&record, source)
		if article == nil {
			continue
		}
		if err := emit(article); err != nil {
			return err
		}
	}
}

func (a *Arxiv) process(record *arxivEntry, source string) *entity.Article {
	reference := collapse(record.ID)
	title := collapse(record.Title)
	if reference == "" {
		slog.Warn("skipping entry without id", slog.String("source", source))
		return nil
	}

	// Entry date is the last update; published is the original submission
	published := ParseDate(datePart(record.Published))
	entry := ParseDate(datePart(record.Updated))
	if entry == nil {
		now := time.Now().UTC()
		entry = &now
	}

	tags := []string{"ARX"}
	for _, category := range record.Categories {
		if category.Term != "" {
			tags = append(tags, category.Term)
		}
	}

	authors, affiliations, affiliation := arxivAuthors(record.Authors)

	sections := []entity.Section{{Name: "TITLE", Text: title}}
	for _, sentence := range text.Sentences(text.Transform(collapse(record.Summary))) {
		sections = append(sections, entity.Section{Name: "ABSTRACT", Text: sentence})
	}

	return &entity.Article{
		UID:          ContentHash(reference),
		Source:       source,
		Published:    published,
		Publication:  collapse(record.JournalRef),
		Authors:      authors,
		Affiliations: affiliations,
		Affiliation:  affiliation,
		Title:        title,
		Tags:         strings.Join(tags, "; "),
		Reference:    reference,
		Entry:        *entry,
		Sections:     text.FilterSections(sections),
	}
}

// arxivAuthors builds "Last, First" author names from display-order names and
// collects arxiv:affiliation extensions.
func arxivAuthors(authors []arxivAuthor) (string, string, string) {
	var names []string
	var affiliations []string

	for _, author := range authors {
		name := collapse(author.Name)
		if name != "" {
			if i := strings.LastIndex(name, " "); i >= 0 {
				name = name[i+1:] + ", " + name[:i]
			}
			names = append(names, name)
		}

		for _, affiliation := range author.Affiliations {
			if value := collapse(affiliation); value != "" {
				affiliations = append(affiliations, value)
			}
		}
	}

	return strings.Join(names, "; "), JoinUnique(affiliations), PrimaryAffiliation(affiliations)
}

// datePart drops the time component from an RFC 3339 timestamp.
func datePart(value string) string {
	if i := strings.Index(value, "T"); i >= 0 {
		return value[:i]
	}
	return value
}

var whitespaceRuns = regexp.MustCompile(`\s+`)

// collapse removes newlines and extra spacing from feed text.
func collapse(value string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(strings.ReplaceAll(value, "\n", " "), " "))
}

// arxivEntry mirrors the subset of the arXiv Atom entry the parser consumes.
type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Published  string          `xml:"published"`
	Updated    string          `xml:"updated"`
	Summary    string          `xml:"summary"`
	JournalRef string          `xml:"journal_ref"`
	Authors    []arxivAuthor   `xml:"author"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name         string   `xml:"name"`
	Affiliations []string `xml:"affiliation"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}
