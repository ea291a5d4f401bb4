package parser

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"paperetl/internal/domain/entity"
	"paperetl/internal/utils/text"
)

// Feed parses generic RSS/Atom feeds from preprint servers and journals that
// publish plain syndication feeds rather than the arXiv dialect. Each item
// becomes one article with title and abstract sections.
type Feed struct{}

// NewFeed creates a generic feed parser.
func NewFeed() *Feed {
	return &Feed{}
}

// Parse implements Parser.
func (f *Feed) Parse(stream io.Reader, source string, emit Emit) error {
	feed, err := gofeed.NewParser().Parse(stream)
	if err != nil {
		return fmt.Errorf("Parse: %w", err)
	}

	for _, item := range feed.Items {
		article := f.process(item, source)
		if article == nil {
			continue
		}
		if err := emit(article); err != nil {
			return err
		}
	}

	return nil
}

func (f *Feed) process(item *gofeed.Item, source string) *entity.Article {
	reference := item.Link
	if reference == "" {
		reference = item.GUID
	}

	title := collapse(item.Title)
	if reference == "" && title == "" {
		return nil
	}

	uid := reference
	if uid == "" {
		uid = title
	}

	entry := time.Now().UTC()
	if item.UpdatedParsed != nil {
		entry = *item.UpdatedParsed
	} else if item.PublishedParsed != nil {
		entry = *item.PublishedParsed
	}

	tags := []string{"FEED"}
	tags = append(tags, item.Categories...)

	var names []string
	for _, author := range item.Authors {
		if name := collapse(author.Name); name != "" {
			names = append(names, name)
		}
	}

	// Content holds the full entry body when present; Description is the
	// summary fallback
	summary := item.Content
	if summary == "" {
		summary = item.Description
	}

	sections := []entity.Section{{Name: "TITLE", Text: title}}
	for _, sentence := range text.Sentences(text.Transform(stripMarkup(summary))) {
		sections = append(sections, entity.Section{Name: "ABSTRACT", Text: sentence})
	}

	return &entity.Article{
		UID:       ContentHash(uid),
		Source:    source,
		Published: item.PublishedParsed,
		Authors:   strings.Join(names, "; "),
		Title:     title,
		Tags:      strings.Join(tags, "; "),
		Reference: reference,
		Entry:     entry,
		Sections:  text.FilterSections(sections),
	}
}

// stripMarkup reduces feed HTML to its text content.
func stripMarkup(value string) string {
	if !strings.Contains(value, "<") {
		return collapse(value)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return collapse(value)
	}
	return collapse(doc.Text())
}
