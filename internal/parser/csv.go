package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"paperetl/internal/domain/entity"
)

// Keyword patterns scanned when a row has no tags column. A match labels the
// article COVID-19, feeding the load-time inclusion policy.
var keywordPattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`\b2019[-\s]?n[-\s]?cov\b`,
	`\b2019 novel coronavirus\b`,
	`\bcoronavirus 2(?:019)?\b`,
	`\bcoronavirus disease (?:20)?19\b`,
	`\bcovid(?:[-\s]?(?:20)?19)?\b`,
	`\bn\s?cov[-\s]?2019\b`,
	`\bsars[-\s]cov-?2\b`,
	`\bwuhan (?:coronavirus|cov|pneumonia)\b`,
}, "|"))

// keywordEpoch cuts off the keyword scan. Documents published earlier cannot
// be about the pandemic and keep empty tags.
var keywordEpoch = time.Date(2019, time.July, 1, 0, 0, 0, 0, time.UTC)

// keywordTags scans text for pandemic keywords, returning the matched tag or
// the empty string.
func keywordTags(texts ...string) string {
	for _, t := range texts {
		if keywordPattern.MatchString(t) {
			return "COVID-19"
		}
	}
	return ""
}

// CSV parses tabular exports where each row maps 1:1 to one article. Rows
// carry metadata columns by name; title and abstract are concatenated into a
// single unnamed section when no richer structure exists.
type CSV struct{}

// NewCSV creates a tabular-row parser.
func NewCSV() *CSV {
	return &CSV{}
}

// Parse implements Parser.
func (c *CSV) Parse(stream io.Reader, source string, emit Emit) error {
	reader := csv.NewReader(stream)

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("Parse: header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				slog.Warn("skipping malformed row",
					slog.String("source", source),
					slog.Any("error", err))
				continue
			}
			return fmt.Errorf("Parse: row: %w", err)
		}

		article := c.process(columns, row, source)
		if article == nil {
			continue
		}
		if err := emit(article); err != nil {
			return err
		}
	}
}

func (c *CSV) process(columns map[string]int, row []string, source string) *entity.Article {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	title := field("title")

	uid := field("id")
	if uid == "" {
		if title == "" {
			return nil
		}
		uid = ContentHash(title)
	}

	// Row source column wins over the stream label
	rowSource := field("source")
	if rowSource == "" {
		rowSource = source
	}

	// Entry date defaults to the observation time when the export has none
	entry := ParseDate(field("entry"))
	if entry == nil {
		now := time.Now().UTC()
		entry = &now
	}

	// Title and abstract form one unnamed section, unsegmented
	content := title
	if abstract := field("abstract"); abstract != "" {
		if content != "" {
			content += " "
		}
		content += abstract
	}
	if content == "" {
		return nil
	}

	published := ParseDate(field("published"))

	// Rows without an explicit tags value fall back to the keyword scan,
	// limited to documents recent enough to qualify
	tags := field("tags")
	if tags == "" && (published == nil || !published.Before(keywordEpoch)) {
		tags = keywordTags(content)
	}

	return &entity.Article{
		UID:          uid,
		Source:       rowSource,
		Published:    published,
		Publication:  field("publication"),
		Authors:      field("authors"),
		Affiliations: field("affiliations"),
		Affiliation:  field("affiliation"),
		Title:        title,
		Tags:         tags,
		Reference:    field("reference"),
		Entry:        *entry,
		Sections:     []entity.Section{{Text: content}},
	}
}
