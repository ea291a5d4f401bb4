package parser

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"paperetl/internal/domain/entity"
	"paperetl/internal/study"
	"paperetl/internal/utils/text"
)

// TEI parses TEI (Text Encoding Initiative) XML as produced by document
// structuring services for PDF articles. One stream yields at most one
// article.
type TEI struct {
	classifier study.Classifier
}

// NewTEI creates a TEI parser. The classifier labels the parsed sections with
// a study design; pass study.Noop{} to disable classification.
func NewTEI(classifier study.Classifier) *TEI {
	if classifier == nil {
		classifier = study.Noop{}
	}
	return &TEI{classifier: classifier}
}

// Parse implements Parser.
func (t *TEI) Parse(stream io.Reader, source string, emit Emit) error {
	doc, err := goquery.NewDocumentFromReader(stream)
	if err != nil {
		return fmt.Errorf("Parse: %w", err)
	}

	article := t.process(doc, source)
	if article == nil {
		return nil
	}
	return emit(article)
}

func (t *TEI) process(doc *goquery.Document, source string) *entity.Article {
	title := strings.TrimSpace(doc.Find("titlestmt > title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	published, publication, authors, reference := teiMetadata(doc)

	// A document without a title or reference has no stable identity
	if title == "" && reference == "" {
		slog.Warn("failed to parse content - no unique identifier found",
			slog.String("source", source))
		return nil
	}

	hashInput := title
	if hashInput == "" {
		hashInput = reference
	}
	uid := ContentHash(hashInput)

	if title == "" {
		title = source
	}

	sections := text.FilterSections(teiText(doc, title))

	tags := "PDF"
	if design := t.classifier.Predict(sections); design != "" {
		tags = tags + "; " + design
	}

	return &entity.Article{
		UID:         uid,
		Source:      source,
		Published:   published,
		Publication: publication,
		Authors:     authors,
		Title:       title,
		Tags:        tags,
		Reference:   reference,
		Entry:       time.Now().UTC(),
		Sections:    sections,
		Citations:   teiCitations(doc),
	}
}

// teiMetadata extracts bibliographic fields from the TEI source description.
func teiMetadata(doc *goquery.Document) (*time.Time, string, string, string) {
	source := doc.Find("sourcedesc").First()
	if source.Length() == 0 {
		return nil, "", "", ""
	}

	monogr := source.Find("monogr").First()
	published := ParseDate(monogr.Find("date").First().AttrOr("when", ""))
	publication := strings.TrimSpace(monogr.Find("title").First().Text())

	var names []string
	source.Find("persname").Each(func(_ int, name *goquery.Selection) {
		surname := strings.TrimSpace(name.Find("surname").First().Text())
		forename := strings.TrimSpace(name.Find("forename").First().Text())
		if surname != "" && forename != "" {
			names = append(names, surname+", "+forename)
		}
	})

	reference := ""
	if bibl := doc.Find("biblstruct").First(); bibl.Length() > 0 {
		if value := strings.TrimSpace(bibl.Find("idno").First().Text()); value != "" {
			reference = "https://doi.org/" + value
		}
	}

	return published, publication, strings.Join(names, "; "), reference
}

// teiText builds the full section list: title, abstract sentences, body
// divisions in document order, then embedded tables named by figure id.
func teiText(doc *goquery.Document, title string) []entity.Section {
	sections := []entity.Section{{Name: "TITLE", Text: title}}

	if abstract := strings.TrimSpace(doc.Find("abstract").First().Text()); abstract != "" {
		cleaned := text.Transform(strings.ReplaceAll(abstract, "\n", " "))
		for _, sentence := range text.Sentences(cleaned) {
			sections = append(sections, entity.Section{Name: "ABSTRACT", Text: sentence})
		}
	}

	body := doc.Find("text").First()

	body.ChildrenFiltered("div").Each(func(_ int, div *goquery.Selection) {
		name, content := divHeading(div)
		cleaned := text.Transform(strings.ReplaceAll(content, "\n", " "))
		for _, sentence := range text.Sentences(cleaned) {
			sections = append(sections, entity.Section{Name: name, Text: sentence})
		}
	})

	// Figures are uniquely named by their XML id. Table rows are selected
	// from the whole figure: lenient parsing moves non-HTML row elements
	// out of the table element itself.
	body.Find("figure").Each(func(_ int, figure *goquery.Selection) {
		name := strings.ToUpper(figure.AttrOr("xml:id", ""))

		for _, row := range text.ExtractTable(figure) {
			sections = append(sections, entity.Section{Name: name, Text: row})
		}
	})

	return sections
}

// divHeading splits a division into its heading and remaining text. Section
// headings survive lenient parsing as a leading bare text node.
func divHeading(div *goquery.Selection) (string, string) {
	nodes := div.Contents()
	if nodes.Length() == 0 {
		return "", ""
	}

	name := ""
	start := 0
	if first := nodes.First(); goquery.NodeName(first) == "#text" {
		name = strings.ToUpper(strings.TrimSpace(first.Text()))
		start = 1
	}

	var sb strings.Builder
	nodes.Slice(start, nodes.Length()).Each(func(_ int, node *goquery.Selection) {
		sb.WriteString(node.Text())
		sb.WriteString(" ")
	})

	return name, sb.String()
}

// teiCitations collects referenced work titles from the bibliography,
// aggregating repeated titles into mention counts.
func teiCitations(doc *goquery.Document) []entity.Citation {
	mentions := make(map[string]int)
	var order []string

	doc.Find("listbibl biblstruct").Each(func(_ int, bibl *goquery.Selection) {
		title := collapse(bibl.Find("title").First().Text())
		if title == "" {
			return
		}
		if mentions[title] == 0 {
			order = append(order, title)
		}
		mentions[title]++
	})

	citations := make([]entity.Citation, 0, len(order))
	for _, title := range order {
		citations = append(citations, entity.Citation{Title: title, Mentions: mentions[title]})
	}
	return citations
}
