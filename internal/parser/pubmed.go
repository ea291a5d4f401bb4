package parser

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"paperetl/internal/domain/entity"
	"paperetl/internal/utils/text"
)

// PubMed parses PubMed archive XML. Archives are multi-gigabyte concatenated
// streams, so records are decoded one at a time and released immediately;
// parse state is bounded by one record, not file size.
type PubMed struct {
	// Optional filters loaded from the config directory. When set, records
	// whose PMID or MeSH codes fall outside the filter are skipped before
	// the rest of the record is processed.
	ids   map[string]struct{}
	codes map[string]struct{}
}

// NewPubMed creates a PubMed parser, loading optional "ids" and "codes"
// filter files from configDir when present.
func NewPubMed(configDir string) *PubMed {
	return &PubMed{
		ids:   loadFilter(configDir, "ids"),
		codes: loadFilter(configDir, "codes"),
	}
}

// loadFilter reads one filter value per line. A missing file means no filter.
func loadFilter(configDir, name string) map[string]struct{} {
	if configDir == "" {
		return nil
	}

	f, err := os.Open(filepath.Join(configDir, name))
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	filter := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			filter[line] = struct{}{}
		}
	}

	return filter
}

// Parse implements Parser. It streams PubmedArticle elements from the input,
// skipping malformed records without aborting the stream.
func (p *PubMed) Parse(stream io.Reader, source string, emit Emit) error {
	decoder := xml.NewDecoder(stream)
	decoder.CharsetReader = charset.NewReaderLabel
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
		if !ok || start.Name.Local != "PubmedArticle" {
			continue
		}

		var record pubmedArticle
		if err := decoder.DecodeElement(&record, &start); err != nil {
			slog.Warn("skipping malformed record",
				slog.String("source", source),
				slog.Any("error", err))
			continue
		}

		article := p.process(&record, source)
		if article == nil {
			continue
		}
		if err := emit(article); err != nil {
			return err
		}
	}
}

// process converts one decoded record into an Article, or nil if the record
// is filtered out or carries no text content.
func (p *PubMed) process(record *pubmedArticle, source string) *entity.Article {
	citation := &record.Citation
	body := &citation.Article

	uid := strings.TrimSpace(citation.PMID)
	if uid == "" {
		slog.Warn("skipping record without PMID", slog.String("source", source))
		return nil
	}

	// Check cheap filters before processing the rest of the record
	if p.ids != nil {
		if _, ok := p.ids[uid]; !ok {
			return nil
		}
	}

	mesh := citation.meshCodes()
	if len(mesh) > 0 && p.codes != nil && !anyCode(mesh, p.codes) {
		return nil
	}

	if source == "" {
		source = "PMB"
	}

	title := flattenXML(body.Title.Inner)
	sections := pubmedSections(body, title)

	// Require a title and at least one abstract sentence
	if len(sections) < 2 {
		return nil
	}

	authors, affiliations, affiliation := pubmedAuthors(body.Authors)

	entry := compositeDate(citation.DateRevised.Year, citation.DateRevised.Month, citation.DateRevised.Day)
	if entry == nil {
		now := time.Now().UTC()
		entry = &now
	}

	return &entity.Article{
		UID:          uid,
		Source:       source,
		Published:    pubmedPublished(&body.Journal.PubDate),
		Publication:  body.Journal.Title,
		Authors:      authors,
		Affiliations: affiliations,
		Affiliation:  affiliation,
		Title:        title,
		Tags:         strings.Join(append([]string{"PMB"}, mesh...), "; "),
		Reference:    "https://pubmed.ncbi.nlm.nih.gov/" + uid,
		Entry:        *entry,
		Sections:     text.FilterSections(sections),
	}
}

// pubmedSections builds the section list. Article abstracts appear in three
// shapes: raw text, HTML formatted text, and abstract text parsed into
// labeled elements. Each needs its own extraction strategy.
func pubmedSections(body *pubmedBody, title string) []entity.Section {
	var sections []entity.Section
	if title != "" {
		sections = append(sections, entity.Section{Name: "TITLE", Text: title})
	}

	elements := body.Abstract
	if len(elements) == 1 {
		return append(sections, singleSections(elements[0].Inner)...)
	}

	return append(sections, labeledSections(elements)...)
}

// singleSections handles the single-element abstract shapes. Any text before
// the first markup element routes to the raw path; an abstract that opens
// with a styled run is treated as HTML formatted.
func singleSections(inner string) []entity.Section {
	nodes := parseFragment(inner)
	if leadingText(nodes) != "" || !hasElement(nodes) {
		return rawSections(inner)
	}
	return formattedSections(nodes)
}

// rawSections handles the plain-text abstract shape.
func rawSections(inner string) []entity.Section {
	cleaned := text.Transform(flattenXML(inner))

	var sections []entity.Section
	for _, sentence := range text.Sentences(cleaned) {
		sections = append(sections, entity.Section{Name: "ABSTRACT", Text: sentence})
	}
	return sections
}

// labeledSections handles abstracts already split into named elements.
func labeledSections(elements []abstractText) []entity.Section {
	var sections []entity.Section

	for _, element := range elements {
		name := sectionName(element.Label)
		if name == "" {
			name = "ABSTRACT"
		}

		cleaned := text.Transform(flattenXML(element.Inner))
		for _, sentence := range text.Sentences(cleaned) {
			sections = append(sections, entity.Section{Name: name, Text: sentence})
		}
	}

	return sections
}

// formattedSections handles HTML formatted abstracts where section names are
// embedded as styled runs (typically <b> headings) between text. It walks the
// fragment's nodes, detecting the heading tag from the first styled run and
// starting a new section at each subsequent run of that tag.
func formattedSections(nodes []*xhtml.Node) []entity.Section {
	var sections []entity.Section
	name, tag := "ABSTRACT", ""
	var texts []string

	flush := func() {
		if len(texts) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(texts, ""))
		for _, sentence := range text.Sentences(joined) {
			sections = append(sections, entity.Section{Name: name, Text: sentence})
		}
	}

	for i, node := range nodes {
		if node.Type != xhtml.ElementNode {
			continue
		}

		rtext := textContent(node)
		ctext := sectionName(rtext)
		isNew := false

		// Adopt a heading tag when no tag is set yet, no text is queued,
		// and this run is either a <b> or a known background heading
		if tag == "" && ctext != "" && len(texts) == 0 && (node.Data == "b" || isBackground(ctext)) {
			tag = node.Data
		}

		// Start a new section on a heading-tag run (or, with no tag, once
		// text is queued), provided the previous text ended a sentence
		closed := len(texts) == 0 || strings.HasSuffix(strings.TrimSpace(texts[len(texts)-1]), ".")
		if ((tag != "" && node.Data == tag && ctext != "") || (tag == "" && len(texts) > 0)) && closed {
			flush()
			if tag != "" {
				name = ctext
			} else {
				name = "ABSTRACT"
			}
			texts = nil
			isNew = true
		}

		// Queue section text, skipping run text consumed as a section name
		segment := ""
		if !isNew && ctext != "" {
			segment = rtext
		}
		segment += tailText(nodes, i)
		if strings.TrimSpace(segment) != "" {
			texts = append(texts, segment)
		}
	}

	flush()
	return sections
}

// pubmedPublished parses the journal publish date, falling back to the year
// embedded in a MedlineDate range when no structured date exists.
func pubmedPublished(date *pubmedPubDate) *time.Time {
	if parsed := compositeDate(date.Year, date.Month, date.Day); parsed != nil {
		return parsed
	}

	if match := yearPattern.FindString(date.MedlineDate); match != "" {
		return ParseDate(match)
	}
	return nil
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// compositeDate assembles a date from separately encoded year/month/day
// fields. Missing month or day default to January / the 1st. Returns nil when
// the year is absent or unparseable.
func compositeDate(year, month, day string) *time.Time {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return nil
	}

	m := time.January
	if month = strings.TrimSpace(month); month != "" {
		if n, err := strconv.Atoi(month); err == nil && n >= 1 && n <= 12 {
			m = time.Month(n)
		} else if parsed, err := time.Parse("Jan", month); err == nil {
			m = parsed.Month()
		}
	}

	d := 1
	if day = strings.TrimSpace(day); day != "" {
		if n, err := strconv.Atoi(day); err == nil && n >= 1 && n <= 31 {
			d = n
		}
	}

	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &date
}

// pubmedAuthors builds the author list and affiliation fields.
func pubmedAuthors(authors []pubmedAuthor) (string, string, string) {
	var names []string
	var affiliations []string

	for _, author := range authors {
		for _, affiliation := range author.Affiliations {
			if value := strings.TrimSpace(flattenXML(affiliation.Inner)); value != "" {
				affiliations = append(affiliations, value)
			}
		}

		if author.LastName != "" && author.ForeName != "" {
			names = append(names, author.LastName+", "+author.ForeName)
		}
	}

	return strings.Join(names, "; "), JoinUnique(affiliations), PrimaryAffiliation(affiliations)
}

func anyCode(mesh []string, codes map[string]struct{}) bool {
	for _, code := range mesh {
		if _, ok := codes[code]; ok {
			return true
		}
	}
	return false
}

// isBackground reports whether a section name is a background category.
func isBackground(name string) bool {
	name = strings.ToLower(name)
	for _, category := range []string{"aim", "introduction", "background", "purpose", "objective"} {
		if strings.Contains(name, category) {
			return true
		}
	}
	return false
}

var sectionTrailer = regexp.MustCompile(`[^\w)]+$`)

// sectionName normalizes an embedded section heading to its uppercase form.
func sectionName(name string) string {
	return strings.ToUpper(sectionTrailer.ReplaceAllString(strings.TrimSpace(name), ""))
}

var xmlTags = regexp.MustCompile(`<[^>]*>`)

// flattenXML strips markup from mixed content, returning the concatenated
// text the way element tree iteration would.
func flattenXML(inner string) string {
	return strings.TrimSpace(html.UnescapeString(xmlTags.ReplaceAllString(inner, "")))
}

// parseFragment parses mixed content into a node list, preserving text nodes
// between elements.
func parseFragment(inner string) []*xhtml.Node {
	body := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(inner), body)
	if err != nil {
		return nil
	}
	return nodes
}

// textContent returns the concatenated text of a node subtree.
func textContent(node *xhtml.Node) string {
	if node.Type == xhtml.TextNode {
		return node.Data
	}

	var sb strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}

// tailText returns the fragment text between nodes[i] and the next element.
// ParseFragment returns top-level nodes as detached trees, so tails are read
// from the slice, not sibling links.
func tailText(nodes []*xhtml.Node, i int) string {
	var sb strings.Builder
	for _, node := range nodes[i+1:] {
		if node.Type == xhtml.ElementNode {
			break
		}
		if node.Type == xhtml.TextNode {
			sb.WriteString(node.Data)
		}
	}
	return sb.String()
}

// leadingText returns the fragment text before the first element.
func leadingText(nodes []*xhtml.Node) string {
	var sb strings.Builder
	for _, node := range nodes {
		if node.Type == xhtml.ElementNode {
			break
		}
		if node.Type == xhtml.TextNode {
			sb.WriteString(node.Data)
		}
	}
	return sb.String()
}

func hasElement(nodes []*xhtml.Node) bool {
	for _, node := range nodes {
		if node.Type == xhtml.ElementNode {
			return true
		}
	}
	return false
}

// pubmedArticle mirrors the subset of the PubmedArticle schema the parser
// consumes. Decoding into minimal structs keeps memory bounded per record.
type pubmedArticle struct {
	Citation pubmedCitation `xml:"MedlineCitation"`
}

type pubmedCitation struct {
	PMID        string             `xml:"PMID"`
	DateRevised pubmedDate         `xml:"DateRevised"`
	Descriptors []pubmedDescriptor `xml:"MeshHeadingList>MeshHeading>DescriptorName"`
	Article     pubmedBody         `xml:"Article"`
}

func (c *pubmedCitation) meshCodes() []string {
	var codes []string
	for _, descriptor := range c.Descriptors {
		if descriptor.UI != "" {
			codes = append(codes, descriptor.UI)
		}
	}
	return codes
}

type pubmedDescriptor struct {
	UI string `xml:"UI,attr"`
}

type pubmedDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

type pubmedBody struct {
	Title    innerXML       `xml:"ArticleTitle"`
	Abstract []abstractText `xml:"Abstract>AbstractText"`
	Authors  []pubmedAuthor `xml:"AuthorList>Author"`
	Journal  pubmedJournal  `xml:"Journal"`
}

type innerXML struct {
	Inner string `xml:",innerxml"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

type pubmedAuthor struct {
	LastName     string     `xml:"LastName"`
	ForeName     string     `xml:"ForeName"`
	Affiliations []innerXML `xml:"AffiliationInfo>Affiliation"`
}

type pubmedJournal struct {
	Title   string        `xml:"Title"`
	PubDate pubmedPubDate `xml:"JournalIssue>PubDate"`
}

type pubmedPubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}
