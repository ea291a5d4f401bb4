// Package entity defines the core domain entities and validation logic for the
// application. It contains the fundamental business objects such as Article and
// Section, along with their validation rules and domain-specific errors.
package entity

import "time"

// Article represents one parsed scientific document. It holds bibliographic
// metadata and the ordered text sections extracted from the source stream.
//
// The UID is stable across re-runs: either a native source identifier or a
// deterministic content hash. The Entry date versions this representation of
// the article; the storage engine uses it to decide which of two same-UID
// records is authoritative.
type Article struct {
	UID          string
	Source       string
	Published    *time.Time
	Publication  string
	Authors      string
	Affiliations string
	Affiliation  string
	Title        string
	Tags         string
	Reference    string
	Entry        time.Time

	// Sections in parse order: title, abstract, body, tables.
	Sections []Section

	// Citations referenced by this article, when the source format carries
	// them. Most parsers leave this empty.
	Citations []Citation
}

// Section is one atomic unit of article text, normally a single cleaned
// sentence or table row. Name is a normalized uppercase label ("TITLE",
// "ABSTRACT", a structural heading) or empty for unnamed continuation text.
type Section struct {
	Name string
	Text string
}

// Citation is a referenced work, aggregated by exact title match across an
// ingestion run.
type Citation struct {
	Title    string
	Mentions int
}

// Tagged reports whether the article carries any classification tags.
// The scheduler's inclusion policy drops untagged articles unless a full
// load is requested.
func (a *Article) Tagged() bool {
	return a.Tags != ""
}
