// Package text provides text normalization, sentence segmentation and table
// flattening for the source parsers. All parsers run extracted text through
// Transform before segmenting it into sections.
package text

import (
	"regexp"
	"strings"
)

// Cleanup patterns, applied as one alternation in a single pass.
var cleanPattern = regexp.MustCompile(strings.Join([]string{
	// Emails
	`(\w+@\w+(\.[a-z]{2,})+)`,
	// URLs
	`(http(s)?://\S+)`,
	// Single characters repeated at least 3 times (ex. j o u r n a l)
	`((^|\s)(\w\s+){3,})`,
	// Citation references (ex. [3] [4] [5])
	`((\[\d+\],?\s?){3,}(\.|,)?)`,
	// Citation references (ex. [3, 4, 5])
	`(\[[\d,\s]+\])`,
	// Citation references (ex. (1) (2) (3))
	`((\(\d+\)\s){3,})`,
}, "|"))

var (
	periodRuns = regexp.MustCompile(`\.{2,}`)
	spaceRuns  = regexp.MustCompile(` {2,}`)
)

// Transform cleans a text line to improve indexing accuracy. It strips emails,
// URLs, OCR header artifacts and clustered citation markers, then collapses
// repeated periods and spaces. Transform is deterministic and idempotent.
func Transform(text string) string {
	text = cleanPattern.ReplaceAllString(text, " ")

	// Collapse period runs before space runs so the replacement spaces are
	// folded in the same call, keeping the output stable under re-application.
	text = periodRuns.ReplaceAllString(text, " ")
	text = spaceRuns.ReplaceAllString(text, " ")

	return text
}
