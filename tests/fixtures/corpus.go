// Package fixtures provides reusable synthetic input builders for integration
// tests. This package eliminates test data duplication and ensures consistent
// test content across different test suites.
package fixtures

import "strings"

// TEI builds a minimal structured XML document with the given title and one
// abstract sentence per argument, shaped like the output of a document
// conversion service.
//
// Example:
//
//	doc := fixtures.TEI("Attention Is All You Need",
//	    "We propose a new network architecture.",
//	    "Experiments show superior quality.")
func TEI(title string, sentences ...string) string {
	var sb strings.Builder
	sb.WriteString(`<TEI xmlns="http://www.tei-c.org/ns/1.0"><teiHeader><fileDesc><titleStmt><title>`)
	sb.WriteString(title)
	sb.WriteString(`</title></titleStmt></fileDesc><profileDesc><abstract><p>`)
	sb.WriteString(strings.Join(sentences, " "))
	sb.WriteString(`</p></abstract></profileDesc></teiHeader><text></text></TEI>`)
	return sb.String()
}

// EntryDatesCSV builds a version oracle file body from id to date pairs,
// preserving argument order.
//
// Example:
//
//	oracle := fixtures.EntryDatesCSV(
//	    "abc123", "2021-01-10",
//	    "def456", "2021-02-01",
//	)
func EntryDatesCSV(pairs ...string) string {
	var sb strings.Builder
	sb.WriteString("id,date\n")
	for i := 0; i+1 < len(pairs); i += 2 {
		sb.WriteString(pairs[i])
		sb.WriteString(",")
		sb.WriteString(pairs[i+1])
		sb.WriteString("\n")
	}
	return sb.String()
}
