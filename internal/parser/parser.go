// Package parser converts heterogeneous scientific-document formats into
// normalized Article records. All parsers share one contract: consume a stream
// once, emit zero or more articles, and never abort the stream on a malformed
// individual record.
package parser

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"paperetl/internal/domain/entity"
)

// Emit receives each article as it is produced. Returning an error stops the
// parse; parsers propagate that error unchanged.
type Emit func(*entity.Article) error

// Parser converts one input stream into articles. Source is a label describing
// the stream origin, typically the input file name.
type Parser interface {
	Parse(stream io.Reader, source string, emit Emit) error
}

// ContentHash derives a deterministic article uid from content when no native
// identifier exists. Reprocessing the same input always yields the same uid.
func ContentHash(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

var yearOnly = regexp.MustCompile(`^\d{4}$`)

// ParseDate parses a date string tolerantly. Year-only input defaults to
// January 1. Unparseable input yields nil, never an error.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if yearOnly.MatchString(value) {
		year, err := strconv.Atoi(value)
		if err != nil {
			return nil
		}
		date := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &date
	}

	date, err := dateparse.ParseAny(value)
	if err != nil {
		return nil
	}
	return &date
}

// PrimaryAffiliation returns the lexically last affiliation in the list, the
// documented tie-break for an author set's primary affiliation. Returns an
// empty string for an empty list.
func PrimaryAffiliation(affiliations []string) string {
	primary := ""
	for _, affiliation := range affiliations {
		if affiliation > primary {
			primary = affiliation
		}
	}
	return primary
}

// JoinUnique joins values with "; ", dropping exact duplicates while keeping
// first-seen order.
func JoinUnique(values []string) string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))

	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		unique = append(unique, value)
	}

	return strings.Join(unique, "; ")
}
