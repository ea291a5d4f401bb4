package text

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// Sentences splits already-cleaned text into sentence strings using UAX #29
// sentence boundaries. Empty and whitespace-only segments are dropped.
func Sentences(text string) []string {
	var out []string

	iter := sentences.FromString(text)
	for iter.Next() {
		if s := strings.TrimSpace(iter.Value()); s != "" {
			out = append(out, s)
		}
	}

	return out
}
