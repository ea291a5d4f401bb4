package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTEI(t *testing.T) {
	doc := TEI("Sample Title", "First sentence.", "Second sentence.")

	assert.Contains(t, doc, "<title>Sample Title</title>")
	assert.Contains(t, doc, "<p>First sentence. Second sentence.</p>")
}

func TestEntryDatesCSV(t *testing.T) {
	oracle := EntryDatesCSV("abc123", "2021-01-10", "def456", "2021-02-01")

	assert.Equal(t, "id,date\nabc123,2021-01-10\ndef456,2021-02-01\n", oracle)
}
