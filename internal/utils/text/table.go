package text

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var tableWhitespace = regexp.MustCompile("[\n \t]|\\s{2,}")

// ParseTable parses an HTML table string and flattens it into one
// header-prefixed string per data row.
func ParseTable(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	return ExtractTable(doc.Find("table").First()), nil
}

// ExtractTable flattens a table selection into one string per data row. The
// first row supplies headers; each data cell is rendered as "header cell",
// cells joined with single spaces. Headers default to empty when a row has
// more cells than the header row. Rows that reduce to empty strings are
// dropped; a table with no data rows yields nil.
func ExtractTable(table *goquery.Selection) []string {
	rows := table.Find("tr, row")
	if rows.Length() < 2 {
		return nil
	}

	headers := cellText(rows.First())

	var output []string
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		values := make([]string, 0, len(headers))
		for i, cell := range cellText(row) {
			header := ""
			if i < len(headers) {
				header = headers[i]
			}
			values = append(values, header+" "+cell)
		}

		value := strings.TrimSpace(tableWhitespace.ReplaceAllString(strings.Join(values, " "), " "))
		if value != "" {
			output = append(output, value)
		}
	})

	return output
}

func cellText(row *goquery.Selection) []string {
	var cells []string
	row.ChildrenFiltered("td, th, cell").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, cell.Text())
	})
	return cells
}
