package storage

import (
	"fmt"
	"strings"
)

// Open creates the output backend selected by a connection-string-like url:
// http(s) selects the search index, json:// and yaml:// select flat-file
// output, anything else is treated as a relational database directory. A
// failure here is fatal for the run.
func Open(url string, replace bool) (Database, error) {
	switch {
	case url == "":
		return nil, fmt.Errorf("Open: empty output url")
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return NewElastic(url, replace)
	case strings.HasPrefix(url, "json://"):
		return NewJSON(strings.TrimPrefix(url, "json://"))
	case strings.HasPrefix(url, "yaml://"):
		return NewYAML(strings.TrimPrefix(url, "yaml://"))
	default:
		return NewSQLite(strings.TrimPrefix(url, "sqlite://"), replace)
	}
}
