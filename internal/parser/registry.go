package parser

import (
	"context"
	"fmt"
	"strings"

	"paperetl/internal/study"
)

// Registry resolves a parser for an input file. Parsers hold no per-file
// state between Parse calls, so a registry is built once per worker and
// its parsers reused across files.
type Registry struct {
	csv    *CSV
	pubmed *PubMed
	arxiv  *Arxiv
	feed   *Feed
	tei    *TEI
	pdf    *PDF
}

// NewRegistry builds a registry scoped to one ingestion run. ctx cancels
// remote conversion calls when the run stops. classifier and converter may be
// nil; a nil converter means PDF inputs are skipped with a warning.
func NewRegistry(ctx context.Context, configDir string, classifier study.Classifier, converter Converter) *Registry {
	tei := NewTEI(classifier)

	return &Registry{
		csv:    NewCSV(),
		pubmed: NewPubMed(configDir),
		arxiv:  NewArxiv(),
		feed:   NewFeed(),
		tei:    tei,
		pdf:    NewPDF(ctx, converter, tei),
	}
}

// Lookup returns the parser for a file with the given extension and source
// name. XML is ambiguous on extension alone, so the source name prefix
// selects the dialect; unprefixed XML is treated as TEI.
func (r *Registry) Lookup(extension, source string) (Parser, error) {
	name := strings.ToLower(source)

	switch strings.ToLower(extension) {
	case "pdf":
		return r.pdf, nil
	case "csv":
		return r.csv, nil
	case "xml":
		switch {
		case strings.HasPrefix(name, "arxiv"):
			return r.arxiv, nil
		case strings.HasPrefix(name, "pubmed"):
			return r.pubmed, nil
		case strings.HasPrefix(name, "feed"), strings.HasPrefix(name, "rss"):
			return r.feed, nil
		default:
			return r.tei, nil
		}
	default:
		return nil, fmt.Errorf("Lookup: %s: %w", extension, ErrUnknownFormat)
	}
}
