package entity

import "errors"

var (
	// ErrMissingUID indicates an article without a usable identifier.
	// Parsers must derive a content hash before handing articles off, so
	// seeing this error means the record had neither a title nor a
	// reference to hash.
	ErrMissingUID = errors.New("article has no identifier")

	// ErrNoSections indicates an article with no text content beyond the
	// title. Such records carry no indexable text and are skipped.
	ErrNoSections = errors.New("article has no text sections")
)
