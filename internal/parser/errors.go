package parser

import "errors"

var (
	// ErrNoIdentifier indicates a record with neither a native id nor
	// content usable for a hash. The record is skipped.
	ErrNoIdentifier = errors.New("no unique identifier found")

	// ErrUnknownFormat indicates a file whose extension and source label
	// match no registered parser.
	ErrUnknownFormat = errors.New("no parser registered for format")
)
