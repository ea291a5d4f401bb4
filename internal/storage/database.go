package storage

import (
	"context"
	"time"

	"paperetl/internal/domain/entity"
)

// Database is the contract every output backend implements. A run drives a
// single Database instance from one consumer goroutine, so implementations
// do not need to be safe for concurrent use.
type Database interface {
	// Save persists an article. Backends with native keys deduplicate on the
	// article uid; the entry date decides which of two versions survives.
	Save(ctx context.Context, article *entity.Article) error

	// Merge copies unchanged articles from a previous run's store at url into
	// this store. ids maps each known article uid to its authoritative entry
	// date. The returned uids were NOT merged and must be reprocessed from
	// source data.
	Merge(ctx context.Context, url string, ids map[string]time.Time) ([]string, error)

	// Complete signals processing is finished and builds any derived
	// structures (indexes, final flushes).
	Complete(ctx context.Context) error

	// Close commits outstanding work and releases the connection.
	Close() error
}
