package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"paperetl/internal/domain/entity"
	"paperetl/internal/resilience/retry"
)

// articlesIndex is the search index holding article documents.
const articlesIndex = "articles"

// articlesMapping keeps sections as nested objects so section-level queries
// stay scoped to a single section.
const articlesMapping = `{
    "settings": {
        "number_of_shards": 5,
        "number_of_replicas": 0,
        "index.mapping.nested_objects.limit": 30000
    },
    "mappings": {
        "properties": {
            "sections": {"type": "nested"}
        }
    }
}`

// Elastic stores articles in a search index through the bulk API. Documents
// are buffered and flushed in batches.
type Elastic struct {
	client *elasticsearch.Client

	buffer   bytes.Buffer
	buffered int
	rows     int

	retry retry.Config
}

// NewElastic connects to the search index at url, creating the articles
// index when missing and recreating it when replace is set.
func NewElastic(url string, replace bool) (*Elastic, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("NewElastic: connect: %w", err)
	}

	store := &Elastic{client: client, retry: retry.IndexConfig()}
	if err := store.ensureIndex(replace); err != nil {
		return nil, err
	}

	return store, nil
}

func (e *Elastic) ensureIndex(replace bool) error {
	res, err := e.client.Indices.Exists([]string{articlesIndex})
	if err != nil {
		return fmt.Errorf("NewElastic: check index: %w", err)
	}
	exists := res.StatusCode == 200
	drain(res)

	if exists && replace {
		res, err := e.client.Indices.Delete([]string{articlesIndex})
		if err != nil {
			return fmt.Errorf("NewElastic: delete index: %w", err)
		}
		if err := responseError(res, "delete index"); err != nil {
			return fmt.Errorf("NewElastic: %w", err)
		}
		exists = false
	}

	if !exists {
		res, err := e.client.Indices.Create(articlesIndex,
			e.client.Indices.Create.WithBody(strings.NewReader(articlesMapping)))
		if err != nil {
			return fmt.Errorf("NewElastic: create index: %w", err)
		}
		if err := responseError(res, "create index"); err != nil {
			return fmt.Errorf("NewElastic: %w", err)
		}
	}

	return nil
}

// Save implements Database. Deduplication relies on indexing by uid, the
// index keeps whichever document was written last.
func (e *Elastic) Save(ctx context.Context, article *entity.Article) error {
	document := BuildDocument(article)

	action, err := json.Marshal(map[string]any{
		"index": map[string]any{"_index": articlesIndex, "_id": document.ID},
	})
	if err != nil {
		return fmt.Errorf("Save: marshal action: %w", err)
	}
	payload, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("Save: marshal document: %w", err)
	}

	e.buffer.Write(action)
	e.buffer.WriteByte('\n')
	e.buffer.Write(payload)
	e.buffer.WriteByte('\n')
	e.buffered++
	e.rows++

	if e.buffered >= batchSize {
		if err := e.flush(ctx); err != nil {
			return err
		}
		slog.Info("inserted articles", slog.Int("count", e.rows))
	}

	return nil
}

// Merge implements Database. The bulk API has no cheap cross-cluster copy,
// so every id is handed back for reprocessing.
func (e *Elastic) Merge(_ context.Context, _ string, ids map[string]time.Time) ([]string, error) {
	reprocess := make([]string, 0, len(ids))
	for uid := range ids {
		reprocess = append(reprocess, uid)
	}
	return reprocess, nil
}

// Complete implements Database. Flushes buffered documents and refreshes
// the index so the run's output is immediately searchable.
func (e *Elastic) Complete(ctx context.Context) error {
	if err := e.flush(ctx); err != nil {
		return err
	}

	slog.Info("total articles inserted", slog.Int("count", e.rows))

	res, err := e.client.Indices.Refresh(
		e.client.Indices.Refresh.WithIndex(articlesIndex),
		e.client.Indices.Refresh.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("Complete: refresh index: %w", err)
	}
	if err := responseError(res, "refresh index"); err != nil {
		return fmt.Errorf("Complete: %w", err)
	}

	return nil
}

// Close implements Database.
func (e *Elastic) Close() error {
	return nil
}

func (e *Elastic) flush(ctx context.Context) error {
	if e.buffered == 0 {
		return nil
	}

	body := e.buffer.Bytes()

	err := retry.WithBackoff(ctx, e.retry, func() error {
		res, err := e.client.Bulk(bytes.NewReader(body),
			e.client.Bulk.WithContext(ctx))
		if err != nil {
			return err
		}
		return responseError(res, "bulk")
	})
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	e.buffer.Reset()
	e.buffered = 0
	return nil
}

// responseError maps an API error response to a retryable HTTPError.
func responseError(res *esapi.Response, operation string) error {
	defer drain(res)

	if !res.IsError() {
		return nil
	}
	return &retry.HTTPError{
		StatusCode: res.StatusCode,
		Message:    fmt.Sprintf("%s: %s", operation, res.String()),
	}
}

// drain releases the response body so the connection can be reused.
func drain(res *esapi.Response) {
	if res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
