package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"paperetl/internal/domain/entity"
	"paperetl/internal/observability/metrics"
	"paperetl/internal/parser"
	"paperetl/internal/storage"
	"paperetl/internal/study"
)

// message is one item on the output queue. Each worker sends exactly one
// done marker after its last article, so the consumer terminates once it has
// seen a marker per worker.
type message struct {
	article *entity.Article
	done    bool
}

// Pipeline parses input files in parallel and writes the resulting articles
// through a single serial consumer.
type Pipeline struct {
	cfg        *Config
	classifier study.Classifier
	converter  parser.Converter
}

// New creates a pipeline. classifier and converter may be nil.
func New(cfg *Config, classifier study.Classifier, converter parser.Converter) *Pipeline {
	return &Pipeline{cfg: cfg, classifier: classifier, converter: converter}
}

// Run executes one full ingestion pass: scan, optional merge from a previous
// run, parallel parse, serial save, finalize.
func (p *Pipeline) Run(ctx context.Context, db storage.Database) error {
	start := time.Now()

	jobs, err := Scan(p.cfg.Indir)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}
	slog.Info("scanned input directory",
		slog.String("indir", p.cfg.Indir),
		slog.Int("files", len(jobs)))

	dates, err := EntryDates(p.cfg.Indir, p.cfg.EntryFile)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	// With a version oracle and a previous database, copy unchanged history
	// and restrict this run to the ids handed back for reprocessing
	var include map[string]bool
	if dates != nil && p.cfg.MergeURL != "" {
		reprocess, err := db.Merge(ctx, p.cfg.MergeURL, dates)
		if err != nil {
			return fmt.Errorf("Run: %w", err)
		}
		include = make(map[string]bool, len(reprocess))
		for _, uid := range reprocess {
			include[uid] = true
		}
	}

	workers := p.cfg.WorkerCount(len(jobs))

	input := make(chan Job, len(jobs))
	for _, job := range jobs {
		input <- job
	}
	close(input)

	output := make(chan message, p.cfg.QueueSize)

	group, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			return p.worker(gctx, input, output)
		})
	}

	p.consume(ctx, db, output, workers, dates, include)

	if err := group.Wait(); err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	if err := db.Complete(ctx); err != nil {
		return fmt.Errorf("Run: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	metrics.RecordRun(time.Since(start))
	slog.Info("run complete", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// worker drains the input queue. The done marker is deferred so the consumer
// sees exactly one marker per worker even when parser construction fails.
func (p *Pipeline) worker(ctx context.Context, input <-chan Job, output chan<- message) error {
	defer func() { output <- message{done: true} }()

	registry := parser.NewRegistry(ctx, p.cfg.ConfigDir, p.classifier, p.converter)

	for job := range input {
		p.processJob(ctx, registry, job, output)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

// processJob parses one file. Failures are confined to the file: logged,
// counted, zero articles contributed.
func (p *Pipeline) processJob(ctx context.Context, registry *parser.Registry, job Job, output chan<- message) {
	slog.Info("processing file", slog.String("path", job.Path))

	fileParser, err := registry.Lookup(job.Extension, job.Name)
	if err != nil {
		slog.Warn("skipping file with unknown format",
			slog.String("path", job.Path),
			slog.Any("error", err))
		metrics.RecordFileProcessed(job.Extension, err)
		return
	}

	stream, err := job.Open()
	if err != nil {
		slog.Warn("unreadable file",
			slog.String("path", job.Path),
			slog.Any("error", err))
		metrics.RecordFileProcessed(job.Extension, err)
		return
	}
	defer func() { _ = stream.Close() }()

	count := 0
	err = fileParser.Parse(stream, job.Name, func(article *entity.Article) error {
		if err := article.Validate(); err != nil {
			slog.Warn("dropping invalid article",
				slog.String("source", job.Name),
				slog.Any("error", err))
			metrics.RecordSkip("invalid")
			return nil
		}

		select {
		case output <- message{article: article}:
			count++
			metrics.RecordArticleParsed(job.Extension)
			metrics.OutputQueueDepth.Set(float64(len(output)))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		slog.Warn("failed to process file",
			slog.String("path", job.Path),
			slog.Any("error", err))
		metrics.RecordFileProcessed(job.Extension, err)
		return
	}

	metrics.RecordFileProcessed(job.Extension, nil)
	slog.Info("processed file",
		slog.String("path", job.Path),
		slog.Int("articles", count))
}

// consume is the single serial writer. It terminates after observing one
// done marker per worker with the output queue empty.
func (p *Pipeline) consume(ctx context.Context, db storage.Database, output chan message, workers int, dates map[string]time.Time, include map[string]bool) {
	complete := 0

	for {
		msg := <-output

		if msg.done {
			complete++
			if complete == workers && len(output) == 0 {
				return
			}
			continue
		}

		article := msg.article
		metrics.OutputQueueDepth.Set(float64(len(output)))

		// The oracle's observation date is authoritative for versioning
		if dates != nil {
			if date, ok := dates[article.UID]; ok {
				article.Entry = date
			}

			// Anything not handed back by merge was already copied
			if include != nil && !include[article.UID] {
				if _, known := dates[article.UID]; known {
					metrics.RecordSkip("merged")
					continue
				}
			}
		}

		if !p.cfg.FullLoad && !article.Tagged() {
			metrics.RecordSkip("untagged")
			continue
		}

		if err := db.Save(ctx, article); err != nil {
			slog.Warn("failed to save article",
				slog.String("uid", article.UID),
				slog.Any("error", err))
		}
	}
}
