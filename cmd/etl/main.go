package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"paperetl/internal/observability/logging"
	"paperetl/internal/parser"
	"paperetl/internal/pipeline"
	"paperetl/internal/storage"
	"paperetl/internal/study"
)

func main() {
	cfg := pipeline.LoadConfig()

	flag.StringVar(&cfg.Indir, "in", cfg.Indir, "input directory")
	flag.StringVar(&cfg.URL, "url", cfg.URL, "output url (directory, json://, yaml:// or http(s)://)")
	flag.StringVar(&cfg.ConfigDir, "config", cfg.ConfigDir, "parser config directory")
	flag.StringVar(&cfg.EntryFile, "entryfile", cfg.EntryFile, "entry dates csv path")
	flag.StringVar(&cfg.MergeURL, "merge", cfg.MergeURL, "previous database to merge from")
	flag.StringVar(&cfg.GrobidURL, "grobid", cfg.GrobidURL, "document conversion service url")
	flag.DurationVar(&cfg.GrobidTimeout, "grobid-timeout", cfg.GrobidTimeout, "conversion service call timeout")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "parse worker count, 0 = one per core")
	flag.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "output queue size")
	flag.BoolVar(&cfg.Replace, "replace", cfg.Replace, "recreate the output store")
	flag.BoolVar(&cfg.FullLoad, "full", cfg.FullLoad, "save untagged articles too")
	flag.StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "cron expression for repeated runs")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "metrics listen address, empty disables")
	logFormat := flag.String("log-format", "json", "log output format, json or text")
	flag.Parse()

	base := logging.NewLogger()
	if *logFormat == "text" {
		base = logging.NewTextLogger()
	}
	logger := logging.WithRun(base, uuid.NewString())
	slog.SetDefault(logger)

	if cfg.Indir == "" || cfg.URL == "" {
		fmt.Fprintln(os.Stderr, "usage: etl -in <directory> -url <output> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, logger, cfg.MetricsAddr)
	}

	var converter parser.Converter
	if cfg.GrobidURL != "" {
		converter = parser.NewGrobidClient(cfg.GrobidURL, &http.Client{Timeout: cfg.GrobidTimeout})
	}

	etl := pipeline.New(cfg, study.Noop{}, converter)

	if cfg.Schedule == "" {
		if err := run(ctx, cfg, etl); err != nil {
			logger.Error("run failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.Schedule, func() {
		if err := run(ctx, cfg, etl); err != nil {
			logger.Error("scheduled run failed", slog.Any("error", err))
		}
		// Replace only applies to the first run of a schedule
		cfg.Replace = false
	})
	if err != nil {
		logger.Error("failed to schedule runs", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("scheduler started", slog.String("schedule", cfg.Schedule))
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()
}

// run opens the output store and executes one ingestion pass. A store that
// cannot be opened aborts before any scheduling happens.
func run(ctx context.Context, cfg *pipeline.Config, etl *pipeline.Pipeline) error {
	db, err := storage.Open(cfg.URL, cfg.Replace)
	if err != nil {
		return fmt.Errorf("open output store: %w", err)
	}

	return etl.Run(ctx, db)
}
