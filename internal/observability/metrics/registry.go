// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion metrics track the parse pipeline
var (
	// FilesProcessedTotal counts input files by parser and final status
	FilesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_files_processed_total",
			Help: "Total number of input files processed",
		},
		[]string{"parser", "status"},
	)

	// ArticlesParsedTotal counts articles produced by each parser
	ArticlesParsedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_articles_parsed_total",
			Help: "Total number of articles produced by parsers",
		},
		[]string{"parser"},
	)

	// RecordsSkippedTotal counts records dropped before storage, by reason.
	// Reasons: parse_error, date_error, untagged, filtered, invalid
	RecordsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_records_skipped_total",
			Help: "Total number of records skipped before storage",
		},
		[]string{"reason"},
	)

	// OutputQueueDepth tracks the number of articles waiting for the writer
	OutputQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "etl_output_queue_depth",
			Help: "Number of parsed articles waiting for the storage writer",
		},
	)

	// RunDuration measures the duration of complete ingestion runs in seconds
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etl_run_duration_seconds",
			Help:    "Duration of complete ingestion runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

// Storage metrics track the write side of the pipeline
var (
	// ArticlesSavedTotal counts articles accepted by the storage engine
	ArticlesSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_articles_saved_total",
			Help: "Total number of articles written to the storage backend",
		},
	)

	// DuplicatesTotal counts same-uid conflicts by resolution.
	// Resolutions: discarded (existing entry newer or equal), replaced
	DuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_duplicates_total",
			Help: "Total number of duplicate-uid conflicts by resolution",
		},
		[]string{"resolution"},
	)

	// InsertErrorsTotal counts rows rejected by the storage backend
	InsertErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_insert_errors_total",
			Help: "Total number of rows rejected by the storage backend",
		},
	)

	// MergedArticlesTotal counts articles copied verbatim during a merge
	MergedArticlesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_merged_articles_total",
			Help: "Total number of articles copied from a prior store during merge",
		},
	)
)

// Conversion metrics track the remote document-structuring service
var (
	// ConversionsTotal counts PDF conversion attempts by status
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_conversions_total",
			Help: "Total number of PDF conversion service calls",
		},
		[]string{"status"},
	)

	// ConversionDuration measures conversion service call duration in seconds
	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etl_conversion_duration_seconds",
			Help:    "Duration of PDF conversion service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
