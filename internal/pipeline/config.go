package pipeline

import (
	"log/slog"
	"runtime"
	"time"

	"paperetl/internal/pkg/config"
)

// Environment variable names. Command line flags override these.
const (
	envOutputURL   = "ETL_OUTPUT_URL"
	envConfigDir   = "ETL_CONFIG_DIR"
	envEntryFile   = "ETL_ENTRY_FILE"
	envMergeURL    = "ETL_MERGE_URL"
	envGrobidURL   = "ETL_GROBID_URL"
	envGrobidWait  = "ETL_GROBID_TIMEOUT"
	envWorkers     = "ETL_WORKERS"
	envQueueSize   = "ETL_QUEUE_SIZE"
	envReplace     = "ETL_REPLACE"
	envFullLoad    = "ETL_FULL_LOAD"
	envSchedule    = "ETL_SCHEDULE"
	envMetricsAddr = "ETL_METRICS_ADDR"
)

// defaultQueueSize bounds the output queue, limiting how far parsing can run
// ahead of the serial writer.
const defaultQueueSize = 30000

// defaultGrobidTimeout covers full-document structuring of large PDFs.
const defaultGrobidTimeout = 90 * time.Second

// Config holds the settings for one ingestion run.
type Config struct {
	// Indir is the input directory scanned for files
	Indir string

	// URL selects the output backend
	URL string

	// ConfigDir holds optional parser filter files
	ConfigDir string

	// EntryFile is the version oracle CSV path, empty selects the default
	// inside Indir
	EntryFile string

	// MergeURL points at a previous run's database to merge from
	MergeURL string

	// GrobidURL is the document conversion service endpoint
	GrobidURL string

	// GrobidTimeout bounds one conversion service call
	GrobidTimeout time.Duration

	// Workers is the parse worker count, zero selects one per core
	Workers int

	// QueueSize bounds the parsed article queue
	QueueSize int

	// Replace recreates the output store
	Replace bool

	// FullLoad saves untagged articles too
	FullLoad bool

	// Schedule is a cron expression for repeated runs, empty runs once
	Schedule string

	// MetricsAddr serves the metrics endpoint, empty disables it
	MetricsAddr string
}

var configMetrics = config.NewMetrics("etl")

// LoadConfig builds a Config from the environment. Invalid values fall back
// to defaults with a warning rather than aborting the run.
func LoadConfig() *Config {
	cfg := &Config{
		URL:         config.LoadEnvString(envOutputURL, ""),
		ConfigDir:   config.LoadEnvString(envConfigDir, ""),
		EntryFile:   config.LoadEnvString(envEntryFile, ""),
		MergeURL:    config.LoadEnvString(envMergeURL, ""),
		GrobidURL:   config.LoadEnvString(envGrobidURL, ""),
		MetricsAddr: config.LoadEnvString(envMetricsAddr, ""),
	}

	degraded := false
	load := func(field string, result config.Result) any {
		if result.FallbackApplied {
			degraded = true
			configMetrics.RecordValidationError(field)
			configMetrics.RecordFallback(field)
			for _, warning := range result.Warnings {
				slog.Warn("configuration fallback", slog.String("warning", warning))
			}
		}
		return result.Value
	}

	cfg.Workers = load(envWorkers, config.LoadEnvInt(envWorkers, 0, func(value int) error {
		return config.ValidateIntRange(value, 0, 256)
	})).(int)

	cfg.QueueSize = load(envQueueSize, config.LoadEnvInt(envQueueSize, defaultQueueSize, func(value int) error {
		return config.ValidateIntRange(value, 1, 1000000)
	})).(int)

	cfg.GrobidTimeout = load(envGrobidWait, config.LoadEnvDuration(envGrobidWait, defaultGrobidTimeout,
		func(value time.Duration) error {
			return config.ValidateDuration(value, time.Second, 30*time.Minute)
		})).(time.Duration)

	cfg.Replace = load(envReplace, config.LoadEnvBool(envReplace, false)).(bool)
	cfg.FullLoad = load(envFullLoad, config.LoadEnvBool(envFullLoad, true)).(bool)
	cfg.Schedule = load(envSchedule, config.LoadEnvWithFallback(envSchedule, "", config.ValidateCronSchedule)).(string)

	configMetrics.RecordLoadTimestamp()
	configMetrics.SetFallbackActive(degraded)
	return cfg
}

// WorkerCount resolves the effective worker count for a number of input
// files. Never more workers than files, never less than one.
func (c *Config) WorkerCount(files int) int {
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if files < workers {
		workers = files
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
