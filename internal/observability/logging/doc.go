// Package logging provides structured logging utilities for the ETL runtime.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Run ID propagation
//   - Configurable log levels via LOG_LEVEL
//
// Example usage:
//
//	import "paperetl/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("ingest started", slog.String("version", "1.0"))
//	}
package logging
