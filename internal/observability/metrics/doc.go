// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - Pipeline metrics (files processed, articles parsed, queue depth)
//   - Storage metrics (saves, duplicate resolutions, insert errors, merges)
//   - Conversion service metrics (calls, durations)
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint when the metrics server is enabled.
//
// Example usage:
//
//	import "paperetl/internal/observability/metrics"
//
//	func parseFile(path string) {
//	    err := doParse(path)
//	    metrics.RecordFileProcessed("pubmed", err)
//	}
package metrics
