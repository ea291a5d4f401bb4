// Package pipeline coordinates the ingestion run: input discovery, parallel
// parsing workers, and the single serial consumer feeding the output store.
// Backpressure comes from the bounded output queue; completion is detected
// with one end-of-stream marker per worker.
package pipeline
