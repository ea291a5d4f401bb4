package metrics

import "time"

// RecordFileProcessed records the outcome of one input file.
// Status should be "completed" or "failed".
func RecordFileProcessed(parser string, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}
	FilesProcessedTotal.WithLabelValues(parser, status).Inc()
}

// RecordArticleParsed records one article produced by a parser.
func RecordArticleParsed(parser string) {
	ArticlesParsedTotal.WithLabelValues(parser).Inc()
}

// RecordSkip records a record dropped before storage.
// Reason should describe why: parse_error, date_error, untagged, filtered, invalid.
func RecordSkip(reason string) {
	RecordsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordDuplicate records the resolution of a same-uid conflict.
// Replaced is true when the incoming article won on entry date.
func RecordDuplicate(replaced bool) {
	resolution := "discarded"
	if replaced {
		resolution = "replaced"
	}
	DuplicatesTotal.WithLabelValues(resolution).Inc()
}

// RecordConversion records a PDF conversion service call.
func RecordConversion(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	ConversionsTotal.WithLabelValues(status).Inc()
	ConversionDuration.Observe(duration.Seconds())
}

// RecordRun records the duration of one complete ingestion run.
func RecordRun(duration time.Duration) {
	RunDuration.Observe(duration.Seconds())
}
