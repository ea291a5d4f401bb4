package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/araddon/dateparse"
)

// defaultEntryFile is the version oracle file looked up inside the input
// directory when no explicit path is given.
const defaultEntryFile = "entry-dates.csv"

// EntryDates loads the version oracle, a CSV mapping each known document
// identifier to the date it was first observed. Returns nil without error
// when no oracle file exists, which selects a full load.
func EntryDates(indir, entryfile string) (map[string]time.Time, error) {
	if entryfile == "" {
		entryfile = filepath.Join(indir, defaultEntryFile)
		if _, err := os.Stat(entryfile); err != nil {
			return nil, nil
		}
	}

	file, err := os.Open(entryfile)
	if err != nil {
		return nil, fmt.Errorf("EntryDates: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("EntryDates: read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for index, name := range header {
		columns[name] = index
	}

	id, ok := columns["id"]
	if !ok {
		return nil, fmt.Errorf("EntryDates: missing id column")
	}
	date, ok := columns["date"]
	if !ok {
		return nil, fmt.Errorf("EntryDates: missing date column")
	}

	dates := make(map[string]time.Time)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("EntryDates: read row: %w", err)
		}
		if len(row) <= id || len(row) <= date {
			continue
		}

		parsed, err := dateparse.ParseAny(row[date])
		if err != nil {
			slog.Warn("skipping entry date row with invalid date",
				slog.String("id", row[id]),
				slog.String("date", row[date]))
			continue
		}

		dates[row[id]] = parsed
	}

	return dates, nil
}
