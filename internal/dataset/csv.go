// Package dataset loads Environment Canada monthly station CSV files from
// local paths or HTTP sources.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/weatherlab/station-clustering/internal/domain"
)

// requiredColumns must be present in the header; the reader refuses files
// without them. Measurement columns are optional.
var requiredColumns = []string{"Stn_Name", "Lat", "Long"}

// ReadResult reports what a read produced besides the stations themselves.
type ReadResult struct {
	Stations []domain.Station
	Skipped  int // rows dropped for missing/unparseable coordinates
}

// Read parses station records from r. The header row drives column mapping,
// so column order and extra columns don't matter. Rows with bad coordinates
// are skipped and counted, not fatal.
func Read(r io.Reader, logger *slog.Logger) (ReadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // source files occasionally carry ragged rows

	header, err := cr.Read()
	if err != nil {
		return ReadResult{}, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return ReadResult{}, err
	}

	var result ReadResult
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return ReadResult{}, fmt.Errorf("read csv line %d: %w", line, err)
		}

		station, err := domain.ParseStationRecord(recordFromRow(row, cols))
		if err != nil {
			logger.Debug("skipping station row", "line", line, "error", err)
			result.Skipped++
			continue
		}
		result.Stations = append(result.Stations, station)
	}

	return result, nil
}

// ReadFile opens and parses a local CSV file.
func ReadFile(path string, logger *slog.Logger) (ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReadResult{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	result, err := Read(f, logger)
	if err != nil {
		return ReadResult{}, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return result, nil
}

// mapColumns builds a header name to index map and verifies required columns.
func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("dataset header missing required column %q", name)
		}
	}
	return cols, nil
}

// recordFromRow picks the known columns out of a raw row. Absent or
// out-of-range columns yield empty strings, which parse to nil measurements.
func recordFromRow(row []string, cols map[string]int) domain.StationRecord {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	return domain.StationRecord{
		StnName: field("Stn_Name"),
		Lat:     field("Lat"),
		Long:    field("Long"),
		Prov:    field("Prov"),
		Tm:      field("Tm"),
		Tx:      field("Tx"),
		Tn:      field("Tn"),
		P:       field("P"),
		HDD:     field("HDD"),
		CDD:     field("CDD"),
		StnNo:   field("Stn_No"),
	}
}
