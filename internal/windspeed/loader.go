// Package windspeed loads externally supplied wind observations: monthly
// mean wind speeds for a measurement station, used as the comparison
// series for the wind-generation correlation.
package windspeed

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "genpulse/internal/errors"
	"genpulse/pkg/contracts/domain"
)

// monthFormats lists the layouts observation exports have been seen to
// use for the month column.
var monthFormats = []string{
	"2006-01",
	"2006-01-02",
	"01/2006",
	"02/01/2006",
}

// Loader reads monthly wind-speed series from CSV or Excel files.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadCSV reads a two-column (month, mean wind speed) CSV file and
// returns the series restricted to the target year. Rows that fail to
// parse are skipped with a warning; they never abort the load.
func (l *Loader) LoadCSV(path string, year int) (domain.MonthlySeries, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open wind-speed CSV", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read wind-speed CSV", err)
	}

	return l.seriesFromRows(path, rows, year)
}

// LoadExcel reads the first sheet of an xlsx workbook with the same
// two-column layout as LoadCSV.
func (l *Loader) LoadExcel(path string, year int) (domain.MonthlySeries, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open wind-speed workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("wind-speed workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read wind-speed sheet", err)
	}

	return l.seriesFromRows(path, rows, year)
}

// seriesFromRows parses tabular rows into a monthly series for the
// target year.
func (l *Loader) seriesFromRows(source string, rows [][]string, year int) (domain.MonthlySeries, error) {
	series := make(domain.MonthlySeries)
	skipped := 0

	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		if i == 0 && isHeaderRow(row) {
			continue
		}

		month, err := parseMonth(row[0])
		if err != nil {
			skipped++
			l.logger.Warn("skipping unparseable wind-speed row",
				slog.String("source", source),
				slog.Int("line", i+1),
				slog.String("month", row[0]))
			continue
		}

		speed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row[1]), ",", "."), 64)
		if err != nil {
			skipped++
			l.logger.Warn("skipping non-numeric wind speed",
				slog.String("source", source),
				slog.Int("line", i+1),
				slog.String("value", row[1]))
			continue
		}

		if month.Year() != year {
			continue
		}
		series[month] = speed
	}

	if len(series) == 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("no wind-speed observations for year %d", year), nil)
	}

	l.logger.Info("wind-speed series loaded",
		slog.String("source", source),
		slog.Int("months", len(series)),
		slog.Int("skipped_rows", skipped))

	return series, nil
}

// parseMonth parses a month cell and normalizes it to the first of the
// month.
func parseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range monthFormats {
		t, err := time.Parse(layout, s)
		if err == nil {
			return domain.MonthKey(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// isHeaderRow checks whether the first row carries column names instead
// of data.
func isHeaderRow(row []string) bool {
	if _, err := parseMonth(row[0]); err == nil {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return strings.Contains(first, "month") || strings.Contains(first, "date") ||
		strings.Contains(first, "fecha") || strings.Contains(first, "mes")
}
