package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"genpulse/pkg/contracts/domain"
)

// CSVWriter exports wide tables as CSV files.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// TableWriteOptions configures wide-table CSV output.
type TableWriteOptions struct {
	// DateLayout formats the index column; daily tables use a full date,
	// monthly tables a year-month.
	DateLayout string
	// BOMPrefix adds a UTF-8 BOM so Excel recognizes the encoding.
	BOMPrefix bool
}

// DailyTableOptions returns the options for a daily table export.
func DailyTableOptions() TableWriteOptions {
	return TableWriteOptions{DateLayout: "2006-01-02", BOMPrefix: true}
}

// MonthlyTableOptions returns the options for a monthly table export.
func MonthlyTableOptions() TableWriteOptions {
	return TableWriteOptions{DateLayout: "2006-01", BOMPrefix: true}
}

// WriteWideTable writes a wide table to a CSV file: a date column
// followed by one column per (metric, technology) key. Missing cells are
// written empty, not as zero.
func (w *CSVWriter) WriteWideTable(path string, table *domain.WideTable, opts TableWriteOptions) error {
	if opts.DateLayout == "" {
		opts.DateLayout = "2006-01-02"
	}

	w.logger.Info("writing wide table to CSV",
		slog.String("path", path),
		slog.Int("rows", table.Rows()),
		slog.Int("columns", table.Cols()))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// BOM helps Excel recognize UTF-8 (technology names carry accents).
	if opts.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := make([]string, 0, table.Cols()+1)
	header = append(header, "date")
	for _, col := range table.Columns {
		header = append(header, col.String())
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, ts := range table.Index {
		row := make([]string, 0, table.Cols()+1)
		row = append(row, ts.Format(opts.DateLayout))
		for _, v := range table.Cells[i] {
			row = append(row, formatCell(v))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	return writer.Error()
}
