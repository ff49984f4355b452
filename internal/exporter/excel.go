package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"genpulse/pkg/contracts/domain"
)

// ExcelWriter exports analysis results as an Excel workbook.
type ExcelWriter struct {
	logger *slog.Logger
}

// NewExcelWriter creates a new Excel writer instance.
func NewExcelWriter(logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelWriter{logger: logger}
}

// WorkbookContent holds the sheets written to a report workbook. Daily is
// required; Monthly and Correlations are included when present.
type WorkbookContent struct {
	Daily        *domain.WideTable
	Monthly      *domain.WideTable
	Correlations []domain.CorrelationResult
}

const (
	dailySheetName       = "Daily"
	monthlySheetName     = "Monthly"
	correlationSheetName = "Correlation"
)

// WriteWorkbook writes daily and monthly tables, and any correlation
// results, to a single .xlsx file.
func (w *ExcelWriter) WriteWorkbook(path string, content WorkbookContent) error {
	if content.Daily == nil {
		return fmt.Errorf("daily table is required")
	}

	w.logger.Info("writing report workbook",
		slog.String("path", path),
		slog.Int("daily_rows", content.Daily.Rows()),
		slog.Int("correlations", len(content.Correlations)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeTableSheet(f, dailySheetName, content.Daily, "2006-01-02"); err != nil {
		return err
	}
	if content.Monthly != nil {
		if err := writeTableSheet(f, monthlySheetName, content.Monthly, "2006-01"); err != nil {
			return err
		}
	}
	if len(content.Correlations) > 0 {
		if err := writeCorrelationSheet(f, content.Correlations); err != nil {
			return err
		}
	}

	// excelize seeds a default sheet that the table sheets replace.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(dailySheetName); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeTableSheet(f *excelize.File, sheet string, table *domain.WideTable, dateLayout string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := make([]interface{}, 0, table.Cols()+1)
	header = append(header, "date")
	for _, col := range table.Columns {
		header = append(header, col.String())
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}

	for i, ts := range table.Index {
		row := make([]interface{}, 0, table.Cols()+1)
		row = append(row, ts.Format(dateLayout))
		for _, v := range table.Cells[i] {
			if math.IsNaN(v) {
				row = append(row, nil)
			} else {
				row = append(row, v)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i, sheet, err)
		}
	}

	return nil
}

func writeCorrelationSheet(f *excelize.File, results []domain.CorrelationResult) error {
	if _, err := f.NewSheet(correlationSheetName); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", correlationSheetName, err)
	}

	header := []interface{}{"series_a", "series_b", "coefficient", "sample_count"}
	if err := f.SetSheetRow(correlationSheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write correlation header: %w", err)
	}

	for i, r := range results {
		row := []interface{}{r.SeriesALabel, r.SeriesBLabel, r.Coefficient, r.SampleCount}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(correlationSheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write correlation row %d: %w", i, err)
		}
	}

	return nil
}
