package exporter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"genpulse/pkg/contracts/domain"
)

func TestExcelWriter_WriteWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xlsx")

	daily := sampleTable(t)

	monthly := domain.NewWideTable(
		[]time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		[]domain.ColumnKey{{Metric: domain.MetricValue, Technology: "Eólica"}},
	)
	monthly.Cells[0][0] = 3200

	writer := NewExcelWriter(nil)
	err := writer.WriteWorkbook(path, WorkbookContent{
		Daily:   daily,
		Monthly: monthly,
		Correlations: []domain.CorrelationResult{
			{Coefficient: 0.87, SampleCount: 12, SeriesALabel: "value_Eólica", SeriesBLabel: "wind_speed"},
		},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Daily")
	assert.Contains(t, sheets, "Monthly")
	assert.Contains(t, sheets, "Correlation")
	assert.NotContains(t, sheets, "Sheet1")

	header, err := f.GetCellValue("Daily", "B1")
	require.NoError(t, err)
	assert.Equal(t, "value_Eólica", header)

	date, err := f.GetCellValue("Daily", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", date)

	missing, err := f.GetCellValue("Daily", "C3")
	require.NoError(t, err)
	assert.Equal(t, "", missing, "missing cell should be blank")

	coef, err := f.GetCellValue("Correlation", "C2")
	require.NoError(t, err)
	assert.Equal(t, "0.87", coef)
}

func TestExcelWriter_RequiresDailyTable(t *testing.T) {
	writer := NewExcelWriter(nil)
	err := writer.WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), WorkbookContent{})
	assert.Error(t, err)
}

func TestExcelWriter_DailyOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daily-only.xlsx")

	writer := NewExcelWriter(nil)
	err := writer.WriteWorkbook(path, WorkbookContent{Daily: sampleTable(t)})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Equal(t, []string{"Daily"}, sheets)
}
