package windspeed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "genpulse/internal/errors"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wind.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_LoadCSV(t *testing.T) {
	loader := NewLoader(nil)
	path := writeTempCSV(t, `Mes,Velocidad media
2024-01,3.4
2024-02,4.1
2024-03,2.9
2023-12,5.0
`)

	series, err := loader.LoadCSV(path, 2024)
	require.NoError(t, err)

	assert.Len(t, series, 3, "other years are filtered out")
	assert.Equal(t, 3.4, series[month(2024, time.January)])
	assert.Equal(t, 4.1, series[month(2024, time.February)])
	assert.Equal(t, 2.9, series[month(2024, time.March)])
}

func TestLoader_SkipsBadRows(t *testing.T) {
	loader := NewLoader(nil)
	path := writeTempCSV(t, `2024-01,3.4
not-a-month,9.9
2024-02,not-a-number
2024-03,4.2
`)

	series, err := loader.LoadCSV(path, 2024)
	require.NoError(t, err)

	assert.Len(t, series, 2)
	assert.Equal(t, 3.4, series[month(2024, time.January)])
	assert.Equal(t, 4.2, series[month(2024, time.March)])
}

func TestLoader_DecimalComma(t *testing.T) {
	loader := NewLoader(nil)
	path := writeTempCSV(t, "01/2024,\"3,7\"\n")

	series, err := loader.LoadCSV(path, 2024)
	require.NoError(t, err)
	assert.Equal(t, 3.7, series[month(2024, time.January)])
}

func TestLoader_NoDataForYear(t *testing.T) {
	loader := NewLoader(nil)
	path := writeTempCSV(t, "2023-01,3.4\n")

	_, err := loader.LoadCSV(path, 2024)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestLoader_LoadExcel(t *testing.T) {
	loader := NewLoader(nil)

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Mes", "Velocidad"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"2024-01", 3.4}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"2024-02", 4.1}))

	path := filepath.Join(t.TempDir(), "wind.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	series, err := loader.LoadExcel(path, 2024)
	require.NoError(t, err)

	assert.Len(t, series, 2)
	assert.Equal(t, 3.4, series[month(2024, time.January)])
}
