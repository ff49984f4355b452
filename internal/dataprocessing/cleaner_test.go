package dataprocessing

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genpulse/pkg/contracts/domain"
)

func twoColumnTable(index []time.Time, rows [][2]float64) *domain.WideTable {
	table := domain.NewWideTable(index, []domain.ColumnKey{
		{Metric: domain.MetricValue, Technology: "Wind"},
		{Metric: domain.MetricValue, Technology: "Solar"},
	})
	for i, row := range rows {
		table.Cells[i][0] = row[0]
		table.Cells[i][1] = row[1]
	}
	return table
}

func TestCleaner_RemovesDuplicates(t *testing.T) {
	cleaner := NewCleaner(nil)

	d := day(2024, 1, 1)
	table := twoColumnTable(
		[]time.Time{d, d, d.AddDate(0, 0, 1)},
		[][2]float64{{5, 3}, {5, 3}, {7, 2}},
	)

	report := cleaner.Clean(context.Background(), table)

	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, 0, report.NullRowsRemoved)
	assert.Equal(t, 2, report.RowsRemaining)
	assert.Equal(t, 2, table.Rows())
}

func TestCleaner_RemovesNullRowsWithCounts(t *testing.T) {
	cleaner := NewCleaner(nil)

	table := twoColumnTable(
		[]time.Time{day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 3)},
		[][2]float64{{5, 3}, {math.NaN(), 2}, {7, math.NaN()}},
	)

	report := cleaner.Clean(context.Background(), table)

	assert.Equal(t, 2, report.NullRowsRemoved)
	assert.Equal(t, 1, report.MissingByColumn["value_Wind"])
	assert.Equal(t, 1, report.MissingByColumn["value_Solar"])
	require.Equal(t, 1, table.Rows())
	assert.True(t, table.Index[0].Equal(day(2024, 1, 1)))
}

func TestCleaner_DuplicatesWithMissingCellsCompareEqual(t *testing.T) {
	cleaner := NewCleaner(nil)

	d := day(2024, 1, 1)
	table := twoColumnTable(
		[]time.Time{d, d},
		[][2]float64{{math.NaN(), 3}, {math.NaN(), 3}},
	)

	report := cleaner.Clean(context.Background(), table)

	// One removed as a duplicate, the survivor removed by the null policy.
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, 1, report.NullRowsRemoved)
	assert.Equal(t, 0, table.Rows())
}

func TestCleaner_Idempotent(t *testing.T) {
	cleaner := NewCleaner(nil)

	d := day(2024, 1, 1)
	table := twoColumnTable(
		[]time.Time{d, d, d.AddDate(0, 0, 1), d.AddDate(0, 0, 2)},
		[][2]float64{{5, 3}, {5, 3}, {math.NaN(), 2}, {7, 1}},
	)

	first := cleaner.Clean(context.Background(), table)
	assert.Equal(t, 1, first.DuplicatesRemoved)
	assert.Equal(t, 1, first.NullRowsRemoved)

	snapshot := table.Clone()
	second := cleaner.Clean(context.Background(), table)

	assert.Zero(t, second.DuplicatesRemoved)
	assert.Zero(t, second.NullRowsRemoved)
	assert.Equal(t, snapshot.Index, table.Index)
	assert.Equal(t, snapshot.Cells, table.Cells)
}

func TestCleaner_EmptyTable(t *testing.T) {
	cleaner := NewCleaner(nil)
	table := domain.NewWideTable(nil, []domain.ColumnKey{{Metric: domain.MetricValue, Technology: "Wind"}})

	report := cleaner.Clean(context.Background(), table)

	assert.Zero(t, report.DuplicatesRemoved)
	assert.Zero(t, report.NullRowsRemoved)
	assert.Zero(t, report.RowsRemaining)
}
