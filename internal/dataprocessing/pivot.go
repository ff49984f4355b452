package dataprocessing

import (
	"math"
	"sort"
	"time"

	"genpulse/pkg/contracts/domain"
)

// IndexFunc maps a record timestamp onto a table row key. DailyIndex and
// MonthlyIndex are the two granularities the pipeline produces; the pivot
// algorithm itself is granularity-agnostic.
type IndexFunc func(time.Time) time.Time

// DailyIndex keys rows by calendar day.
func DailyIndex(t time.Time) time.Time { return domain.DayKey(t) }

// MonthlyIndex keys rows by calendar month.
func MonthlyIndex(t time.Time) time.Time { return domain.MonthKey(t) }

// Pivot reshapes long-format records into a wide table: one row per index
// key, one column per (metric, technology) pair. Every technology seen in
// the input gets a column; combinations without an observation stay NaN
// rather than zero. When two records land on the same (row, column) the
// later one wins; the splitter runs first precisely so that never
// happens.
func Pivot(records []domain.GenerationRecord, metric domain.Metric, indexFn IndexFunc) *domain.WideTable {
	indexSet := make(map[time.Time]bool)
	techSet := make(map[string]bool)

	for _, r := range records {
		indexSet[indexFn(r.Timestamp)] = true
		techSet[r.Technology] = true
	}

	index := sortedTimes(indexSet)
	columns := make([]domain.ColumnKey, 0, len(techSet))
	for _, tech := range sortedStrings(techSet) {
		columns = append(columns, domain.ColumnKey{Metric: metric, Technology: tech})
	}

	table := domain.NewWideTable(index, columns)

	rowAt := make(map[time.Time]int, len(index))
	for i, ts := range index {
		rowAt[ts] = i
	}
	colAt := make(map[string]int, len(columns))
	for j, c := range columns {
		colAt[c.Technology] = j
	}

	for _, r := range records {
		i := rowAt[indexFn(r.Timestamp)]
		j := colAt[r.Technology]
		table.Cells[i][j] = metric.Of(r)
	}

	return table
}

// Merge combines tables column-wise over the union of their row indices.
// It is used to place value and percentage columns for the same period
// side by side. Cells absent from a source table stay NaN.
func Merge(tables ...*domain.WideTable) *domain.WideTable {
	indexSet := make(map[time.Time]bool)
	var columns []domain.ColumnKey
	for _, t := range tables {
		for _, ts := range t.Index {
			indexSet[ts] = true
		}
		columns = append(columns, t.Columns...)
	}

	merged := domain.NewWideTable(sortedTimes(indexSet), columns)

	rowAt := make(map[time.Time]int, len(merged.Index))
	for i, ts := range merged.Index {
		rowAt[ts] = i
	}

	offset := 0
	for _, t := range tables {
		for i, ts := range t.Index {
			row := rowAt[ts]
			for j := range t.Columns {
				merged.Cells[row][offset+j] = t.Cells[i][j]
			}
		}
		offset += len(t.Columns)
	}

	return merged
}

// LongCell is one (timestamp, metric, technology, value) observation
// recovered from a wide table.
type LongCell struct {
	Timestamp  time.Time
	Metric     domain.Metric
	Technology string
	Value      float64
}

// Unpivot converts a wide table back to long format, skipping missing
// cells. Pivot followed by Unpivot recovers the original observations.
func Unpivot(t *domain.WideTable) []LongCell {
	var cells []LongCell
	for i, ts := range t.Index {
		for j, col := range t.Columns {
			v := t.Cells[i][j]
			if math.IsNaN(v) {
				continue
			}
			cells = append(cells, LongCell{
				Timestamp:  ts,
				Metric:     col.Metric,
				Technology: col.Technology,
				Value:      v,
			})
		}
	}
	return cells
}

func sortedTimes(set map[time.Time]bool) []time.Time {
	out := make([]time.Time, 0, len(set))
	for ts := range set {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func sortedStrings(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
