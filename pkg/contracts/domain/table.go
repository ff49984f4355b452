package domain

import (
	"fmt"
	"math"
	"time"
)

// ColumnKeySeparator joins metric and technology when a column key is
// serialized for export. Internally columns stay structured so technology
// names containing the separator cannot be misparsed.
const ColumnKeySeparator = "_"

// ColumnKey identifies one column of a wide table: a (metric, technology)
// pair such as (value, Eólica).
type ColumnKey struct {
	Metric     Metric `json:"metric"`
	Technology string `json:"technology"`
}

// String flattens the key for external interfaces (CSV headers, Excel
// sheets, log attributes).
func (k ColumnKey) String() string {
	return fmt.Sprintf("%s%s%s", k.Metric, ColumnKeySeparator, k.Technology)
}

// WideTable is a dense time-indexed table: one row per timestamp, one
// column per (metric, technology) pair. Missing observations are
// represented by NaN until the cleaning stage resolves them. Index rows
// are kept in ascending order.
type WideTable struct {
	Index   []time.Time `json:"index"`
	Columns []ColumnKey `json:"columns"`
	// Cells is row-major: Cells[i][j] is the value at Index[i] for
	// Columns[j].
	Cells [][]float64 `json:"cells"`
}

// NewWideTable allocates a table with every cell set to the missing
// marker.
func NewWideTable(index []time.Time, columns []ColumnKey) *WideTable {
	cells := make([][]float64, len(index))
	for i := range cells {
		row := make([]float64, len(columns))
		for j := range row {
			row[j] = math.NaN()
		}
		cells[i] = row
	}
	return &WideTable{Index: index, Columns: columns, Cells: cells}
}

// Rows returns the number of rows in the table.
func (t *WideTable) Rows() int { return len(t.Index) }

// Cols returns the number of columns in the table.
func (t *WideTable) Cols() int { return len(t.Columns) }

// ColumnIndex returns the position of key, or -1 when the table has no
// such column.
func (t *WideTable) ColumnIndex(key ColumnKey) int {
	for j, c := range t.Columns {
		if c == key {
			return j
		}
	}
	return -1
}

// Column returns a copy of column j's cells.
func (t *WideTable) Column(j int) []float64 {
	col := make([]float64, len(t.Cells))
	for i, row := range t.Cells {
		col[i] = row[j]
	}
	return col
}

// Clone returns a deep copy. Pipeline stages that mutate cells operate on
// clones so each stage consumes an unchanged input.
func (t *WideTable) Clone() *WideTable {
	c := &WideTable{
		Index:   append([]time.Time(nil), t.Index...),
		Columns: append([]ColumnKey(nil), t.Columns...),
		Cells:   make([][]float64, len(t.Cells)),
	}
	for i, row := range t.Cells {
		c.Cells[i] = append([]float64(nil), row...)
	}
	return c
}

// MonthKey normalizes a timestamp to the first instant of its calendar
// month in UTC. Monthly tables and monthly series use this as their row
// identity so joins compare months exactly.
func MonthKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DayKey normalizes a timestamp to UTC midnight of its calendar day.
func DayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthlySeries maps normalized month keys (see MonthKey) to a single
// numeric measure for that month.
type MonthlySeries map[time.Time]float64

// CorrelationResult is a computed Pearson coefficient together with the
// number of months the two series overlapped on.
type CorrelationResult struct {
	Coefficient  float64 `json:"coefficient"`
	SampleCount  int     `json:"sample_count"`
	SeriesALabel string  `json:"series_a_label,omitempty"`
	SeriesBLabel string  `json:"series_b_label,omitempty"`
}
