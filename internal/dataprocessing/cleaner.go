package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"genpulse/pkg/contracts/domain"
)

// CleanReport records what the final cleaning pass removed.
type CleanReport struct {
	DuplicatesRemoved int            `json:"duplicates_removed"`
	NullRowsRemoved   int            `json:"null_rows_removed"`
	MissingByColumn   map[string]int `json:"missing_by_column"`
	RowsRemaining     int            `json:"rows_remaining"`
}

// Cleaner is the lossy final step: exact duplicate rows go first, then
// every row still containing a missing value. No imputation is performed.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// Clean mutates the table in place. Deduplication runs before null-row
// removal; running Clean twice yields the same table as running it once.
func (c *Cleaner) Clean(ctx context.Context, t *domain.WideTable) CleanReport {
	report := CleanReport{MissingByColumn: make(map[string]int)}

	c.dropDuplicates(t, &report)
	c.dropNullRows(t, &report)
	report.RowsRemaining = t.Rows()

	c.logger.InfoContext(ctx, "cleaning pass completed",
		slog.Int("duplicates_removed", report.DuplicatesRemoved),
		slog.Int("null_rows_removed", report.NullRowsRemoved),
		slog.Int("rows_remaining", report.RowsRemaining))

	return report
}

// dropDuplicates removes exact full-row duplicates, keeping the first
// occurrence. Two NaN cells compare equal for this purpose.
func (c *Cleaner) dropDuplicates(t *domain.WideTable, report *CleanReport) {
	seen := make(map[string]bool, t.Rows())
	kept := 0

	for i := 0; i < t.Rows(); i++ {
		key := rowKey(t, i)
		if seen[key] {
			report.DuplicatesRemoved++
			continue
		}
		seen[key] = true
		t.Index[kept] = t.Index[i]
		t.Cells[kept] = t.Cells[i]
		kept++
	}

	t.Index = t.Index[:kept]
	t.Cells = t.Cells[:kept]
}

// dropNullRows removes every row containing at least one missing value,
// counting missing cells per column before removal.
func (c *Cleaner) dropNullRows(t *domain.WideTable, report *CleanReport) {
	kept := 0

	for i := 0; i < t.Rows(); i++ {
		complete := true
		for j, v := range t.Cells[i] {
			if math.IsNaN(v) {
				report.MissingByColumn[t.Columns[j].String()]++
				complete = false
			}
		}
		if !complete {
			report.NullRowsRemoved++
			continue
		}
		t.Index[kept] = t.Index[i]
		t.Cells[kept] = t.Cells[i]
		kept++
	}

	t.Index = t.Index[:kept]
	t.Cells = t.Cells[:kept]
}

// rowKey builds a comparable identity for a row: its timestamp plus every
// cell, with NaN normalized so missing markers compare equal.
func rowKey(t *domain.WideTable, i int) string {
	var b strings.Builder
	b.WriteString(t.Index[i].Format("2006-01-02T15:04:05Z07:00"))
	for _, v := range t.Cells[i] {
		b.WriteByte('|')
		if math.IsNaN(v) {
			b.WriteString("NaN")
		} else {
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return b.String()
}
