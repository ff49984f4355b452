package dataprocessing

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	apperrors "genpulse/internal/errors"
	"genpulse/pkg/contracts/domain"
)

// ErrNoOverlap is returned when two monthly series share no month. The
// caller receives this explicit state instead of a NaN coefficient.
var ErrNoOverlap = apperrors.NewCorrelationError("no overlapping months between series", nil)

// Correlator aligns two independently produced monthly series and
// computes their Pearson correlation coefficient.
type Correlator struct {
	logger *slog.Logger
}

// NewCorrelator creates a correlator.
func NewCorrelator(logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{logger: logger}
}

// Correlate inner-joins the two series on exact month equality and
// returns the sample Pearson coefficient over the aligned values. Zero
// overlapping months yields ErrNoOverlap.
func (c *Correlator) Correlate(a, b domain.MonthlySeries) (domain.CorrelationResult, error) {
	months := make([]time.Time, 0, len(a))
	for month := range a {
		if _, ok := b[month]; ok {
			months = append(months, month)
		}
	}

	if len(months) == 0 {
		return domain.CorrelationResult{}, ErrNoOverlap
	}

	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	x := make([]float64, len(months))
	y := make([]float64, len(months))
	for i, month := range months {
		x[i] = a[month]
		y[i] = b[month]
	}

	// stat.Correlation applies the same normalization to covariance and
	// both variances, which is the sample (N-1) Pearson form.
	r := stat.Correlation(x, y, nil)

	c.logger.Info("correlation computed",
		slog.Float64("coefficient", r),
		slog.Int("aligned_months", len(months)))

	return domain.CorrelationResult{
		Coefficient: r,
		SampleCount: len(months),
	}, nil
}

// MonthlySeriesFromTable extracts one column of a monthly wide table as a
// monthly series, skipping missing cells. The table is expected to have
// been cleaned, so after the null policy this normally skips nothing.
func MonthlySeriesFromTable(t *domain.WideTable, key domain.ColumnKey) (domain.MonthlySeries, error) {
	j := t.ColumnIndex(key)
	if j < 0 {
		return nil, apperrors.NewValidationError("column not present in table", nil).
			WithContext("column", key.String())
	}

	series := make(domain.MonthlySeries, t.Rows())
	for i, ts := range t.Index {
		v := t.Cells[i][j]
		if math.IsNaN(v) {
			continue
		}
		series[domain.MonthKey(ts)] = v
	}
	return series, nil
}
