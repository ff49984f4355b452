package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	apperrors "genpulse/internal/errors"
	"genpulse/pkg/contracts/domain"
)

// OutlierConfig tunes the two statistical tests.
type OutlierConfig struct {
	// ZScoreThreshold flags |z| strictly above this value.
	ZScoreThreshold float64
	// IQRMultiplier widens the fence to [Q1-k*IQR, Q3+k*IQR].
	IQRMultiplier float64
	// MaxWorkers bounds the per-column goroutines.
	MaxWorkers int
}

// DefaultOutlierConfig returns the standard |z|>3, 1.5*IQR policy.
func DefaultOutlierConfig() OutlierConfig {
	return OutlierConfig{
		ZScoreThreshold: 3,
		IQRMultiplier:   1.5,
		MaxWorkers:      4,
	}
}

// OutlierDetector applies the z-score and IQR tests per numeric column
// and replaces cells flagged by either test with the missing marker.
type OutlierDetector struct {
	cfg    OutlierConfig
	logger *slog.Logger
}

// NewOutlierDetector creates a detector with the given configuration.
// Zero thresholds fall back to the defaults.
func NewOutlierDetector(cfg OutlierConfig, logger *slog.Logger) *OutlierDetector {
	def := DefaultOutlierConfig()
	if cfg.ZScoreThreshold <= 0 {
		cfg.ZScoreThreshold = def.ZScoreThreshold
	}
	if cfg.IQRMultiplier <= 0 {
		cfg.IQRMultiplier = def.IQRMultiplier
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutlierDetector{cfg: cfg, logger: logger}
}

// ColumnOutliers summarizes one column's treatment.
type ColumnOutliers struct {
	Column        string `json:"column"`
	ZScoreFlags   int    `json:"zscore_flags"`
	IQRFlags      int    `json:"iqr_flags"`
	TreatedCells  int    `json:"treated_cells"`
	ZScoreSkipped bool   `json:"zscore_skipped"`
}

// OutlierReport summarizes a full treatment pass.
type OutlierReport struct {
	Columns        []ColumnOutliers `json:"columns"`
	FlaggedColumns []string         `json:"flagged_columns"`
	TreatedCells   int              `json:"treated_cells"`
}

// Treat runs both tests on every column of the table and replaces flagged
// cells with NaN in place. Columns are processed in parallel: each worker
// reads only its own column and writes only its own column's cells, so
// the partitioning needs no locking. Flagged rows are kept; only cells
// are blanked.
func (d *OutlierDetector) Treat(ctx context.Context, t *domain.WideTable) (OutlierReport, error) {
	results := make([]ColumnOutliers, t.Cols())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.MaxWorkers)

	for j := 0; j < t.Cols(); j++ {
		j := j
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[j] = d.treatColumn(ctx, t, j)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return OutlierReport{}, err
	}

	report := OutlierReport{Columns: results}
	for _, col := range results {
		report.TreatedCells += col.TreatedCells
		if col.TreatedCells > 0 {
			report.FlaggedColumns = append(report.FlaggedColumns, col.Column)
		}
	}

	d.logger.InfoContext(ctx, "outlier treatment completed",
		slog.Int("columns", t.Cols()),
		slog.Int("flagged_columns", len(report.FlaggedColumns)),
		slog.Int("treated_cells", report.TreatedCells))

	return report, nil
}

// treatColumn applies both tests to column j and blanks the union of
// their flags.
func (d *OutlierDetector) treatColumn(ctx context.Context, t *domain.WideTable, j int) ColumnOutliers {
	name := t.Columns[j].String()
	result := ColumnOutliers{Column: name}

	var observed []float64
	for i := range t.Cells {
		if v := t.Cells[i][j]; !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		result.ZScoreSkipped = true
		return result
	}

	mean, stddev := stat.MeanStdDev(observed, nil)
	zApplies := len(observed) >= 2 && stddev > 0
	if !zApplies {
		// Degenerate column: the z-score statistic is undefined, the
		// IQR test still applies.
		result.ZScoreSkipped = true
		degenerate := apperrors.NewDegenerateColumnError("z-score test skipped", nil).
			WithContext("column", name).
			WithContext("samples", len(observed))
		d.logger.DebugContext(ctx, degenerate.Error(),
			slog.String("column", name),
			slog.Int("samples", len(observed)))
	}

	sorted := append([]float64(nil), observed...)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	lower := q1 - d.cfg.IQRMultiplier*iqr
	upper := q3 + d.cfg.IQRMultiplier*iqr

	for i := range t.Cells {
		v := t.Cells[i][j]
		if math.IsNaN(v) {
			continue
		}

		flagged := false
		if zApplies && math.Abs((v-mean)/stddev) > d.cfg.ZScoreThreshold {
			result.ZScoreFlags++
			flagged = true
		}
		if v < lower || v > upper {
			result.IQRFlags++
			flagged = true
		}

		if flagged {
			t.Cells[i][j] = math.NaN()
			result.TreatedCells++
		}
	}

	return result
}
