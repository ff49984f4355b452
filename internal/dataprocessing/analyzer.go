package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"genpulse/internal/infrastructure"
	"genpulse/pkg/contracts/domain"
)

// AnalyzerConfig bundles the policy knobs of all pipeline stages.
type AnalyzerConfig struct {
	SplitPolicy SplitPolicy
	Outliers    OutlierConfig
}

// DefaultAnalyzerConfig returns the standard policies.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		SplitPolicy: DefaultSplitPolicy(),
		Outliers:    DefaultOutlierConfig(),
	}
}

// Analyzer wires the pipeline stages together: normalize, split, pivot,
// detect outliers, clean. Each run produces a clean daily table and a
// clean monthly table (value and percentage columns side by side) plus a
// report of what every stage did.
type Analyzer struct {
	normalizer *Normalizer
	splitter   *Splitter
	detector   *OutlierDetector
	cleaner    *Cleaner
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewAnalyzer creates an analyzer. A nil tracer disables tracing.
func NewAnalyzer(cfg AnalyzerConfig, logger *slog.Logger, tracer trace.Tracer) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(infrastructure.TracerName)
	}
	return &Analyzer{
		normalizer: NewNormalizer(logger),
		splitter:   NewSplitter(cfg.SplitPolicy, logger),
		detector:   NewOutlierDetector(cfg.Outliers, logger),
		cleaner:    NewCleaner(logger),
		logger:     logger,
		tracer:     tracer,
	}
}

// RunReport aggregates the per-stage reports of one pipeline run.
type RunReport struct {
	RunID       string              `json:"run_id"`
	Normalize   NormalizeReport     `json:"normalize"`
	Resolutions []domain.Resolution `json:"resolutions,omitempty"`
	Daily       TableReport         `json:"daily"`
	Monthly     TableReport         `json:"monthly"`
}

// TableReport holds the cleaning reports of one produced table.
type TableReport struct {
	Outliers OutlierReport `json:"outliers"`
	Clean    CleanReport   `json:"clean"`
}

// Result is the pipeline output: the two clean tables and the run report.
type Result struct {
	Daily   *domain.WideTable
	Monthly *domain.WideTable
	Report  RunReport
}

// Run executes the full pipeline over a batch of raw records. A bad
// record never aborts the run; empty input yields empty tables.
func (a *Analyzer) Run(ctx context.Context, raws []domain.RawRecord) (*Result, error) {
	runID := uuid.New().String()
	ctx = infrastructure.WithRunID(ctx, runID)

	ctx, span := a.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.Int("raw_records", len(raws))))
	defer span.End()

	a.logger.InfoContext(ctx, "pipeline run starting",
		slog.Int("raw_records", len(raws)))

	report := RunReport{RunID: runID}

	records, normReport := a.normalizeStage(ctx, raws)
	report.Normalize = normReport

	daily, monthly, resolutions := a.reshapeStage(ctx, records)
	report.Resolutions = resolutions

	if err := a.treatStage(ctx, "daily", daily, &report.Daily); err != nil {
		return nil, fmt.Errorf("treat daily table: %w", err)
	}
	if err := a.treatStage(ctx, "monthly", monthly, &report.Monthly); err != nil {
		return nil, fmt.Errorf("treat monthly table: %w", err)
	}

	a.logger.InfoContext(ctx, "pipeline run completed",
		slog.Int("daily_rows", daily.Rows()),
		slog.Int("monthly_rows", monthly.Rows()))

	return &Result{Daily: daily, Monthly: monthly, Report: report}, nil
}

// normalizeStage coerces raw rows and drops the ones that cannot carry a
// timestamp.
func (a *Analyzer) normalizeStage(ctx context.Context, raws []domain.RawRecord) ([]domain.GenerationRecord, NormalizeReport) {
	ctx, span := a.tracer.Start(ctx, "pipeline.normalize")
	defer span.End()

	records, report := a.normalizer.Normalize(ctx, raws)
	valid := ValidOnly(records)

	span.SetAttributes(
		attribute.Int("records", report.Total),
		attribute.Int("bad_timestamps", report.BadTimestamps),
		attribute.Int("valid_records", len(valid)),
	)
	return valid, report
}

// reshapeStage splits the dual series per metric and pivots both
// granularities, merging value and percentage columns into one table per
// granularity.
func (a *Analyzer) reshapeStage(ctx context.Context, records []domain.GenerationRecord) (daily, monthly *domain.WideTable, resolutions []domain.Resolution) {
	ctx, span := a.tracer.Start(ctx, "pipeline.reshape")
	defer span.End()

	dailyValue, valueRes := a.splitter.DailySeries(records, domain.MetricValue)
	dailyPercent, pctRes := a.splitter.DailySeries(records, domain.MetricPercentage)
	monthlyValue, monValueRes := a.splitter.MonthlySeries(records, domain.MetricValue)
	monthlyPercent, monPctRes := a.splitter.MonthlySeries(records, domain.MetricPercentage)

	resolutions = append(resolutions, valueRes...)
	resolutions = append(resolutions, pctRes...)
	resolutions = append(resolutions, monValueRes...)
	resolutions = append(resolutions, monPctRes...)

	daily = Merge(
		Pivot(dailyValue, domain.MetricValue, DailyIndex),
		Pivot(dailyPercent, domain.MetricPercentage, DailyIndex),
	)
	monthly = Merge(
		Pivot(monthlyValue, domain.MetricValue, MonthlyIndex),
		Pivot(monthlyPercent, domain.MetricPercentage, MonthlyIndex),
	)

	span.SetAttributes(
		attribute.Int("daily_rows", daily.Rows()),
		attribute.Int("monthly_rows", monthly.Rows()),
		attribute.Int("collisions", len(resolutions)),
	)

	a.logger.InfoContext(ctx, "reshaped records into wide tables",
		slog.Int("daily_rows", daily.Rows()),
		slog.Int("monthly_rows", monthly.Rows()),
		slog.Int("collisions_resolved", len(resolutions)))

	return daily, monthly, resolutions
}

// treatStage runs outlier treatment and the final cleaning pass on one
// table.
func (a *Analyzer) treatStage(ctx context.Context, name string, t *domain.WideTable, report *TableReport) error {
	ctx, span := a.tracer.Start(ctx, "pipeline.treat",
		trace.WithAttributes(attribute.String("table", name)))
	defer span.End()

	outliers, err := a.detector.Treat(ctx, t)
	if err != nil {
		return err
	}
	report.Outliers = outliers
	report.Clean = a.cleaner.Clean(ctx, t)

	span.SetAttributes(
		attribute.Int("treated_cells", outliers.TreatedCells),
		attribute.Int("rows_remaining", report.Clean.RowsRemaining),
	)
	return nil
}
