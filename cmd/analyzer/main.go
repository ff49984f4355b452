package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"genpulse/internal/config"
	"genpulse/internal/dataprocessing"
	"genpulse/internal/exporter"
	"genpulse/internal/infrastructure"
	"genpulse/internal/windspeed"
	"genpulse/pkg/contracts/domain"
)

func main() {
	in := flag.String("in", "", "input JSON file of raw records (output of the fetcher)")
	outDir := flag.String("outdir", "", "output directory for reports (defaults to <report_dir>)")
	windPath := flag.String("wind", "", "optional wind speed file (.csv or .xlsx) for correlation")
	windYear := flag.Int("year", 0, "target year of the wind speed series (required with -wind)")
	technology := flag.String("technology", "Eólica", "technology column correlated against wind speed")
	configFile := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	if *in == "" {
		logger.Error("Missing required flag: -in")
		flag.Usage()
		os.Exit(1)
	}
	if *windPath != "" && *windYear == 0 {
		logger.Error("Flag -wind requires -year")
		os.Exit(1)
	}

	if *outDir == "" {
		*outDir = cfg.Paths.ReportDir
	}

	tracing, err := infrastructure.InitTracing(cfg.Tracing, logger)
	if err != nil {
		logger.Warn("Failed to initialize tracing, continuing without", slog.String("error", err.Error()))
	}
	if tracing != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			tracing.Shutdown(shutdownCtx)
		}()
	}

	raws, err := loadRawRecords(*in)
	if err != nil {
		logger.Error("Failed to load raw records",
			slog.String("path", *in),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Raw records loaded",
		slog.String("path", *in),
		slog.Int("record_count", len(raws)))

	analyzerCfg := dataprocessing.AnalyzerConfig{
		SplitPolicy: dataprocessing.SplitPolicy{
			SmallerValueIsDaily:  cfg.Pipeline.SmallerValueIsDaily,
			LargerPercentIsDaily: cfg.Pipeline.LargerPercentIsDaily,
		},
		Outliers: dataprocessing.OutlierConfig{
			ZScoreThreshold: cfg.Pipeline.ZScoreThreshold,
			IQRMultiplier:   cfg.Pipeline.IQRMultiplier,
			MaxWorkers:      cfg.Pipeline.MaxColumnWorkers,
		},
	}

	var tracer trace.Tracer
	if tracing != nil {
		tracer = tracing.Tracer
	}
	analyzer := dataprocessing.NewAnalyzer(analyzerCfg, logger, tracer)

	ctx := context.Background()
	result, err := analyzer.Run(ctx, raws)
	if err != nil {
		logger.Error("Pipeline run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Pipeline run complete",
		slog.String("run_id", result.Report.RunID),
		slog.Int("daily_rows", result.Daily.Rows()),
		slog.Int("monthly_rows", result.Monthly.Rows()))

	var correlations []domain.CorrelationResult
	if *windPath != "" {
		corr, err := correlateWithWind(result, *windPath, *windYear, *technology, logger)
		if err != nil {
			logger.Error("Correlation failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		correlations = append(correlations, corr)
		fmt.Printf("Pearson r between %s and %s: %.4f over %d months\n",
			corr.SeriesALabel, corr.SeriesBLabel, corr.Coefficient, corr.SampleCount)
	}

	if err := writeReports(*outDir, result, correlations, logger); err != nil {
		logger.Error("Failed to write reports", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Reports written to %s\n", *outDir)
}

func loadRawRecords(path string) ([]domain.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raws []domain.RawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode raw records: %w", err)
	}
	return raws, nil
}

func correlateWithWind(result *dataprocessing.Result, windPath string, year int, technology string, logger *slog.Logger) (domain.CorrelationResult, error) {
	loader := windspeed.NewLoader(logger)

	var wind domain.MonthlySeries
	var err error
	if strings.EqualFold(filepath.Ext(windPath), ".xlsx") {
		wind, err = loader.LoadExcel(windPath, year)
	} else {
		wind, err = loader.LoadCSV(windPath, year)
	}
	if err != nil {
		return domain.CorrelationResult{}, err
	}

	key := domain.ColumnKey{Metric: domain.MetricValue, Technology: technology}
	generation, err := dataprocessing.MonthlySeriesFromTable(result.Monthly, key)
	if err != nil {
		return domain.CorrelationResult{}, err
	}

	corr, err := dataprocessing.NewCorrelator(logger).Correlate(generation, wind)
	if err != nil {
		return domain.CorrelationResult{}, err
	}
	corr.SeriesALabel = key.String()
	corr.SeriesBLabel = "wind_speed"
	return corr, nil
}

func writeReports(outDir string, result *dataprocessing.Result, correlations []domain.CorrelationResult, logger *slog.Logger) error {
	csvWriter := exporter.NewCSVWriter(logger)
	if err := csvWriter.WriteWideTable(filepath.Join(outDir, "daily.csv"), result.Daily, exporter.DailyTableOptions()); err != nil {
		return err
	}
	if err := csvWriter.WriteWideTable(filepath.Join(outDir, "monthly.csv"), result.Monthly, exporter.MonthlyTableOptions()); err != nil {
		return err
	}

	excelWriter := exporter.NewExcelWriter(logger)
	if err := excelWriter.WriteWorkbook(filepath.Join(outDir, "report.xlsx"), exporter.WorkbookContent{
		Daily:        result.Daily,
		Monthly:      result.Monthly,
		Correlations: correlations,
	}); err != nil {
		return err
	}

	reportData, err := json.MarshalIndent(result.Report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	return os.WriteFile(filepath.Join(outDir, "run_report.json"), reportData, 0644)
}
