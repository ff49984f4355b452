package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"genpulse/internal/config"
	"genpulse/internal/infrastructure"
	"genpulse/internal/redata"
	"genpulse/internal/selection"
)

func main() {
	region := flag.String("region", "", "autonomous community name (e.g. \"Galicia\")")
	start := flag.String("start", "", "start date, YYYY-MM-DD (inclusive)")
	end := flag.String("end", "", "end date, YYYY-MM-DD (inclusive)")
	out := flag.String("out", "", "output JSON file (defaults to <data_dir>/raw_<region>.json)")
	configFile := flag.String("config", "", "optional YAML config file")
	listRegions := flag.Bool("list-regions", false, "print the supported regions and exit")
	flag.Parse()

	if *listRegions {
		for i, r := range selection.Regions() {
			fmt.Printf("%2d. %s (geo_id %d)\n", i+1, r.Name, r.GeoID)
		}
		return
	}

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

	if *region == "" || *start == "" || *end == "" {
		logger.Error("Missing required flags: -region, -start and -end")
		flag.Usage()
		os.Exit(1)
	}

	chosen, err := selection.RegionByName(selection.Regions(), *region)
	if err != nil {
		logger.Error("Unknown region", slog.String("region", *region), slog.String("error", err.Error()))
		os.Exit(1)
	}

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		logger.Error("Invalid start date", slog.String("start", *start), slog.String("error", err.Error()))
		os.Exit(1)
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		logger.Error("Invalid end date", slog.String("end", *end), slog.String("error", err.Error()))
		os.Exit(1)
	}
	if endDate.Before(startDate) {
		logger.Error("End date precedes start date",
			slog.String("start", *start),
			slog.String("end", *end))
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = cfg.RawDataPath(fmt.Sprintf("raw_%d.json", chosen.GeoID))
	}

	logger.Info("Fetching generation structure",
		slog.String("region", chosen.Name),
		slog.Int("geo_id", chosen.GeoID),
		slog.String("start", *start),
		slog.String("end", *end),
		slog.String("out", outPath))

	client := redata.NewClient(cfg.API, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	records, err := client.FetchGenerationStructure(ctx, redata.FetchRequest{
		GeoID:     chosen.GeoID,
		Start:     startDate,
		End:       endDate,
		TimeTrunc: "day",
	})
	if err != nil {
		logger.Error("Fetch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		logger.Error("Failed to encode records", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		logger.Error("Failed to write output file",
			slog.String("path", outPath),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Raw records saved",
		slog.Int("record_count", len(records)),
		slog.String("path", outPath))
	fmt.Printf("Fetched %d records for %s into %s\n", len(records), chosen.Name, outPath)
}
