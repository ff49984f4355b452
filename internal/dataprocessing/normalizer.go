package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"genpulse/pkg/contracts/domain"
)

// timestampFormats lists the layouts the feed has been observed to use.
// The REData API reports zoned ISO timestamps with milliseconds; older
// exports carry bare dates.
var timestampFormats = []string{
	"2006-01-02T15:04:05.000-07:00",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Normalizer parses raw feed rows into canonical GenerationRecords.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer. A nil logger falls back to the
// default slog logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// NormalizeReport summarizes a normalization pass.
type NormalizeReport struct {
	Total           int `json:"total"`
	BadTimestamps   int `json:"bad_timestamps"`
	MissingValues   int `json:"missing_values"`
	EmptyTechnology int `json:"empty_technology"`
}

// Normalize converts raw records into GenerationRecords. Malformed
// timestamps produce records with Valid=false rather than an error, and
// non-finite values stay NaN so the cleaning stages can deal with them.
// The whole batch is always processed.
func (n *Normalizer) Normalize(ctx context.Context, raws []domain.RawRecord) ([]domain.GenerationRecord, NormalizeReport) {
	report := NormalizeReport{Total: len(raws)}
	records := make([]domain.GenerationRecord, 0, len(raws))

	for _, raw := range raws {
		tech := strings.TrimSpace(raw.Technology)
		if tech == "" {
			report.EmptyTechnology++
			continue
		}

		rec := domain.GenerationRecord{
			Technology: tech,
			Value:      raw.Value,
			Percentage: raw.Percentage,
		}

		if ts, err := parseTimestamp(raw.Timestamp); err == nil {
			rec.Timestamp = ts
			rec.Valid = true
		} else {
			report.BadTimestamps++
			n.logger.WarnContext(ctx, "unparseable timestamp, record marked invalid",
				slog.String("timestamp", raw.Timestamp),
				slog.String("technology", tech))
		}

		if math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0) {
			rec.Value = math.NaN()
			report.MissingValues++
		}
		if math.IsNaN(rec.Percentage) || math.IsInf(rec.Percentage, 0) {
			rec.Percentage = math.NaN()
			report.MissingValues++
		}

		records = append(records, rec)
	}

	n.logger.InfoContext(ctx, "normalized raw records",
		slog.Int("total", report.Total),
		slog.Int("bad_timestamps", report.BadTimestamps),
		slog.Int("missing_values", report.MissingValues),
		slog.Int("empty_technology", report.EmptyTechnology))

	return records, report
}

// ValidOnly filters normalized records down to those with a parseable
// timestamp; only these can participate in time-indexed stages.
func ValidOnly(records []domain.GenerationRecord) []domain.GenerationRecord {
	valid := make([]domain.GenerationRecord, 0, len(records))
	for _, r := range records {
		if r.Valid {
			valid = append(valid, r)
		}
	}
	return valid
}

// parseTimestamp attempts each known layout in order.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampFormats {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
