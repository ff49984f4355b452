package domain

import (
	"time"
)

// RawRecord is a single observation as delivered by the upstream feed,
// before any validation. Timestamp stays a string because the feed mixes
// formats and occasionally ships garbage.
type RawRecord struct {
	Timestamp  string  `json:"timestamp"`
	Technology string  `json:"technology"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// GenerationRecord is the canonical row representation used by the
// pipeline: one observation of one technology at one point in time.
// Value is in MWh, Percentage is the share of total generation.
// Records are never mutated after normalization.
type GenerationRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Technology string    `json:"technology"`
	Value      float64   `json:"value"`
	Percentage float64   `json:"percentage"`
	// Valid is false when the raw timestamp could not be parsed. Such
	// records carry the unparseable marker and are excluded from
	// time-indexed stages, but are still counted in reports.
	Valid bool `json:"valid"`
}

// FirstOfMonth reports whether the record falls on the first calendar day
// of its month. The upstream feed reports monthly cumulative totals on
// these days, colliding with the actual daily figure.
func (r GenerationRecord) FirstOfMonth() bool {
	return r.Timestamp.Day() == 1
}

// SeriesKind tags which of the two logical series a first-of-month record
// was resolved into.
type SeriesKind string

const (
	SeriesDailyActual       SeriesKind = "daily_actual"
	SeriesMonthlyCumulative SeriesKind = "monthly_cumulative"
)

// Resolution is one entry of the splitter's audit trail: how a colliding
// (date, technology) pair was disambiguated.
type Resolution struct {
	Date       time.Time  `json:"date"`
	Technology string     `json:"technology"`
	Kind       SeriesKind `json:"kind"`
	Kept       float64    `json:"kept"`
	Discarded  float64    `json:"discarded"`
}

// Metric identifies which numeric field of a GenerationRecord a reshaped
// table is built from.
type Metric string

const (
	MetricValue      Metric = "value"
	MetricPercentage Metric = "percentage"
)

// Of extracts the metric's field from a record.
func (m Metric) Of(r GenerationRecord) float64 {
	if m == MetricPercentage {
		return r.Percentage
	}
	return r.Value
}
