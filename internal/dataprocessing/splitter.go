package dataprocessing

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"genpulse/pkg/contracts/domain"
)

// SplitPolicy captures the disambiguation rules for first-of-month
// collisions. The defaults encode what the feed has always done: of two
// colliding values the smaller is the true daily figure and the larger is
// the monthly cumulative; of two colliding percentages the larger is the
// daily figure. Nothing upstream guarantees this ordering, so the policy
// is explicit and can be inverted per deployment.
type SplitPolicy struct {
	SmallerValueIsDaily  bool
	LargerPercentIsDaily bool
}

// DefaultSplitPolicy returns the observed feed behavior.
func DefaultSplitPolicy() SplitPolicy {
	return SplitPolicy{
		SmallerValueIsDaily:  true,
		LargerPercentIsDaily: true,
	}
}

// Splitter resolves the dual-series quirk: the feed emits both a daily
// actual and a monthly cumulative row under the same first-of-month
// timestamp for each technology.
type Splitter struct {
	policy SplitPolicy
	logger *slog.Logger
}

// NewSplitter creates a splitter with the given policy.
func NewSplitter(policy SplitPolicy, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{policy: policy, logger: logger}
}

type groupKey struct {
	date       time.Time
	technology string
}

// DailySeries returns at most one record per (calendar day, technology),
// resolved for the given metric. Non-colliding records pass through
// unchanged. The returned resolutions record every collision decision.
func (s *Splitter) DailySeries(records []domain.GenerationRecord, metric domain.Metric) ([]domain.GenerationRecord, []domain.Resolution) {
	groups := groupByDay(records)

	daily := make([]domain.GenerationRecord, 0, len(groups))
	var resolutions []domain.Resolution

	for key, candidates := range groups {
		if len(candidates) == 1 {
			daily = append(daily, candidates[0])
			continue
		}

		keptIdx := 0
		for i, c := range candidates[1:] {
			if s.isDailyPreferred(c, candidates[keptIdx], metric) {
				keptIdx = i + 1
			}
		}
		kept := candidates[keptIdx]
		daily = append(daily, kept)

		for i, c := range candidates {
			if i == keptIdx {
				continue
			}
			resolutions = append(resolutions, domain.Resolution{
				Date:       key.date,
				Technology: key.technology,
				Kind:       domain.SeriesDailyActual,
				Kept:       metric.Of(kept),
				Discarded:  metric.Of(c),
			})
		}
	}

	sortRecords(daily)
	sortResolutions(resolutions)
	return daily, resolutions
}

// MonthlySeries returns the cumulative monthly record per (month,
// technology): among first-of-month records it keeps the one the policy
// tags as cumulative. Months without any first-of-month record for a
// technology are simply absent.
func (s *Splitter) MonthlySeries(records []domain.GenerationRecord, metric domain.Metric) ([]domain.GenerationRecord, []domain.Resolution) {
	groups := make(map[groupKey][]domain.GenerationRecord)
	for _, r := range records {
		if !r.FirstOfMonth() {
			continue
		}
		key := groupKey{date: domain.MonthKey(r.Timestamp), technology: r.Technology}
		groups[key] = append(groups[key], r)
	}

	monthly := make([]domain.GenerationRecord, 0, len(groups))
	var resolutions []domain.Resolution

	for key, candidates := range groups {
		keptIdx := 0
		for i, c := range candidates[1:] {
			// The cumulative record is the one the daily rule rejects.
			if !s.isDailyPreferred(c, candidates[keptIdx], metric) {
				keptIdx = i + 1
			}
		}
		kept := candidates[keptIdx]
		monthly = append(monthly, kept)

		if len(candidates) == 1 {
			continue
		}
		for i, c := range candidates {
			if i == keptIdx {
				continue
			}
			resolutions = append(resolutions, domain.Resolution{
				Date:       key.date,
				Technology: key.technology,
				Kind:       domain.SeriesMonthlyCumulative,
				Kept:       metric.Of(kept),
				Discarded:  metric.Of(c),
			})
		}
	}

	sortRecords(monthly)
	sortResolutions(resolutions)
	return monthly, resolutions
}

// isDailyPreferred reports whether candidate should replace current as
// the daily figure under the configured policy. A non-missing metric
// always beats a missing one.
func (s *Splitter) isDailyPreferred(candidate, current domain.GenerationRecord, metric domain.Metric) bool {
	cv, kv := metric.Of(candidate), metric.Of(current)
	if math.IsNaN(cv) {
		return false
	}
	if math.IsNaN(kv) {
		return true
	}

	switch metric {
	case domain.MetricPercentage:
		if s.policy.LargerPercentIsDaily {
			return cv > kv
		}
		return cv < kv
	default:
		if s.policy.SmallerValueIsDaily {
			return cv < kv
		}
		return cv > kv
	}
}

func groupByDay(records []domain.GenerationRecord) map[groupKey][]domain.GenerationRecord {
	groups := make(map[groupKey][]domain.GenerationRecord)
	for _, r := range records {
		key := groupKey{date: domain.DayKey(r.Timestamp), technology: r.Technology}
		groups[key] = append(groups[key], r)
	}
	return groups
}

// sortResolutions orders the audit trail by date then technology so run
// reports are byte-stable across runs.
func sortResolutions(res []domain.Resolution) {
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Date.Equal(res[j].Date) {
			return res[i].Date.Before(res[j].Date)
		}
		return res[i].Technology < res[j].Technology
	})
}

func sortRecords(records []domain.GenerationRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].Technology < records[j].Technology
	})
}
