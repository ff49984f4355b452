// Package dataprocessing implements the generation-data pipeline: it turns
// the raw regional generation feed into clean daily and monthly wide
// tables and correlates monthly production against external observations.
//
// # Architecture
//
// The package is organized around six stages:
//
//  1. Normalizer: coerces raw feed rows into canonical GenerationRecords
//  2. Splitter: disambiguates daily-actual vs monthly-cumulative rows
//  3. Pivot: reshapes long records into time-indexed wide tables
//  4. OutlierDetector: z-score and IQR tests, flagged cells become NaN
//  5. Cleaner: duplicate removal followed by null-row removal
//  6. Correlator: monthly inner join plus Pearson coefficient
//
// The Analyzer type wires the stages together and reports per-stage
// counts for a run.
//
// # Data Flow
//
//	RawRecords → Normalizer → GenerationRecords → Splitter → Pivot →
//	OutlierDetector → Cleaner → WideTables → Correlator
//
// # The dual-series feed quirk
//
// The upstream feed reports, on the first day of every month, both the
// actual daily figure and the cumulative monthly total for each
// technology, under the same timestamp. The splitter resolves the
// collision with an explicit, overridable policy (see SplitPolicy)
// instead of burying the rule in sort order, so the assumption behind it
// stays auditable.
//
// # Error Handling
//
// A single malformed record never aborts a batch: parse failures become
// missing markers and are counted, degenerate columns skip the z-score
// test, and a correlation join with no overlapping months surfaces as
// ErrNoOverlap rather than a NaN coefficient.
package dataprocessing
