package dataprocessing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "genpulse/internal/errors"
	"genpulse/pkg/contracts/domain"
)

func TestCorrelator_PerfectCorrelation(t *testing.T) {
	correlator := NewCorrelator(nil)

	a := domain.MonthlySeries{
		day(2024, 1, 1): 10,
		day(2024, 2, 1): 20,
		day(2024, 3, 1): 30,
	}
	b := domain.MonthlySeries{
		day(2024, 1, 1): 1,
		day(2024, 2, 1): 2,
		day(2024, 3, 1): 3,
	}

	result, err := correlator.Correlate(a, b)
	require.NoError(t, err)

	assert.Equal(t, 3, result.SampleCount)
	assert.InDelta(t, 1.0, result.Coefficient, 1e-12)
}

func TestCorrelator_NoOverlap(t *testing.T) {
	correlator := NewCorrelator(nil)

	a := domain.MonthlySeries{day(2024, 1, 1): 10}
	b := domain.MonthlySeries{day(2023, 1, 1): 1}

	_, err := correlator.Correlate(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoOverlap)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCorrelation))
}

func TestCorrelator_PartialOverlap(t *testing.T) {
	correlator := NewCorrelator(nil)

	a := domain.MonthlySeries{
		day(2024, 1, 1): 10,
		day(2024, 2, 1): 5,
		day(2024, 3, 1): 30,
	}
	// B only covers two of A's months plus one A lacks.
	b := domain.MonthlySeries{
		day(2024, 2, 1): 8,
		day(2024, 3, 1): 2,
		day(2024, 4, 1): 99,
	}

	result, err := correlator.Correlate(a, b)
	require.NoError(t, err)

	assert.Equal(t, 2, result.SampleCount)
	// Two points always align perfectly; the sign carries the relation.
	assert.InDelta(t, -1.0, result.Coefficient, 1e-12)
}

func TestCorrelator_NegativeCorrelation(t *testing.T) {
	correlator := NewCorrelator(nil)

	a := domain.MonthlySeries{
		day(2024, 1, 1): 1,
		day(2024, 2, 1): 2,
		day(2024, 3, 1): 3,
		day(2024, 4, 1): 4,
	}
	b := domain.MonthlySeries{
		day(2024, 1, 1): 8,
		day(2024, 2, 1): 6,
		day(2024, 3, 1): 4,
		day(2024, 4, 1): 2,
	}

	result, err := correlator.Correlate(a, b)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, result.Coefficient, 1e-12)
}

func TestMonthlySeriesFromTable(t *testing.T) {
	records := []domain.GenerationRecord{
		genRecord(day(2024, 1, 1), "Wind", 500, 10),
		genRecord(day(2024, 2, 1), "Wind", 480, 9),
	}
	table := Pivot(records, domain.MetricValue, MonthlyIndex)

	series, err := MonthlySeriesFromTable(table, domain.ColumnKey{Metric: domain.MetricValue, Technology: "Wind"})
	require.NoError(t, err)

	assert.Equal(t, domain.MonthlySeries{
		day(2024, 1, 1): 500,
		day(2024, 2, 1): 480,
	}, series)
}

func TestMonthlySeriesFromTable_UnknownColumn(t *testing.T) {
	table := Pivot(nil, domain.MetricValue, MonthlyIndex)

	_, err := MonthlySeriesFromTable(table, domain.ColumnKey{Metric: domain.MetricValue, Technology: "Wind"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
}
