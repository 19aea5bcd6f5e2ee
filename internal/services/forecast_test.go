package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/testutil"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

func TestForecastAccessor_Point(t *testing.T) {
	var f ForecastAccessor
	forecast := testutil.CottonPrice().Forecast

	date, value, err := f.Point(forecast, 3)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2025-11-01"), date)
	assert.Equal(t, 178.72, value)

	// The in-sample point dated at the last actual is not month one.
	date, _, err = f.Point(forecast, 1)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2025-09-01"), date)

	for _, months := range []int{0, -1, 13} {
		_, _, err := f.Point(forecast, months)
		require.Error(t, err)
		assert.Equal(t, utils.KindOutOfRange, utils.KindOf(err))
		assert.Equal(t, 12, utils.DetailsOf(err)["max_horizon"])
	}
}

func TestForecastAccessor_HorizonCap(t *testing.T) {
	forecast := testutil.CottonPrice().Forecast
	forecast.Horizon = 6
	assert.Equal(t, 6, forecast.MaxHorizon())

	_, _, err := ForecastAccessor{}.Point(forecast, 7)
	assert.ErrorIs(t, err, utils.ErrOutOfRange)
}

func TestForecastAccessor_Interval(t *testing.T) {
	var f ForecastAccessor
	_, band, err := f.Quantiles(testutil.CottonPrice().Forecast, 3)
	require.NoError(t, err)
	assert.True(t, band.Monotonic())

	tests := []struct {
		level        int
		lower, upper float64
	}{
		{80, 170.50, 187.20},
		{70, 172.10, 185.00},
		{50, 175.30, 182.40},
	}
	for _, tt := range tests {
		iv, err := f.Interval(band, tt.level)
		require.NoError(t, err)
		assert.Equal(t, tt.lower, iv.Lower)
		assert.Equal(t, tt.upper, iv.Upper)
		assert.Equal(t, 178.72, iv.Median)
		assert.LessOrEqual(t, iv.Lower, iv.Median)
		assert.LessOrEqual(t, iv.Median, iv.Upper)
	}

	_, err = f.Interval(band, 90)
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "available levels: 80, 70, 50")

	_, err = f.Interval(models.QuantileBand{"0.5": 1}, 80)
	assert.ErrorIs(t, err, utils.ErrInvalidData)

	assert.Equal(t, []int{80, 70, 50}, SupportedConfidenceLevels())
}

func TestForecastAccessor_ByDate(t *testing.T) {
	var f ForecastAccessor
	forecast := testutil.CottonPrice().Forecast

	p, err := f.ByDate(forecast, testutil.Date("2025-08-01"))
	require.NoError(t, err)
	v, ok := p.Value()
	require.True(t, ok)
	assert.Equal(t, 171.40, v)

	_, err = f.ByDate(forecast, testutil.Date("2027-01-01"))
	require.Error(t, err)
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
	assert.Equal(t, models.DateRange{Start: "2025-08-01", End: "2026-08-01"}, utils.DetailsOf(err)["available_range"])
}

func TestForecastAccessor_All(t *testing.T) {
	all, err := ForecastAccessor{}.All(testutil.CottonPrice().Forecast)
	require.NoError(t, err)
	require.Len(t, all, 12)
	assert.Equal(t, models.DatedValue{Date: "2025-09-01", Value: 173.50}, all[0])
	assert.Equal(t, models.DatedValue{Date: "2026-08-01", Value: 187.00}, all[11])
}

func TestForecastAccessor_PointFallsBackToMedian(t *testing.T) {
	forecast := testutil.Forecast(testutil.Month(2025, 1), 50, 60)
	forecast.Points[1].Forecast = nil

	_, v, err := ForecastAccessor{}.Point(forecast, 2)
	require.NoError(t, err)
	assert.Equal(t, 60.0, v)

	forecast.Points[1].Quantiles = models.QuantileBand{}
	_, _, err = ForecastAccessor{}.Point(forecast, 2)
	assert.ErrorIs(t, err, utils.ErrInvalidData)
}

func TestForecastAccessor_Trend(t *testing.T) {
	var f ForecastAccessor
	forecast := testutil.CottonPrice().Forecast

	tr, err := f.Trend(forecast, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.44, 1.55}, tr.Changes)
	assert.InDelta(t, 1.5, tr.AverageChange, 0.01)
	assert.Equal(t, TrendIncreasing, tr.TrendDirection)
	assert.Equal(t, 173.50, tr.Start.Value)
	assert.Equal(t, 178.72, tr.End.Value)

	falling, err := f.Trend(testutil.EnergyFutures().Forecast, 6)
	require.NoError(t, err)
	assert.Equal(t, TrendDecreasing, falling.TrendDirection)
	assert.Len(t, falling.Changes, 5)

	_, err = f.Trend(forecast, 1)
	assert.ErrorIs(t, err, utils.ErrOutOfRange)
	_, err = f.Trend(forecast, 13)
	assert.ErrorIs(t, err, utils.ErrOutOfRange)
}
