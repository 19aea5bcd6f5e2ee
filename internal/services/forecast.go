package services

import (
	"sort"
	"time"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Interval is a central forecast interval taken from a quantile band.
type Interval struct {
	Level         int
	LowerQuantile string
	UpperQuantile string
	Lower         float64
	Upper         float64
	Median        float64
}

// intervalLevels maps a confidence level to its quantile pair.
var intervalLevels = map[int][2]string{
	80: {"0.1", "0.9"},
	70: {"0.15", "0.85"},
	50: {"0.25", "0.75"},
}

// SupportedConfidenceLevels lists the levels Interval accepts.
func SupportedConfidenceLevels() []int {
	levels := make([]int, 0, len(intervalLevels))
	for l := range intervalLevels {
		levels = append(levels, l)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))
	return levels
}

// ForecastAccessor resolves forecast values for a horizon counted in months
// after the last actual observation.
type ForecastAccessor struct{}

// At returns the forecast point monthsAhead months after the last actual.
func (ForecastAccessor) At(f models.ForecastSeries, monthsAhead int) (models.ForecastPoint, error) {
	maxHorizon := f.MaxHorizon()
	if monthsAhead < 1 || monthsAhead > maxHorizon {
		return models.ForecastPoint{}, utils.NewOutOfRangeError(
			"forecast for %d months ahead is not available, maximum forecast horizon is %d months", monthsAhead, maxHorizon).
			WithDetail("max_horizon", maxHorizon).
			WithDetail("available_range", map[string]int{"min_months": 1, "max_months": maxHorizon})
	}
	return f.Future()[monthsAhead-1], nil
}

// Point returns the date and point estimate monthsAhead months out.
func (a ForecastAccessor) Point(f models.ForecastSeries, monthsAhead int) (time.Time, float64, error) {
	p, err := a.At(f, monthsAhead)
	if err != nil {
		return time.Time{}, 0, err
	}
	v, err := pointValue(p)
	if err != nil {
		return time.Time{}, 0, err
	}
	return p.Date, v, nil
}

// Quantiles returns the full band monthsAhead months out.
func (a ForecastAccessor) Quantiles(f models.ForecastSeries, monthsAhead int) (time.Time, models.QuantileBand, error) {
	p, err := a.At(f, monthsAhead)
	if err != nil {
		return time.Time{}, nil, err
	}
	if len(p.Quantiles) == 0 {
		return time.Time{}, nil, utils.NewNotFoundError("no quantile band for %s", formatDate(p.Date))
	}
	return p.Date, p.Quantiles, nil
}

// Interval selects the quantile pair for a confidence level.
func (ForecastAccessor) Interval(band models.QuantileBand, level int) (Interval, error) {
	pair, ok := intervalLevels[level]
	if !ok {
		return Interval{}, utils.NewValidationErrorf("confidence level %d%% not supported, available levels: 80, 70, 50", level)
	}
	lower, lok := band.Get(pair[0])
	upper, uok := band.Get(pair[1])
	median, mok := band.Median()
	if !lok || !uok || !mok {
		return Interval{}, utils.NewInvalidDataError("quantile band is missing %s, %s or 0.5", pair[0], pair[1])
	}
	return Interval{
		Level:         level,
		LowerQuantile: pair[0],
		UpperQuantile: pair[1],
		Lower:         lower,
		Upper:         upper,
		Median:        median,
	}, nil
}

// ByDate returns the forecast point dated date.
func (ForecastAccessor) ByDate(f models.ForecastSeries, date time.Time) (models.ForecastPoint, error) {
	if len(f.Points) == 0 {
		return models.ForecastPoint{}, utils.NewNotFoundError("dataset has no forecast points")
	}
	first, last := f.Points[0].Date, f.Points[len(f.Points)-1].Date
	available := models.DateRange{Start: formatDate(first), End: formatDate(last)}

	i := sort.Search(len(f.Points), func(i int) bool { return !f.Points[i].Date.Before(date) })
	if i < len(f.Points) && f.Points[i].Date.Equal(date) {
		return f.Points[i], nil
	}
	return models.ForecastPoint{}, utils.NewNotFoundError(
		"no forecast available for %s, forecasts are available from %s to %s",
		formatDate(date), available.Start, available.End).
		WithDetail("available_range", available)
}

// All returns every future point estimate in date order.
func (ForecastAccessor) All(f models.ForecastSeries) ([]models.DatedValue, error) {
	future := f.Future()
	out := make([]models.DatedValue, 0, len(future))
	for _, p := range future {
		v, err := pointValue(p)
		if err != nil {
			return nil, err
		}
		out = append(out, models.DatedValue{Date: formatDate(p.Date), Value: v})
	}
	return out, nil
}

// MonthlyTrend is the month-over-month path of the first months forecasts.
type MonthlyTrend struct {
	Start          models.Point
	End            models.Point
	Months         int
	Changes        []float64
	AverageChange  float64
	TrendDirection string
}

// Trend summarises the first months forecast months. At least two months
// are needed to form a change.
func (a ForecastAccessor) Trend(f models.ForecastSeries, months int) (MonthlyTrend, error) {
	maxHorizon := f.MaxHorizon()
	if months < 2 || months > maxHorizon {
		return MonthlyTrend{}, utils.NewOutOfRangeError(
			"forecast trend analysis requires between 2 and %d months, got %d", maxHorizon, months).
			WithDetail("max_horizon", maxHorizon)
	}

	future := f.Future()[:months]
	values := make([]float64, months)
	for i, p := range future {
		v, err := pointValue(p)
		if err != nil {
			return MonthlyTrend{}, err
		}
		values[i] = v
	}

	changes := make([]float64, 0, months-1)
	var sum float64
	for i := 1; i < months; i++ {
		pct, err := PercentChangeValues(values[i-1], values[i])
		if err != nil {
			return MonthlyTrend{}, err
		}
		pct = round(pct, 2)
		changes = append(changes, pct)
		sum += pct
	}
	avg := round(sum/float64(len(changes)), 2)

	return MonthlyTrend{
		Start:          models.Point{Date: future[0].Date, Value: values[0]},
		End:            models.Point{Date: future[months-1].Date, Value: values[months-1]},
		Months:         months,
		Changes:        changes,
		AverageChange:  avg,
		TrendDirection: directionOf(avg, 0),
	}, nil
}

func pointValue(p models.ForecastPoint) (float64, error) {
	v, ok := p.Value()
	if !ok {
		return 0, utils.NewInvalidDataError("forecast point %s has no value", formatDate(p.Date))
	}
	return v, nil
}
