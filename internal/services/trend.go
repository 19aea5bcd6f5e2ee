package services

import (
	"fmt"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"gonum.org/v1/gonum/stat"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// DefaultMovingAverageWindow is the window used when none is requested.
const DefaultMovingAverageWindow = 7

// Window bounds a query over a series. Zero times are unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// Change is the percentage change between two observations.
type Change struct {
	Start     models.Point
	End       models.Point
	Percent   float64
	Direction string
}

// TrendAnalyzer answers point, range and change questions over a
// historical series.
type TrendAnalyzer struct {
	thresholdPct float64
}

// NewTrendAnalyzer creates an analyzer that labels changes beyond
// ±thresholdPct as increasing or decreasing.
func NewTrendAnalyzer(thresholdPct float64) *TrendAnalyzer {
	return &TrendAnalyzer{thresholdPct: thresholdPct}
}

// Latest returns the most recent observation.
func (a *TrendAnalyzer) Latest(s models.HistoricalSeries) (models.Point, error) {
	p, ok := s.Last()
	if !ok {
		return models.Point{}, utils.NewNotFoundError("series has no observations")
	}
	return p, nil
}

// At returns the observation dated date. A miss carries the available range
// and the closest date that does exist.
func (a *TrendAnalyzer) At(s models.HistoricalSeries, date time.Time) (models.Point, error) {
	first, ok := s.First()
	if !ok {
		return models.Point{}, utils.NewNotFoundError("series has no observations")
	}
	last, _ := s.Last()

	i, found := s.Index(date)
	if found {
		return s.Points[i], nil
	}

	var suggested time.Time
	var msg string
	switch {
	case date.Before(first.Date):
		suggested = first.Date
		msg = fmt.Sprintf("the date %s is before available data range (%s to %s)",
			formatDate(date), formatDate(first.Date), formatDate(last.Date))
	case date.After(last.Date):
		suggested = last.Date
		msg = fmt.Sprintf("the date %s is after available data range (%s to %s)",
			formatDate(date), formatDate(first.Date), formatDate(last.Date))
	default:
		suggested = s.Points[i-1].Date
		msg = fmt.Sprintf("no data found for date %s, data is available from %s to %s",
			formatDate(date), formatDate(first.Date), formatDate(last.Date))
	}

	return models.Point{}, utils.NewNotFoundError("%s", msg).
		WithDetail("available_range", models.DateRange{Start: formatDate(first.Date), End: formatDate(last.Date)}).
		WithDetail("suggested_date", formatDate(suggested))
}

// Range returns observations with start <= date <= end. Bounds outside the
// series are reported as NotFound with a suggested clipped range.
func (a *TrendAnalyzer) Range(s models.HistoricalSeries, start, end time.Time) ([]models.Point, error) {
	if end.Before(start) {
		return nil, utils.NewValidationErrorf("start_date %s is after end_date %s", formatDate(start), formatDate(end))
	}
	first, ok := s.First()
	if !ok {
		return nil, utils.NewNotFoundError("series has no observations")
	}
	last, _ := s.Last()

	if start.Before(first.Date) || end.After(last.Date) {
		clippedStart, clippedEnd := start, end
		if clippedStart.Before(first.Date) {
			clippedStart = first.Date
		}
		if clippedEnd.After(last.Date) {
			clippedEnd = last.Date
		}
		return nil, utils.NewNotFoundError("requested range (%s to %s) is outside available data (%s to %s)",
			formatDate(start), formatDate(end), formatDate(first.Date), formatDate(last.Date)).
			WithDetail("available_range", models.DateRange{Start: formatDate(first.Date), End: formatDate(last.Date)}).
			WithDetail("suggested_range", models.DateRange{Start: formatDate(clippedStart), End: formatDate(clippedEnd)})
	}

	return a.slice(s, Window{Start: start, End: end}), nil
}

// PercentChange computes the change between the observations at start and
// end. Both dates must exist in the series.
func (a *TrendAnalyzer) PercentChange(s models.HistoricalSeries, start, end time.Time) (Change, error) {
	from, err := a.At(s, start)
	if err != nil {
		return Change{}, err
	}
	to, err := a.At(s, end)
	if err != nil {
		return Change{}, err
	}
	pct, err := PercentChangeValues(from.Value, to.Value)
	if err != nil {
		return Change{}, err
	}
	return Change{Start: from, End: to, Percent: pct, Direction: a.Trend(pct)}, nil
}

// PercentChangeValues returns (end - start) / start * 100.
func PercentChangeValues(start, end float64) (float64, error) {
	if start == 0 {
		return 0, utils.NewDivisionUndefinedError("percentage change is undefined for a start value of zero")
	}
	return (end - start) / start * 100, nil
}

// Trend labels a percentage change.
func (a *TrendAnalyzer) Trend(pct float64) string {
	return directionOf(pct, a.thresholdPct)
}

// Peak returns the highest observation in w. The earliest wins a tie.
func (a *TrendAnalyzer) Peak(s models.HistoricalSeries, w Window) (models.Point, error) {
	return a.extreme(s, w, func(candidate, best float64) bool { return candidate > best })
}

// Valley returns the lowest observation in w. The earliest wins a tie.
func (a *TrendAnalyzer) Valley(s models.HistoricalSeries, w Window) (models.Point, error) {
	return a.extreme(s, w, func(candidate, best float64) bool { return candidate < best })
}

func (a *TrendAnalyzer) extreme(s models.HistoricalSeries, w Window, better func(candidate, best float64) bool) (models.Point, error) {
	points, err := a.nonEmpty(s, w)
	if err != nil {
		return models.Point{}, err
	}
	best := points[0]
	for _, p := range points[1:] {
		if better(p.Value, best.Value) {
			best = p
		}
	}
	return best, nil
}

// MovingAverage returns the simple moving average over w, one value per
// observation once a full window is available.
func (a *TrendAnalyzer) MovingAverage(s models.HistoricalSeries, window int, w Window) ([]models.Point, error) {
	if window < 1 {
		return nil, utils.NewValidationErrorf("window_size must be at least 1, got %d", window)
	}
	points, err := a.nonEmpty(s, w)
	if err != nil {
		return nil, err
	}
	if window > len(points) {
		return nil, utils.NewOutOfRangeError("window_size %d exceeds the %d observations available", window, len(points)).
			WithDetail("max_window_size", len(points))
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	sma := trend.NewSmaWithPeriod[float64](window)
	averages := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))

	// The indicator skips its idle period, so results align with the tail.
	offset := len(points) - len(averages)
	out := make([]models.Point, len(averages))
	for i, v := range averages {
		out[i] = models.Point{Date: points[offset+i].Date, Value: v}
	}
	return out, nil
}

// Line is a least-squares fit of value against the observation index.
type Line struct {
	Slope     float64
	Intercept float64
	Points    int
}

// TrendLine fits a straight line through the observations in w.
func (a *TrendAnalyzer) TrendLine(s models.HistoricalSeries, w Window) (Line, error) {
	points, err := a.nonEmpty(s, w)
	if err != nil {
		return Line{}, err
	}
	if len(points) < 2 {
		return Line{}, utils.NewInsufficientOverlapError("a trend line needs at least 2 observations, got %d", len(points))
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.Value
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return Line{Slope: slope, Intercept: intercept, Points: len(points)}, nil
}

func (a *TrendAnalyzer) nonEmpty(s models.HistoricalSeries, w Window) ([]models.Point, error) {
	points := a.slice(s, w)
	if len(points) == 0 {
		return nil, utils.NewNotFoundError("no observations between %s and %s", describeBound(w.Start, "start"), describeBound(w.End, "end"))
	}
	return points, nil
}

func (a *TrendAnalyzer) slice(s models.HistoricalSeries, w Window) []models.Point {
	out := make([]models.Point, 0, len(s.Points))
	for _, p := range s.Points {
		if !w.Start.IsZero() && p.Date.Before(w.Start) {
			continue
		}
		if !w.End.IsZero() && p.Date.After(w.End) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func describeBound(t time.Time, fallback string) string {
	if t.IsZero() {
		return fallback
	}
	return formatDate(t)
}
