package models

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in source files and records.
const DateLayout = "2006-01-02"

// TargetPrefix marks the self-reference record in a drivers file.
const TargetPrefix = "target_"

// QuantileLevels are the probability levels every forecast band carries.
var QuantileLevels = []string{"0.1", "0.15", "0.25", "0.5", "0.75", "0.85", "0.9"}

// Point is one observation of a monthly series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// HistoricalSeries holds actual values in chronological order with unique dates.
type HistoricalSeries struct {
	Points []Point `json:"points"`
}

// Len returns the number of observations.
func (s HistoricalSeries) Len() int {
	return len(s.Points)
}

// First returns the earliest observation.
func (s HistoricalSeries) First() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[0], true
}

// Last returns the most recent observation.
func (s HistoricalSeries) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Index returns the position of date in the series.
func (s HistoricalSeries) Index(date time.Time) (int, bool) {
	i := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Date.Before(date)
	})
	if i < len(s.Points) && s.Points[i].Date.Equal(date) {
		return i, true
	}
	return i, false
}

// Values returns the raw values in order.
func (s HistoricalSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// QuantileBand maps a probability level ("0.1" ... "0.9") to a forecast value.
type QuantileBand map[string]float64

// Get returns the value at level.
func (b QuantileBand) Get(level string) (float64, bool) {
	v, ok := b[level]
	return v, ok
}

// Median returns the 0.5 quantile.
func (b QuantileBand) Median() (float64, bool) {
	return b.Get("0.5")
}

// Lower returns the lowest tail quantile available, preferring 0.1.
func (b QuantileBand) Lower() (float64, string, bool) {
	for _, level := range []string{"0.1", "0.05", "0.15"} {
		if v, ok := b[level]; ok {
			return v, level, true
		}
	}
	return 0, "", false
}

// Upper returns the highest tail quantile available, preferring 0.9.
func (b QuantileBand) Upper() (float64, string, bool) {
	for _, level := range []string{"0.9", "0.95", "0.85"} {
		if v, ok := b[level]; ok {
			return v, level, true
		}
	}
	return 0, "", false
}

// Monotonic reports whether values are non-decreasing in probability.
func (b QuantileBand) Monotonic() bool {
	levels := make([]float64, 0, len(b))
	byLevel := make(map[float64]float64, len(b))
	for k, v := range b {
		p, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return false
		}
		levels = append(levels, p)
		byLevel[p] = v
	}
	sort.Float64s(levels)
	for i := 1; i < len(levels); i++ {
		if byLevel[levels[i]] < byLevel[levels[i-1]] {
			return false
		}
	}
	return true
}

// ForecastPoint is the forecast for one future month.
type ForecastPoint struct {
	Date      time.Time    `json:"date"`
	Forecast  *float64     `json:"forecast,omitempty"`
	Quantiles QuantileBand `json:"quantiles"`
}

// Value returns the point estimate, falling back to the median.
func (p ForecastPoint) Value() (float64, bool) {
	if p.Forecast != nil {
		return *p.Forecast, true
	}
	return p.Quantiles.Median()
}

// ForecastSeries is a dataset's forecast with its scalar metadata.
type ForecastSeries struct {
	Start      time.Time       `json:"forecast_start"`
	End        time.Time       `json:"forecast_end"`
	Horizon    int             `json:"forecast_horizon"`
	LastActual time.Time       `json:"last_actual"`
	Points     []ForecastPoint `json:"points"`
}

// Future returns the points strictly after the last actual-data date.
func (f ForecastSeries) Future() []ForecastPoint {
	if f.LastActual.IsZero() {
		return f.Points
	}
	i := sort.Search(len(f.Points), func(i int) bool {
		return f.Points[i].Date.After(f.LastActual)
	})
	return f.Points[i:]
}

// MaxHorizon returns how many months ahead can be answered.
func (f ForecastSeries) MaxHorizon() int {
	n := len(f.Future())
	if f.Horizon > 0 && f.Horizon < n {
		return f.Horizon
	}
	return n
}

// Stats holds max/min/mean of a metric.
type Stats struct {
	Max  float64 `json:"max"`
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
}

// Metric is a driver metric summarised overall and per horizon or lag.
type Metric struct {
	Overall   Stats            `json:"overall"`
	Breakdown map[string]Stats `json:"breakdown,omitempty"`
}

// DriverRecord describes one external series hypothesised to move the target.
type DriverRecord struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Importance Metric  `json:"importance"`
	Direction  int     `json:"direction"`
	Lag        string  `json:"lag,omitempty"`
	LagMonths  int     `json:"lag_months"`
	HasLag     bool    `json:"has_lag"`
	Pearson    Metric  `json:"pearson"`
	Granger    Metric  `json:"granger"`
	Series     []Point `json:"series,omitempty"`
}

// IsTarget reports whether the record is the dataset's self-reference.
func (d DriverRecord) IsTarget() bool {
	return strings.HasPrefix(d.ID, TargetPrefix)
}

// Positive reports whether the driver pushes the target up.
func (d DriverRecord) Positive() bool {
	return d.Direction > 0
}

// DirectionLabel renders the sign convention.
func (d DriverRecord) DirectionLabel() string {
	if d.Positive() {
		return "positive"
	}
	return "negative"
}

// Dataset groups everything known about one commodity.
type Dataset struct {
	ID       string           `json:"id"`
	History  HistoricalSeries `json:"history"`
	Forecast ForecastSeries   `json:"forecast"`
	Drivers  []DriverRecord   `json:"drivers"`
	Target   *DriverRecord    `json:"target,omitempty"`
	LoadedAt time.Time        `json:"loaded_at"`
}
