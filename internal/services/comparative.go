package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Correlation strengths and directions.
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
	StrengthWeak     = "weak"

	DirectionPositive = "positive"
	DirectionNegative = "negative"
	DirectionNone     = "none"
)

// Lead-lag classifications.
const (
	LeadSimilar = "similar"

	PredictiveHigh     = "high"
	PredictiveModerate = "moderate"
	PredictiveLow      = "low"
)

// minOverlap is the fewest common dates a correlation is computed from.
const minOverlap = 2

var titleCaser = cases.Title(language.English)

// Aligned holds the values of several series at their common dates.
type Aligned struct {
	Dates  []time.Time
	Values [][]float64 // Values[i] is the i-th series, indexed like Dates
}

// ComparativeAnalyzer aligns series by date and correlates them.
type ComparativeAnalyzer struct{}

// Align inner-joins series on date.
func (ComparativeAnalyzer) Align(series ...models.HistoricalSeries) Aligned {
	if len(series) == 0 {
		return Aligned{}
	}

	counts := make(map[time.Time]int)
	for _, s := range series {
		for _, p := range s.Points {
			counts[p.Date]++
		}
	}
	var dates []time.Time
	for d, c := range counts {
		if c == len(series) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	values := make([][]float64, len(series))
	for i, s := range series {
		byDate := make(map[time.Time]float64, len(s.Points))
		for _, p := range s.Points {
			byDate[p.Date] = p.Value
		}
		values[i] = make([]float64, len(dates))
		for j, d := range dates {
			values[i][j] = byDate[d]
		}
	}
	return Aligned{Dates: dates, Values: values}
}

// Correlate returns the Pearson coefficient of a and b over their common
// dates and the number of dates used. The result is symmetric in its
// arguments and lies in [-1, 1]; a constant series correlates at 0.
func (c ComparativeAnalyzer) Correlate(a, b models.HistoricalSeries) (float64, int, error) {
	aligned := c.Align(a, b)
	n := len(aligned.Dates)
	if n < minOverlap {
		return 0, n, utils.NewInsufficientOverlapError(
			"correlation needs at least %d common dates, found %d", minOverlap, n).
			WithDetail("common_dates", n)
	}

	r := stat.Correlation(aligned.Values[0], aligned.Values[1], nil)
	if math.IsNaN(r) {
		return 0, n, nil
	}
	return math.Max(-1, math.Min(1, r)), n, nil
}

// ClassifyCorrelation classifies a coefficient into a direction and a strength.
func ClassifyCorrelation(r float64) (direction, strength string) {
	switch {
	case r > 0.1:
		direction = DirectionPositive
	case r < -0.1:
		direction = DirectionNegative
	default:
		direction = DirectionNone
	}

	abs := math.Abs(r)
	switch {
	case abs >= 0.7:
		strength = StrengthStrong
	case abs >= 0.3:
		strength = StrengthModerate
	default:
		strength = StrengthWeak
	}
	return direction, strength
}

// Interpret renders a coefficient as a sentence about two datasets.
func Interpret(r float64, name1, name2 string) string {
	direction, strength := ClassifyCorrelation(r)
	switch direction {
	case DirectionPositive:
		return fmt.Sprintf("%s positive correlation - when %s rises, %s tends to rise", titleCaser.String(strength), name1, name2)
	case DirectionNegative:
		return fmt.Sprintf("%s negative correlation - when %s rises, %s tends to fall", titleCaser.String(strength), name1, name2)
	default:
		return fmt.Sprintf("No meaningful correlation - %s and %s move independently", name1, name2)
	}
}

// Timing compares how quickly two datasets react to the drivers they share.
// Drivers are matched by name, case-insensitively.
func (ComparativeAnalyzer) Timing(ds1, ds2 *models.Dataset) models.TimingRecord {
	byName := make(map[string]models.DriverRecord)
	for _, d := range ds2.Drivers {
		if !d.IsTarget() {
			byName[strings.ToLower(d.Name)] = d
		}
	}

	rec := models.TimingRecord{
		Dataset1:       ds1.ID,
		Dataset2:       ds2.ID,
		CommonDrivers:  []string{},
		TimingInsights: []models.TimingInsight{},
	}

	var sumDiff, sumLag1, sumLag2 float64
	for _, d1 := range ds1.Drivers {
		if d1.IsTarget() {
			continue
		}
		d2, ok := byName[strings.ToLower(d1.Name)]
		if !ok {
			continue
		}
		lag1, lag2 := d1.LagMonths, d2.LagMonths

		var text string
		switch {
		case lag1 < lag2:
			text = fmt.Sprintf("%s responds after %d months, %s follows after %d months", ds1.ID, lag1, ds2.ID, lag2)
		case lag2 < lag1:
			text = fmt.Sprintf("%s responds after %d months, %s follows after %d months", ds2.ID, lag2, ds1.ID, lag1)
		default:
			text = fmt.Sprintf("Both respond after %d months to %s", lag1, d1.Name)
		}

		rec.CommonDrivers = append(rec.CommonDrivers, d1.Name)
		rec.TimingInsights = append(rec.TimingInsights, models.TimingInsight{
			Driver:         d1.Name,
			Dataset1Lag:    lag1,
			Dataset2Lag:    lag2,
			Interpretation: text,
		})
		sumDiff += math.Abs(float64(lag1 - lag2))
		sumLag1 += float64(lag1)
		sumLag2 += float64(lag2)
	}

	sort.Strings(rec.CommonDrivers)
	sort.SliceStable(rec.TimingInsights, func(i, j int) bool {
		return rec.TimingInsights[i].Driver < rec.TimingInsights[j].Driver
	})

	rec.LeadCommodity = LeadSimilar
	rec.PredictiveValue = PredictiveLow
	n := float64(len(rec.CommonDrivers))
	if n == 0 {
		return rec
	}

	avgDiff := sumDiff / n
	avg1, avg2 := sumLag1/n, sumLag2/n
	switch {
	case avg1 < avg2-0.5:
		rec.LeadCommodity = ds1.ID
	case avg2 < avg1-0.5:
		rec.LeadCommodity = ds2.ID
	}
	switch {
	case avgDiff >= 3:
		rec.PredictiveValue = PredictiveHigh
	case avgDiff >= 1:
		rec.PredictiveValue = PredictiveModerate
	}
	rec.AverageLagMonths = round(avgDiff, 1)
	return rec
}
