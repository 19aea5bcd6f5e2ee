// Package testutil provides fixture datasets and helpers shared by tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Month returns the first day of the given month in UTC.
func Month(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// Date parses a YYYY-MM-DD string and panics on failure.
func Date(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Series builds a monthly series starting at start.
func Series(start time.Time, values ...float64) models.HistoricalSeries {
	points := make([]models.Point, len(values))
	for i, v := range values {
		points[i] = models.Point{Date: start.AddDate(0, i, 0), Value: v}
	}
	return models.HistoricalSeries{Points: points}
}

// Band returns a monotonic seven-level band centred on median.
func Band(median float64) models.QuantileBand {
	return models.QuantileBand{
		"0.1":  median - 8,
		"0.15": median - 6,
		"0.25": median - 3.5,
		"0.5":  median,
		"0.75": median + 3.5,
		"0.85": median + 6,
		"0.9":  median + 8,
	}
}

// Forecast builds a forecast whose first future month follows lastActual.
func Forecast(lastActual time.Time, medians ...float64) models.ForecastSeries {
	points := make([]models.ForecastPoint, len(medians))
	for i, m := range medians {
		v := m
		points[i] = models.ForecastPoint{
			Date:      lastActual.AddDate(0, i+1, 0),
			Forecast:  &v,
			Quantiles: Band(m),
		}
	}
	return models.ForecastSeries{
		Start:      points[0].Date,
		End:        points[len(points)-1].Date,
		Horizon:    len(points),
		LastActual: lastActual,
		Points:     points,
	}
}

// Driver builds a driver record.
func Driver(id, name string, importance float64, direction int, lag string, lagMonths int) models.DriverRecord {
	return models.DriverRecord{
		ID:   id,
		Name: name,
		Importance: models.Metric{Overall: models.Stats{
			Max:  importance * 1.4,
			Min:  importance * 0.6,
			Mean: importance,
		}},
		Direction: direction,
		Lag:       lag,
		LagMonths: lagMonths,
		HasLag:    lag != "",
		Pearson:   models.Metric{Overall: models.Stats{Max: 0.8, Min: 0.2, Mean: 0.5 * float64(direction)}},
		Granger:   models.Metric{Overall: models.Stats{Max: 0.6, Min: 0.1, Mean: 0.35}},
	}
}

// CottonPrice is a rising market. The latest actual is 171.00 on
// 2025-08-01 and the 3-month forecast is 178.72 with band 170.50..187.20.
func CottonPrice() *models.Dataset {
	history := Series(Month(2024, time.September),
		160.00, 162.50, 158.00, 165.00, 168.00, 166.00,
		170.00, 172.00, 169.00, 174.00, 175.00, 171.00)

	forecast := Forecast(Month(2025, time.August),
		173.50, 176.00, 178.72, 180.10, 181.00, 182.40,
		183.00, 184.20, 185.00, 185.50, 186.10, 187.00)
	forecast.Points[2].Quantiles = models.QuantileBand{
		"0.1":  170.50,
		"0.15": 172.10,
		"0.25": 175.30,
		"0.5":  178.72,
		"0.75": 182.40,
		"0.85": 185.00,
		"0.9":  187.20,
	}

	// An in-sample fitted point precedes the first future month.
	inSample := 171.40
	forecast.Points = append([]models.ForecastPoint{{
		Date:      Month(2025, time.August),
		Forecast:  &inSample,
		Quantiles: Band(171.40),
	}}, forecast.Points...)
	forecast.Start = Month(2025, time.August)

	target := Driver("target_cotton_price", "Pima Cotton Price", 1.0, 1, "", 0)
	return &models.Dataset{
		ID:       "cotton_price",
		History:  history,
		Forecast: forecast,
		Drivers: []models.DriverRecord{
			Driver("1021", "Crude Oil Price", 0.32, 1, "6 to 12 month(s)", 6),
			Driver("1040", "US Dollar Index", 0.27, -1, "3 month(s)", 3),
			Driver("1103", "China Textile Imports", 0.21, 1, "2 month(s)", 2),
			Driver("1102", "Polyester Staple Fiber", 0.21, 1, "1 to 3 month(s)", 1),
			Driver("1250", "Texas Rainfall", 0.12, -1, "", 0),
			Driver("1377", "Freight Index", 0.08, 1, "12 month(s)", 12),
			target,
		},
		Target: &target,
	}
}

// EnergyFutures is a falling market overlapping CottonPrice from
// 2024-09 onwards.
func EnergyFutures() *models.Dataset {
	history := Series(Month(2024, time.June),
		80.00, 82.00, 81.00,
		85.00, 86.00, 84.00, 88.00, 90.00, 89.00,
		92.00, 94.00, 93.00, 96.00, 97.00, 95.00)

	forecast := Forecast(Month(2025, time.August),
		94.00, 92.50, 90.00, 89.00, 88.50, 88.00)

	target := Driver("target_energy_futures", "Germany Energy Futures", 1.0, 1, "", 0)
	return &models.Dataset{
		ID:       "energy_futures",
		History:  history,
		Forecast: forecast,
		Drivers: []models.DriverRecord{
			Driver("2001", "Crude Oil Price", 0.41, 1, "3 month(s)", 3),
			Driver("2002", "Natural Gas TTF", 0.38, 1, "1 month(s)", 1),
			Driver("2003", "US Dollar Index", 0.15, -1, "2 month(s)", 2),
			Driver("2004", "EU Carbon Allowance", 0.10, -1, "6 month(s)", 6),
			target,
		},
		Target: &target,
	}
}

// CottonExport is a flat market suited to hedge and monitor outcomes.
func CottonExport() *models.Dataset {
	history := Series(Month(2025, time.March),
		500.00, 510.00, 505.00, 498.00, 502.00, 500.00)

	forecast := Forecast(Month(2025, time.August),
		501.00, 505.00, 509.00, 511.00)

	return &models.Dataset{
		ID:       "cotton_export",
		History:  history,
		Forecast: forecast,
		Drivers: []models.DriverRecord{
			Driver("3001", "Pima Cotton Price", 0.30, -1, "1 month(s)", 1),
			Driver("3002", "Freight Index", 0.30, 1, "2 month(s)", 2),
		},
	}
}

// Datasets returns all fixture datasets keyed by identifier.
func Datasets() map[string]*models.Dataset {
	out := map[string]*models.Dataset{}
	for _, ds := range []*models.Dataset{CottonPrice(), EnergyFutures(), CottonExport()} {
		out[ds.ID] = ds
	}
	return out
}

// StaticSource serves fixed datasets and counts loads per identifier.
type StaticSource struct {
	mu       sync.Mutex
	datasets map[string]*models.Dataset
	calls    map[string]int
}

// NewStaticSource creates a source over datasets.
func NewStaticSource(datasets map[string]*models.Dataset) *StaticSource {
	return &StaticSource{datasets: datasets, calls: map[string]int{}}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) IDs() []string {
	ids := make([]string, 0, len(s.datasets))
	for id := range s.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *StaticSource) Load(_ context.Context, id string) (*models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++
	ds, ok := s.datasets[id]
	if !ok {
		return nil, utils.NewNotFoundError("dataset %q not found", id).WithDetail("available_datasets", s.IDs())
	}
	return ds, nil
}

// Calls returns how often id was loaded.
func (s *StaticSource) Calls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}
