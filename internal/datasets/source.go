// Package datasets loads commodity datasets from files or Postgres and keeps
// them for the lifetime of the process.
package datasets

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Source produces fully parsed datasets. Unknown identifiers and missing
// required inputs are reported as utils.ErrNotFound, malformed input as
// utils.ErrInvalidData.
type Source interface {
	Name() string
	IDs() []string
	Load(ctx context.Context, id string) (*models.Dataset, error)
}

var lagMonthsPattern = regexp.MustCompile(`\d+`)

// parseLagMonths extracts the first integer of a lag description such as
// "6 to 12 month(s)". Descriptions without a month unit have no lag.
func parseLagMonths(lag string) (int, bool) {
	if !strings.Contains(lag, "month") {
		return 0, false
	}
	match := lagMonthsPattern.FindString(lag)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseDate accepts YYYY-MM-DD with an optional time suffix.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	return time.Parse(models.DateLayout, s)
}

// directionSign maps a direction mean to the +1/-1 convention. Only a
// strictly positive mean is positive; zero and missing means are negative.
func directionSign(mean *float64) int {
	if mean != nil && *mean > 0 {
		return 1
	}
	return -1
}

func unknownDataset(id string, available []string) error {
	return utils.NewNotFoundError("dataset %q not found. Available datasets: %s", id, strings.Join(available, ", ")).
		WithDetail("available_datasets", available)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// finalize orders and validates a freshly parsed dataset.
func finalize(ds *models.Dataset) error {
	sort.Slice(ds.History.Points, func(i, j int) bool {
		return ds.History.Points[i].Date.Before(ds.History.Points[j].Date)
	})
	for i := 1; i < len(ds.History.Points); i++ {
		if ds.History.Points[i].Date.Equal(ds.History.Points[i-1].Date) {
			return utils.NewInvalidDataError("dataset %s: duplicate historical date %s",
				ds.ID, ds.History.Points[i].Date.Format(models.DateLayout))
		}
	}

	sort.Slice(ds.Forecast.Points, func(i, j int) bool {
		return ds.Forecast.Points[i].Date.Before(ds.Forecast.Points[j].Date)
	})
	for _, p := range ds.Forecast.Points {
		if _, ok := p.Quantiles.Median(); !ok && p.Forecast == nil {
			return utils.NewInvalidDataError("dataset %s: forecast %s has neither a point estimate nor a 0.5 quantile",
				ds.ID, p.Date.Format(models.DateLayout))
		}
		if !p.Quantiles.Monotonic() {
			return utils.NewInvalidDataError("dataset %s: quantiles at %s are not non-decreasing",
				ds.ID, p.Date.Format(models.DateLayout))
		}
	}

	if ds.Forecast.LastActual.IsZero() {
		if last, ok := ds.History.Last(); ok {
			ds.Forecast.LastActual = last.Date
		}
	}
	if len(ds.Forecast.Points) > 0 {
		if ds.Forecast.Start.IsZero() {
			ds.Forecast.Start = ds.Forecast.Points[0].Date
		}
		if ds.Forecast.End.IsZero() {
			ds.Forecast.End = ds.Forecast.Points[len(ds.Forecast.Points)-1].Date
		}
	}

	sort.SliceStable(ds.Drivers, func(i, j int) bool {
		return ds.Drivers[i].ID < ds.Drivers[j].ID
	})
	for i := range ds.Drivers {
		if ds.Drivers[i].IsTarget() {
			target := ds.Drivers[i]
			ds.Target = &target
			break
		}
	}
	return nil
}
