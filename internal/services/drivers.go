package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Net effects of a combined driver analysis.
const (
	NetIncrease = "increase"
	NetDecrease = "decrease"
	NetMixed    = "mixed"
)

// dominanceFactor is how much one side's importance must exceed the other's
// for the combined effect to be called.
const dominanceFactor = 1.2

// DriverFilter narrows a ranking. A zero Direction matches both signs and a
// nil MinImportance matches everything.
type DriverFilter struct {
	Direction     int
	MinImportance *float64
}

// DriverRanker orders a dataset's drivers by mean overall importance.
type DriverRanker struct{}

// Rank returns every driver except the target, most important first.
// Equal importance is ordered by identifier.
func (DriverRanker) Rank(ds *models.Dataset) []models.DriverRecord {
	out := make([]models.DriverRecord, 0, len(ds.Drivers))
	for _, d := range ds.Drivers {
		if d.IsTarget() {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Importance.Overall.Mean, out[j].Importance.Overall.Mean
		if a != b {
			return a > b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Top returns at most n ranked drivers.
func (r DriverRanker) Top(ds *models.Dataset, n int) ([]models.DriverRecord, error) {
	if n < 1 {
		return nil, utils.NewValidationErrorf("top_n must be at least 1, got %d", n)
	}
	ranked := r.Rank(ds)
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// Filter returns ranked drivers matching f.
func (r DriverRanker) Filter(ds *models.Dataset, f DriverFilter) ([]models.DriverRecord, error) {
	if f.Direction != 0 && f.Direction != 1 && f.Direction != -1 {
		return nil, utils.NewValidationErrorf("direction must be 1 or -1, got %d", f.Direction)
	}
	var out []models.DriverRecord
	for _, d := range r.Rank(ds) {
		if f.Direction != 0 && d.Direction != f.Direction {
			continue
		}
		if f.MinImportance != nil && d.Importance.Overall.Mean < *f.MinImportance {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Find looks a driver up by identifier or, case-insensitively, by name.
func (r DriverRanker) Find(ds *models.Dataset, nameOrID string) (models.DriverRecord, error) {
	key := strings.TrimSpace(nameOrID)
	ranked := r.Rank(ds)
	for _, d := range ranked {
		if d.ID == key || strings.EqualFold(d.Name, key) {
			return d, nil
		}
	}
	names := make([]string, len(ranked))
	for i, d := range ranked {
		names[i] = d.Name
	}
	return models.DriverRecord{}, utils.NewNotFoundError("driver %q not found in %s", key, ds.ID).
		WithDetail("available_drivers", names)
}

// Combined splits the top n drivers by direction and nets their importance.
func (r DriverRanker) Combined(ds *models.Dataset, n int) (models.CombinedDriversRecord, error) {
	top, err := r.Top(ds, n)
	if err != nil {
		return models.CombinedDriversRecord{}, err
	}

	rec := models.CombinedDriversRecord{
		Dataset:                   ds.ID,
		DriversSupportingIncrease: []models.DriverSummary{},
		DriversSupportingDecrease: []models.DriverSummary{},
		TotalDriversAnalyzed:      len(top),
	}
	var up, down float64
	for _, d := range top {
		if d.Positive() {
			rec.DriversSupportingIncrease = append(rec.DriversSupportingIncrease, Summarize(d))
			up += d.Importance.Overall.Mean
		} else {
			rec.DriversSupportingDecrease = append(rec.DriversSupportingDecrease, Summarize(d))
			down += d.Importance.Overall.Mean
		}
	}
	rec.TotalImportanceIncrease = round(up, 2)
	rec.TotalImportanceDecrease = round(down, 2)

	switch {
	case up > down*dominanceFactor:
		rec.NetEffect = NetIncrease
		rec.NetExplanation = "Drivers strongly support price increases"
	case down > up*dominanceFactor:
		rec.NetEffect = NetDecrease
		rec.NetExplanation = "Drivers strongly support price decreases"
	default:
		rec.NetEffect = NetMixed
		rec.NetExplanation = "Drivers show mixed signals with no clear direction"
	}
	return rec, nil
}

// Summarize renders a driver for rankings.
func Summarize(d models.DriverRecord) models.DriverSummary {
	return models.DriverSummary{
		ID:             d.ID,
		Name:           d.Name,
		ImportanceMean: d.Importance.Overall.Mean,
		ImportanceMax:  d.Importance.Overall.Max,
		ImportanceMin:  d.Importance.Overall.Min,
		Direction:      d.DirectionLabel(),
	}
}

// Describe renders the detail view of a driver.
func Describe(dataset string, d models.DriverRecord) models.DriverDetailRecord {
	rec := models.DriverDetailRecord{
		Dataset:            dataset,
		ID:                 d.ID,
		Name:               d.Name,
		Direction:          d.DirectionLabel(),
		PearsonCorrelation: d.Pearson.Overall,
		GrangerCausality:   d.Granger.Overall,
		Lag:                d.Lag,
	}
	if d.Positive() {
		rec.DirectionExplanation = "When this driver increases, prices tend to increase"
	} else {
		rec.DirectionExplanation = "When this driver increases, prices tend to decrease"
	}
	if d.Lag != "" {
		rec.LagExplanation = fmt.Sprintf("Impact occurs %s after driver changes", d.Lag)
	} else {
		rec.LagExplanation = "Lag information not available"
	}
	return rec
}
