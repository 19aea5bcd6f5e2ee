package datasets

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// File names inside a dataset folder.
const (
	HistoricalFile = "historical_data.csv"
	ForecastFile   = "forecast.json"
	DriversFile    = "drivers.json"
)

// FileSource reads datasets from <root>/<folder>/ where folder is resolved
// from the identifier mapping.
type FileSource struct {
	root    string
	folders map[string]string
}

// NewFileSource creates a source rooted at root.
func NewFileSource(root string, folders map[string]string) *FileSource {
	copied := make(map[string]string, len(folders))
	for id, folder := range folders {
		copied[id] = folder
	}
	return &FileSource{root: root, folders: copied}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) IDs() []string { return sortedKeys(s.folders) }

// Load parses the three files of a dataset.
func (s *FileSource) Load(_ context.Context, id string) (*models.Dataset, error) {
	folder, ok := s.folders[id]
	if !ok {
		return nil, unknownDataset(id, s.IDs())
	}
	dir := filepath.Join(s.root, folder)

	ds := &models.Dataset{ID: id}

	if err := s.readFile(dir, HistoricalFile, func(r io.Reader) error {
		history, err := ParseHistorical(r)
		ds.History = history
		return err
	}); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}

	if err := s.readFile(dir, ForecastFile, func(r io.Reader) error {
		forecast, lastIndex, err := ParseForecast(r)
		if err != nil {
			return err
		}
		ds.Forecast = forecast
		if lastIndex != nil && *lastIndex >= 0 && *lastIndex < ds.History.Len() {
			ds.Forecast.LastActual = ds.History.Points[*lastIndex].Date
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}

	if err := s.readFile(dir, DriversFile, func(r io.Reader) error {
		drivers, err := ParseDrivers(r)
		ds.Drivers = drivers
		return err
	}); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}

	if err := finalize(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *FileSource) readFile(dir, name string, parse func(io.Reader) error) error {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return utils.NewNotFoundError("required file %s not found", path)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := parse(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ParseHistorical reads a CSV with Period and Value columns.
func ParseHistorical(r io.Reader) (models.HistoricalSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return models.HistoricalSeries{}, utils.NewInvalidDataError("failed to read CSV header: %v", err)
	}

	periodCol, valueCol := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")) {
		case "Period":
			periodCol = i
		case "Value":
			valueCol = i
		}
	}
	if periodCol < 0 || valueCol < 0 {
		return models.HistoricalSeries{}, utils.NewInvalidDataError("CSV missing required columns Period and Value")
	}

	var series models.HistoricalSeries
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.HistoricalSeries{}, utils.NewInvalidDataError("line %d: %v", line, err)
		}
		date, err := parseDate(record[periodCol])
		if err != nil {
			return models.HistoricalSeries{}, utils.NewInvalidDataError("line %d: invalid Period %q", line, record[periodCol])
		}
		raw := strings.TrimSpace(record[valueCol])
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return models.HistoricalSeries{}, utils.NewInvalidDataError("line %d: invalid Value %q", line, raw)
		}
		series.Points = append(series.Points, models.Point{Date: date, Value: value})
	}
	return series, nil
}

type forecastFile struct {
	ForecastStart      string                   `json:"forecast_start"`
	ForecastEnd        string                   `json:"forecast_end"`
	ForecastHorizon    *float64                 `json:"forecast_horizon"`
	LastValidDataIndex json.RawMessage          `json:"last_valid_data_index"`
	ForecastSeries     map[string]forecastEntry `json:"forecast_series"`
}

type forecastEntry struct {
	Forecast         *float64            `json:"forecast"`
	QuantileForecast map[string]*float64 `json:"quantile_forecast"`
}

// ParseForecast decodes forecast.json. When last_valid_data_index is an
// integer it is returned for resolution against the historical series; a
// date string is applied directly.
func ParseForecast(r io.Reader) (models.ForecastSeries, *int, error) {
	var file forecastFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return models.ForecastSeries{}, nil, utils.NewInvalidDataError("failed to parse JSON: %v", err)
	}
	if file.ForecastSeries == nil {
		return models.ForecastSeries{}, nil, utils.NewInvalidDataError("missing required field forecast_series")
	}

	var series models.ForecastSeries
	for key, entry := range file.ForecastSeries {
		date, err := parseDate(key)
		if err != nil {
			return models.ForecastSeries{}, nil, utils.NewInvalidDataError("invalid forecast date %q", key)
		}
		band := make(models.QuantileBand, len(entry.QuantileForecast))
		for level, value := range entry.QuantileForecast {
			if value != nil {
				band[level] = *value
			}
		}
		series.Points = append(series.Points, models.ForecastPoint{
			Date:      date,
			Forecast:  entry.Forecast,
			Quantiles: band,
		})
	}

	if file.ForecastStart != "" {
		if t, err := parseDate(file.ForecastStart); err == nil {
			series.Start = t
		}
	}
	if file.ForecastEnd != "" {
		if t, err := parseDate(file.ForecastEnd); err == nil {
			series.End = t
		}
	}
	if file.ForecastHorizon != nil {
		series.Horizon = int(*file.ForecastHorizon)
	}

	var lastIndex *int
	if len(file.LastValidDataIndex) > 0 && string(file.LastValidDataIndex) != "null" {
		var asString string
		var asNumber float64
		switch {
		case json.Unmarshal(file.LastValidDataIndex, &asString) == nil:
			if t, err := parseDate(asString); err == nil {
				series.LastActual = t
			}
		case json.Unmarshal(file.LastValidDataIndex, &asNumber) == nil:
			n := int(asNumber)
			lastIndex = &n
		}
	}

	return series, lastIndex, nil
}

type rawStats struct {
	Max  *float64 `json:"max"`
	Min  *float64 `json:"min"`
	Mean *float64 `json:"mean"`
}

func (r rawStats) stats() models.Stats {
	var s models.Stats
	if r.Max != nil {
		s.Max = *r.Max
	}
	if r.Min != nil {
		s.Min = *r.Min
	}
	if r.Mean != nil {
		s.Mean = *r.Mean
	}
	return s
}

type rawDriver struct {
	DriverName       string                     `json:"driver_name"`
	Importance       map[string]json.RawMessage `json:"importance"`
	Direction        map[string]json.RawMessage `json:"direction"`
	OverallLag       *string                    `json:"overall_lag"`
	Pearson          map[string]json.RawMessage `json:"pearson_correlation"`
	Granger          map[string]json.RawMessage `json:"granger_correlation"`
	NormalizedSeries map[string]*float64        `json:"normalized_series"`
}

func decodeMetric(raw map[string]json.RawMessage) models.Metric {
	var metric models.Metric
	for key, msg := range raw {
		var rs rawStats
		if err := json.Unmarshal(msg, &rs); err != nil {
			continue
		}
		if key == "overall" {
			metric.Overall = rs.stats()
			continue
		}
		if metric.Breakdown == nil {
			metric.Breakdown = map[string]models.Stats{}
		}
		metric.Breakdown[key] = rs.stats()
	}
	return metric
}

// ParseDrivers decodes drivers.json. Optional fields may be absent or null.
func ParseDrivers(r io.Reader) ([]models.DriverRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, utils.NewInvalidDataError("failed to parse JSON: %v", err)
	}

	drivers := make([]models.DriverRecord, 0, len(raw))
	for id, msg := range raw {
		var rd rawDriver
		if err := json.Unmarshal(msg, &rd); err != nil {
			return nil, utils.NewInvalidDataError("driver %s: %v", id, err)
		}

		record := models.DriverRecord{
			ID:         id,
			Name:       rd.DriverName,
			Importance: decodeMetric(rd.Importance),
			Direction:  -1,
			Pearson:    decodeMetric(rd.Pearson),
			Granger:    decodeMetric(rd.Granger),
		}
		if record.Name == "" {
			record.Name = "Unknown"
		}

		if overall, ok := rd.Direction["overall"]; ok {
			var rs rawStats
			if err := json.Unmarshal(overall, &rs); err == nil {
				record.Direction = directionSign(rs.Mean)
			}
		}

		if rd.OverallLag != nil {
			record.Lag = *rd.OverallLag
			record.LagMonths, record.HasLag = parseLagMonths(record.Lag)
		}

		for key, value := range rd.NormalizedSeries {
			if value == nil {
				continue
			}
			date, err := parseDate(key)
			if err != nil {
				return nil, utils.NewInvalidDataError("driver %s: invalid series date %q", id, key)
			}
			record.Series = append(record.Series, models.Point{Date: date, Value: *value})
		}
		sortPoints(record.Series)

		drivers = append(drivers, record)
	}
	return drivers, nil
}

func sortPoints(points []models.Point) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}
