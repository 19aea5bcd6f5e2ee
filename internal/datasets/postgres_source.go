package datasets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/database"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

const (
	historyQuery = `SELECT period, value FROM historical_prices
WHERE dataset_id = $1 ORDER BY period`

	forecastRunQuery = `SELECT id, forecast_start, forecast_end, forecast_horizon, last_actual
FROM forecast_runs WHERE dataset_id = $1 ORDER BY created_at DESC LIMIT 1`

	forecastPointsQuery = `SELECT period, forecast, q10, q15, q25, q50, q75, q85, q90
FROM forecast_points WHERE run_id = $1 ORDER BY period`

	driversQuery = `SELECT driver_id, driver_name, importance_max, importance_min, importance_mean,
direction, overall_lag, pearson_mean, granger_mean
FROM market_drivers WHERE dataset_id = $1`
)

// PostgresSource reads datasets from the analytics schema. Only identifiers
// present in the configured mapping are served.
type PostgresSource struct {
	db  database.Querier
	ids map[string]string
}

// NewPostgresSource creates a source over db.
func NewPostgresSource(db database.Querier, ids map[string]string) *PostgresSource {
	return &PostgresSource{db: db, ids: ids}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) IDs() []string { return sortedKeys(s.ids) }

// Load reads one dataset. A dataset without history rows or without a
// forecast run is treated as not found.
func (s *PostgresSource) Load(ctx context.Context, id string) (*models.Dataset, error) {
	if _, ok := s.ids[id]; !ok {
		return nil, unknownDataset(id, s.IDs())
	}

	ds := &models.Dataset{ID: id}

	history, err := s.loadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if history.Len() == 0 {
		return nil, utils.NewNotFoundError("dataset %q has no historical prices", id)
	}
	ds.History = history

	forecast, err := s.loadForecast(ctx, id)
	if err != nil {
		return nil, err
	}
	ds.Forecast = forecast

	drivers, err := s.loadDrivers(ctx, id)
	if err != nil {
		return nil, err
	}
	ds.Drivers = drivers

	if err := finalize(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *PostgresSource) loadHistory(ctx context.Context, id string) (models.HistoricalSeries, error) {
	rows, err := s.db.Query(ctx, historyQuery, id)
	if err != nil {
		return models.HistoricalSeries{}, fmt.Errorf("failed to query historical prices: %w", err)
	}
	defer rows.Close()

	var series models.HistoricalSeries
	for rows.Next() {
		var p models.Point
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return models.HistoricalSeries{}, fmt.Errorf("failed to scan historical price: %w", err)
		}
		p.Date = p.Date.UTC()
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return models.HistoricalSeries{}, fmt.Errorf("failed to read historical prices: %w", err)
	}
	return series, nil
}

func (s *PostgresSource) loadForecast(ctx context.Context, id string) (models.ForecastSeries, error) {
	var (
		runID      int64
		start, end time.Time
		horizon    int
		lastActual *time.Time
	)
	err := s.db.QueryRow(ctx, forecastRunQuery, id).Scan(&runID, &start, &end, &horizon, &lastActual)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ForecastSeries{}, utils.NewNotFoundError("dataset %q has no forecast run", id)
	}
	if err != nil {
		return models.ForecastSeries{}, fmt.Errorf("failed to query forecast run: %w", err)
	}

	series := models.ForecastSeries{Start: start.UTC(), End: end.UTC(), Horizon: horizon}
	if lastActual != nil {
		series.LastActual = lastActual.UTC()
	}

	rows, err := s.db.Query(ctx, forecastPointsQuery, runID)
	if err != nil {
		return models.ForecastSeries{}, fmt.Errorf("failed to query forecast points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			date     time.Time
			forecast *float64
			q        [7]*float64
		)
		if err := rows.Scan(&date, &forecast, &q[0], &q[1], &q[2], &q[3], &q[4], &q[5], &q[6]); err != nil {
			return models.ForecastSeries{}, fmt.Errorf("failed to scan forecast point: %w", err)
		}
		band := models.QuantileBand{}
		for i, level := range models.QuantileLevels {
			if q[i] != nil {
				band[level] = *q[i]
			}
		}
		series.Points = append(series.Points, models.ForecastPoint{
			Date:      date.UTC(),
			Forecast:  forecast,
			Quantiles: band,
		})
	}
	if err := rows.Err(); err != nil {
		return models.ForecastSeries{}, fmt.Errorf("failed to read forecast points: %w", err)
	}
	return series, nil
}

func (s *PostgresSource) loadDrivers(ctx context.Context, id string) ([]models.DriverRecord, error) {
	rows, err := s.db.Query(ctx, driversQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query market drivers: %w", err)
	}
	defer rows.Close()

	var drivers []models.DriverRecord
	for rows.Next() {
		var (
			d         models.DriverRecord
			direction *float64
			lag       *string
			pearson   *float64
			granger   *float64
		)
		if err := rows.Scan(&d.ID, &d.Name,
			&d.Importance.Overall.Max, &d.Importance.Overall.Min, &d.Importance.Overall.Mean,
			&direction, &lag, &pearson, &granger); err != nil {
			return nil, fmt.Errorf("failed to scan market driver: %w", err)
		}
		d.Direction = directionSign(direction)
		if lag != nil {
			d.Lag = *lag
			d.LagMonths, d.HasLag = parseLagMonths(d.Lag)
		}
		if pearson != nil {
			d.Pearson.Overall.Mean = *pearson
		}
		if granger != nil {
			d.Granger.Overall.Mean = *granger
		}
		drivers = append(drivers, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read market drivers: %w", err)
	}
	return drivers, nil
}
