package datasets

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/database"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

func ptr[T any](v T) *T { return &v }

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func newMockSource(t *testing.T) (*PostgresSource, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	source := NewPostgresSource(database.NewTracedDB(mock), map[string]string{"cotton_price": "cotton_price"})
	return source, mock
}

func expectHistory(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT period, value FROM historical_prices")).
		WithArgs("cotton_price").
		WillReturnRows(pgxmock.NewRows([]string{"period", "value"}).
			AddRow(month(2025, time.June), 174.0).
			AddRow(month(2025, time.July), 175.0).
			AddRow(month(2025, time.August), 171.0))
}

func TestPostgresSource_Load(t *testing.T) {
	source, mock := newMockSource(t)

	expectHistory(mock)
	mock.ExpectQuery(regexp.QuoteMeta("FROM forecast_runs")).
		WithArgs("cotton_price").
		WillReturnRows(pgxmock.NewRows([]string{"id", "forecast_start", "forecast_end", "forecast_horizon", "last_actual"}).
			AddRow(int64(7), month(2025, time.September), month(2025, time.October), 2, ptr(month(2025, time.August))))
	mock.ExpectQuery(regexp.QuoteMeta("FROM forecast_points")).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"period", "forecast", "q10", "q15", "q25", "q50", "q75", "q85", "q90"}).
			AddRow(month(2025, time.September), ptr(173.5), ptr(165.5), ptr(167.5), ptr(170.0), ptr(173.5), ptr(177.0), ptr(179.5), ptr(181.5)).
			AddRow(month(2025, time.October), nil, ptr(168.0), ptr(170.0), ptr(172.5), ptr(176.0), ptr(179.5), ptr(182.0), ptr(184.0)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM market_drivers")).
		WithArgs("cotton_price").
		WillReturnRows(pgxmock.NewRows([]string{"driver_id", "driver_name", "importance_max", "importance_min", "importance_mean", "direction", "overall_lag", "pearson_mean", "granger_mean"}).
			AddRow("1021", "Crude Oil Price", 0.45, 0.2, 0.32, ptr(0.7), ptr("6 to 12 month(s)"), ptr(0.65), ptr(0.4)).
			AddRow("1040", "US Dollar Index", 0.35, 0.1, 0.27, ptr(-0.3), nil, nil, nil).
			AddRow("1077", "Freight Index", 0.1, 0.01, 0.05, ptr(0.0), nil, nil, nil).
			AddRow("target_cotton_price", "Pima Cotton Price", 1.0, 1.0, 1.0, nil, nil, nil, nil))

	ds, err := source.Load(context.Background(), "cotton_price")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []float64{174.0, 175.0, 171.0}, ds.History.Values())
	assert.Equal(t, 2, ds.Forecast.Horizon)
	assert.Equal(t, month(2025, time.August), ds.Forecast.LastActual)
	require.Len(t, ds.Forecast.Points, 2)
	assert.Equal(t, 165.5, ds.Forecast.Points[0].Quantiles["0.1"])
	v, ok := ds.Forecast.Points[1].Value()
	require.True(t, ok)
	assert.Equal(t, 176.0, v)

	require.Len(t, ds.Drivers, 4)
	assert.Equal(t, "1021", ds.Drivers[0].ID)
	assert.Equal(t, 1, ds.Drivers[0].Direction)
	assert.Equal(t, 6, ds.Drivers[0].LagMonths)
	assert.Equal(t, 0.65, ds.Drivers[0].Pearson.Overall.Mean)
	assert.Equal(t, -1, ds.Drivers[1].Direction)
	assert.False(t, ds.Drivers[1].HasLag)
	assert.Equal(t, -1, ds.Drivers[2].Direction)
	require.NotNil(t, ds.Target)
	assert.Equal(t, "target_cotton_price", ds.Target.ID)
}

func TestPostgresSource_UnknownDataset(t *testing.T) {
	source, mock := newMockSource(t)

	_, err := source.Load(context.Background(), "copper")

	assert.True(t, errors.Is(err, utils.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_NoHistoryIsNotFound(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM historical_prices")).
		WithArgs("cotton_price").
		WillReturnRows(pgxmock.NewRows([]string{"period", "value"}))

	_, err := source.Load(context.Background(), "cotton_price")

	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestPostgresSource_NoForecastRunIsNotFound(t *testing.T) {
	source, mock := newMockSource(t)

	expectHistory(mock)
	mock.ExpectQuery(regexp.QuoteMeta("FROM forecast_runs")).
		WithArgs("cotton_price").
		WillReturnError(pgx.ErrNoRows)

	_, err := source.Load(context.Background(), "cotton_price")

	assert.True(t, errors.Is(err, utils.ErrNotFound))
	assert.Contains(t, err.Error(), "no forecast run")
}

func TestPostgresSource_QueryFailure(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM historical_prices")).
		WithArgs("cotton_price").
		WillReturnError(errors.New("connection refused"))

	_, err := source.Load(context.Background(), "cotton_price")

	require.Error(t, err)
	assert.Equal(t, utils.ErrorKind(""), utils.KindOf(err))
	assert.Contains(t, err.Error(), "failed to query historical prices")
}
