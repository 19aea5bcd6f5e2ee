package services

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/config"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/logging"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// DatasetLoader is the part of the dataset store the advisor needs.
type DatasetLoader interface {
	Load(ctx context.Context, id string) (*models.Dataset, error)
	IDs() []string
}

// Advisor answers tool questions by dataset name. Every method either
// returns a record or a typed error from utils.
type Advisor struct {
	store       DatasetLoader
	trend       *TrendAnalyzer
	forecast    ForecastAccessor
	drivers     DriverRanker
	comparative ComparativeAnalyzer
	decision    *DecisionEngine
	negotiation *NegotiationAdvisor
	logger      *logrus.Entry
}

// AdvisorOption configures an Advisor.
type AdvisorOption func(*Advisor)

// WithAdvisorLogger sets the logger.
func WithAdvisorLogger(logger *logging.StandardLogger) AdvisorOption {
	return func(a *Advisor) { a.logger = logger.WithComponent("advisor") }
}

// NewAdvisor creates an advisor over store applying policy.
func NewAdvisor(store DatasetLoader, policy config.PolicyConfig, opts ...AdvisorOption) *Advisor {
	a := &Advisor{
		store:       store,
		trend:       NewTrendAnalyzer(policy.TrendThresholdPct),
		decision:    NewDecisionEngine(policy),
		negotiation: NewNegotiationAdvisor(policy),
		logger:      logging.NewStandardLoggerWithOutput("info", "production", os.Stderr).WithComponent("advisor"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Advisor) load(ctx context.Context, id string) (*models.Dataset, error) {
	if id == "" {
		return nil, utils.NewValidationError("dataset_name is required")
	}
	return a.store.Load(ctx, id)
}

// Datasets describes every configured dataset. A dataset that fails to load
// is listed with its error rather than failing the listing.
func (a *Advisor) Datasets(ctx context.Context) []models.DatasetInfo {
	ids := a.store.IDs()
	out := make([]models.DatasetInfo, 0, len(ids))
	for _, id := range ids {
		info := models.DatasetInfo{ID: id}
		ds, err := a.store.Load(ctx, id)
		if err != nil {
			info.Error = err.Error()
			out = append(out, info)
			continue
		}
		info.Observations = ds.History.Len()
		info.Drivers = len(DriverRanker{}.Rank(ds))
		if first, ok := ds.History.First(); ok {
			last, _ := ds.History.Last()
			info.HistoryRange = &models.DateRange{Start: formatDate(first.Date), End: formatDate(last.Date)}
		}
		if future := ds.Forecast.Future(); len(future) > 0 {
			info.ForecastRange = &models.DateRange{
				Start: formatDate(future[0].Date),
				End:   formatDate(future[len(future)-1].Date),
			}
		}
		out = append(out, info)
	}
	return out
}

// QueryHistorical answers a latest, single-date or range lookup. A range
// needs both bounds; "latest", "current" and "now" mean the latest value.
func (a *Advisor) QueryHistorical(ctx context.Context, dataset, date, start, end string) (*models.HistoricalQueryRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}

	if start != "" && end != "" {
		from, err := ParseDate("start_date", start)
		if err != nil {
			return nil, err
		}
		to, err := ParseDate("end_date", end)
		if err != nil {
			return nil, err
		}
		points, err := a.trend.Range(ds.History, from, to)
		if err != nil {
			return nil, err
		}
		values := make([]models.DatedValue, len(points))
		for i, p := range points {
			values[i] = models.DatedValue{Date: formatDate(p.Date), Value: p.Value}
		}
		return &models.HistoricalQueryRecord{
			QueryType: "range",
			Dataset:   ds.ID,
			StartDate: formatDate(from),
			EndDate:   formatDate(to),
			Values:    values,
			Count:     len(values),
		}, nil
	}

	if date != "" && !isKeyword(date, "latest", "current", "now") {
		at, err := ParseDate("date", date)
		if err != nil {
			return nil, err
		}
		p, err := a.trend.At(ds.History, at)
		if err != nil {
			return nil, err
		}
		return &models.HistoricalQueryRecord{
			QueryType: "specific_date",
			Dataset:   ds.ID,
			Date:      formatDate(p.Date),
			Value:     &p.Value,
		}, nil
	}

	p, err := a.trend.Latest(ds.History)
	if err != nil {
		return nil, err
	}
	return &models.HistoricalQueryRecord{
		QueryType: "latest",
		Dataset:   ds.ID,
		Date:      formatDate(p.Date),
		Value:     &p.Value,
	}, nil
}

// PercentageChange reports the change between two historical dates.
func (a *Advisor) PercentageChange(ctx context.Context, dataset, start, end string) (*models.PercentChangeRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	from, err := ParseDate("start_date", start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate("end_date", end)
	if err != nil {
		return nil, err
	}
	c, err := a.trend.PercentChange(ds.History, from, to)
	if err != nil {
		return nil, err
	}
	return &models.PercentChangeRecord{
		Dataset:          ds.ID,
		StartDate:        formatDate(c.Start.Date),
		EndDate:          formatDate(c.End.Date),
		StartValue:       c.Start.Value,
		EndValue:         c.End.Value,
		PercentageChange: round(c.Percent, 2),
		TrendDirection:   c.Direction,
	}, nil
}

// window parses optional range bounds.
func window(start, end string) (Window, error) {
	var w Window
	var err error
	if start != "" {
		if w.Start, err = ParseDate("start_date", start); err != nil {
			return Window{}, err
		}
	}
	if end != "" {
		if w.End, err = ParseDate("end_date", end); err != nil {
			return Window{}, err
		}
	}
	if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
		return Window{}, utils.NewValidationErrorf("start_date %s is after end_date %s", start, end)
	}
	return w, nil
}

// PeakAndValley finds the extremes, optionally within a range.
func (a *Advisor) PeakAndValley(ctx context.Context, dataset, start, end string) (*models.PeakValleyRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	w, err := window(start, end)
	if err != nil {
		return nil, err
	}
	peak, err := a.trend.Peak(ds.History, w)
	if err != nil {
		return nil, err
	}
	valley, err := a.trend.Valley(ds.History, w)
	if err != nil {
		return nil, err
	}
	return &models.PeakValleyRecord{
		Dataset: ds.ID,
		Peak:    models.DatedValue{Date: formatDate(peak.Date), Value: peak.Value},
		Valley:  models.DatedValue{Date: formatDate(valley.Date), Value: valley.Value},
	}, nil
}

// MovingAverage smooths the history with a simple moving average.
func (a *Advisor) MovingAverage(ctx context.Context, dataset string, windowSize int, start, end string) (*models.MovingAverageRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	w, err := window(start, end)
	if err != nil {
		return nil, err
	}
	points, err := a.trend.MovingAverage(ds.History, windowSize, w)
	if err != nil {
		return nil, err
	}
	out := make([]models.MovingAveragePoint, len(points))
	for i, p := range points {
		out[i] = models.MovingAveragePoint{Date: formatDate(p.Date), MovingAverage: round(p.Value, 2)}
	}
	return &models.MovingAverageRecord{Dataset: ds.ID, WindowSize: windowSize, Points: out}, nil
}

// TrendLine fits a linear trend to the history.
func (a *Advisor) TrendLine(ctx context.Context, dataset, start, end string) (*models.TrendLineRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	w, err := window(start, end)
	if err != nil {
		return nil, err
	}
	line, err := a.trend.TrendLine(ds.History, w)
	if err != nil {
		return nil, err
	}
	return &models.TrendLineRecord{
		Dataset:        ds.ID,
		Slope:          round(line.Slope, 4),
		Intercept:      round(line.Intercept, 2),
		TrendDirection: directionOf(line.Slope, 0),
		PointsUsed:     line.Points,
	}, nil
}

// QueryForecast returns the forecast monthsAhead months out, the forecast
// at a date, or the whole path when all is set. "latest", "next" and "soon"
// fall back to monthsAhead.
func (a *Advisor) QueryForecast(ctx context.Context, dataset string, monthsAhead int, date string, all, withQuantiles bool) (*models.ForecastValueRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}

	if all {
		values, err := a.forecast.All(ds.Forecast)
		if err != nil {
			return nil, err
		}
		return &models.ForecastValueRecord{QueryType: "all", Dataset: ds.ID, Forecasts: values}, nil
	}

	var p models.ForecastPoint
	rec := &models.ForecastValueRecord{Dataset: ds.ID}
	if date != "" && !isKeyword(date, "latest", "next", "soon") {
		at, err := ParseDate("date", date)
		if err != nil {
			return nil, err
		}
		if p, err = a.forecast.ByDate(ds.Forecast, at); err != nil {
			return nil, err
		}
		rec.QueryType = "specific_date"
	} else {
		if p, err = a.forecast.At(ds.Forecast, monthsAhead); err != nil {
			return nil, err
		}
		rec.QueryType = "months_ahead"
		rec.MonthsAhead = monthsAhead
	}

	v, err := pointValue(p)
	if err != nil {
		return nil, err
	}
	rec.Date = formatDate(p.Date)
	rec.ForecastValue = v
	if withQuantiles {
		rec.Quantiles = map[string]float64(p.Quantiles)
	}
	return rec, nil
}

// ConfidenceInterval returns the interval for level at a date, or
// monthsAhead months out when date is empty.
func (a *Advisor) ConfidenceInterval(ctx context.Context, dataset string, monthsAhead int, date string, level int) (*models.ConfidenceIntervalRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	var p models.ForecastPoint
	if date != "" {
		at, err := ParseDate("date", date)
		if err != nil {
			return nil, err
		}
		p, err = a.forecast.ByDate(ds.Forecast, at)
		if err != nil {
			return nil, err
		}
	} else if p, err = a.forecast.At(ds.Forecast, monthsAhead); err != nil {
		return nil, err
	}

	iv, err := a.forecast.Interval(p.Quantiles, level)
	if err != nil {
		return nil, err
	}
	return &models.ConfidenceIntervalRecord{
		Dataset:         ds.ID,
		Date:            formatDate(p.Date),
		ConfidenceLevel: iv.Level,
		LowerQuantile:   iv.LowerQuantile,
		UpperQuantile:   iv.UpperQuantile,
		LowerBound:      iv.Lower,
		UpperBound:      iv.Upper,
		Median:          iv.Median,
	}, nil
}

// CompareCurrent compares the latest actual with the 1-month forecast.
func (a *Advisor) CompareCurrent(ctx context.Context, dataset string) (*models.CurrentVsForecastRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	current, err := a.trend.Latest(ds.History)
	if err != nil {
		return nil, err
	}
	date, forecast, err := a.forecast.Point(ds.Forecast, 1)
	if err != nil {
		return nil, err
	}
	pct, err := PercentChangeValues(current.Value, forecast)
	if err != nil {
		return nil, err
	}
	return &models.CurrentVsForecastRecord{
		Dataset:          ds.ID,
		CurrentDate:      formatDate(current.Date),
		CurrentValue:     current.Value,
		ForecastDate:     formatDate(date),
		ForecastValue:    forecast,
		Difference:       round(forecast-current.Value, 2),
		PercentageChange: round(pct, 2),
		TrendDirection:   a.trend.Trend(pct),
	}, nil
}

// ForecastTrend summarises the month-over-month forecast path.
func (a *Advisor) ForecastTrend(ctx context.Context, dataset string, months int) (*models.ForecastTrendRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	t, err := a.forecast.Trend(ds.Forecast, months)
	if err != nil {
		return nil, err
	}
	return &models.ForecastTrendRecord{
		Dataset:              ds.ID,
		StartDate:            formatDate(t.Start.Date),
		EndDate:              formatDate(t.End.Date),
		StartValue:           t.Start.Value,
		EndValue:             t.End.Value,
		MonthsAnalyzed:       t.Months,
		AverageMonthlyChange: t.AverageChange,
		TrendDirection:       t.TrendDirection,
		MonthlyChanges:       t.Changes,
	}, nil
}

// TopDrivers ranks the dataset's drivers.
func (a *Advisor) TopDrivers(ctx context.Context, dataset string, n int) (*models.TopDriversRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	top, err := a.drivers.Top(ds, n)
	if err != nil {
		return nil, err
	}
	out := make([]models.DriverSummary, len(top))
	for i, d := range top {
		out[i] = Summarize(d)
	}
	return &models.TopDriversRecord{Dataset: ds.ID, TopN: n, Drivers: out}, nil
}

// FilterDrivers ranks drivers matching a direction and minimum importance.
func (a *Advisor) FilterDrivers(ctx context.Context, dataset string, f DriverFilter) (*models.TopDriversRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	matched, err := a.drivers.Filter(ds, f)
	if err != nil {
		return nil, err
	}
	out := make([]models.DriverSummary, len(matched))
	for i, d := range matched {
		out[i] = Summarize(d)
	}
	return &models.TopDriversRecord{Dataset: ds.ID, TopN: len(out), Drivers: out}, nil
}

// DriverDetails explains one driver.
func (a *Advisor) DriverDetails(ctx context.Context, dataset, driver string) (*models.DriverDetailRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	d, err := a.drivers.Find(ds, driver)
	if err != nil {
		return nil, err
	}
	rec := Describe(ds.ID, d)
	return &rec, nil
}

// CombinedDrivers nets the direction of the top n drivers.
func (a *Advisor) CombinedDrivers(ctx context.Context, dataset string, n int) (*models.CombinedDriversRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	rec, err := a.drivers.Combined(ds, n)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (a *Advisor) loadAll(ctx context.Context, names []string, minCount int) ([]*models.Dataset, error) {
	if len(names) < minCount {
		return nil, utils.NewValidationErrorf("dataset_names needs at least %d datasets, got %d", minCount, len(names))
	}
	seen := make(map[string]bool, len(names))
	out := make([]*models.Dataset, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, utils.NewValidationErrorf("dataset %q is listed twice", name)
		}
		seen[name] = true
		ds, err := a.load(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// Compare aligns the histories of several datasets on their common dates.
func (a *Advisor) Compare(ctx context.Context, names []string) (*models.ComparisonRecord, error) {
	all, err := a.loadAll(ctx, names, 2)
	if err != nil {
		return nil, err
	}
	series := make([]models.HistoricalSeries, len(all))
	for i, ds := range all {
		series[i] = ds.History
	}
	aligned := a.comparative.Align(series...)

	rows := make([]models.AlignedRow, len(aligned.Dates))
	for j, d := range aligned.Dates {
		values := make(map[string]float64, len(all))
		for i, ds := range all {
			values[ds.ID] = aligned.Values[i][j]
		}
		rows[j] = models.AlignedRow{Date: formatDate(d), Values: values}
	}
	rec := &models.ComparisonRecord{
		Datasets:            names,
		AlignedData:         rows,
		TotalAlignedRecords: len(rows),
	}
	if n := len(aligned.Dates); n > 0 {
		rec.CommonDateRange = &models.DateRange{Start: formatDate(aligned.Dates[0]), End: formatDate(aligned.Dates[n-1])}
	}
	return rec, nil
}

// Correlation correlates two datasets' histories.
func (a *Advisor) Correlation(ctx context.Context, name1, name2 string) (*models.CorrelationRecord, error) {
	all, err := a.loadAll(ctx, []string{name1, name2}, 2)
	if err != nil {
		return nil, err
	}
	return a.correlate(all[0], all[1])
}

func (a *Advisor) correlate(ds1, ds2 *models.Dataset) (*models.CorrelationRecord, error) {
	r, n, err := a.comparative.Correlate(ds1.History, ds2.History)
	if err != nil {
		return nil, err
	}
	direction, strength := ClassifyCorrelation(r)
	return &models.CorrelationRecord{
		Dataset1:               ds1.ID,
		Dataset2:               ds2.ID,
		CorrelationCoefficient: round(r, 2),
		Direction:              direction,
		Strength:               strength,
		Interpretation:         Interpret(r, ds1.ID, ds2.ID),
		DataPointsUsed:         n,
	}, nil
}

// Timing compares how fast two datasets react to shared drivers.
func (a *Advisor) Timing(ctx context.Context, name1, name2 string) (*models.TimingRecord, error) {
	all, err := a.loadAll(ctx, []string{name1, name2}, 2)
	if err != nil {
		return nil, err
	}
	rec := a.comparative.Timing(all[0], all[1])
	return &rec, nil
}

func validateQuantity(quantity float64) error {
	if quantity <= 0 {
		return utils.NewValidationErrorf("quantity must be positive, got %v", quantity)
	}
	return nil
}

// ForwardBuy recommends buying now or waiting for one dataset.
func (a *Advisor) ForwardBuy(ctx context.Context, dataset string, monthsAhead int, quantity float64) (*models.ForwardBuyRecord, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return a.forwardBuy(ds, monthsAhead, quantity)
}

func (a *Advisor) forwardBuy(ds *models.Dataset, monthsAhead int, quantity float64) (*models.ForwardBuyRecord, error) {
	current, err := a.trend.Latest(ds.History)
	if err != nil {
		return nil, err
	}
	date, forecast, err := a.forecast.Point(ds.Forecast, monthsAhead)
	if err != nil {
		return nil, err
	}
	decision, err := a.decision.ForwardBuy(current.Value, forecast, quantity)
	if err != nil {
		return nil, err
	}
	return &models.ForwardBuyRecord{
		Dataset:            ds.ID,
		CurrentPrice:       money(current.Value),
		CurrentDate:        formatDate(current.Date),
		ForecastPrice:      money(forecast),
		ForecastDate:       formatDate(date),
		MonthsAhead:        monthsAhead,
		Quantity:           quantity,
		ForwardBuyDecision: decision,
	}, nil
}

// ImpactAnalysis frames the forecast band as best/expected/worst cases.
func (a *Advisor) ImpactAnalysis(ctx context.Context, dataset string, monthsAhead int, quantity float64) (*models.ImpactRecord, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	current, err := a.trend.Latest(ds.History)
	if err != nil {
		return nil, err
	}
	date, band, err := a.forecast.Quantiles(ds.Forecast, monthsAhead)
	if err != nil {
		return nil, err
	}
	impact, err := a.decision.ImpactAnalysis(current.Value, band, quantity)
	if err != nil {
		return nil, err
	}
	return &models.ImpactRecord{
		Dataset:        ds.ID,
		CurrentPrice:   money(current.Value),
		CurrentDate:    formatDate(current.Date),
		ForecastDate:   formatDate(date),
		MonthsAhead:    monthsAhead,
		Quantity:       quantity,
		ImpactAnalysis: impact,
	}, nil
}

// MultiCommodityScenario ranks forward-buy actions across datasets. With
// exactly two datasets the correlation of their histories is included when
// they overlap enough.
func (a *Advisor) MultiCommodityScenario(ctx context.Context, names []string, monthsAhead int, quantity float64) (*models.MultiCommodityRecord, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	all, err := a.loadAll(ctx, names, 1)
	if err != nil {
		return nil, err
	}

	recs := make([]models.ForwardBuyRecord, 0, len(all))
	individual := make(map[string]models.ForwardBuyRecord, len(all))
	for _, ds := range all {
		rec, err := a.forwardBuy(ds, monthsAhead, quantity)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
		individual[ds.ID] = *rec
	}

	var correlation *models.CorrelationRecord
	if len(all) == 2 {
		correlation, err = a.correlate(all[0], all[1])
		if err != nil {
			a.logger.WithError(err).WithField("datasets", names).Debug("Skipping correlation insight")
			correlation = nil
		}
	}

	actions, insights, total := a.decision.MultiCommodityScenario(recs, correlation)
	return &models.MultiCommodityRecord{
		DatasetsAnalyzed:          names,
		MonthsAhead:               monthsAhead,
		IndividualRecommendations: individual,
		PrioritizedActions:        actions,
		Correlation:               correlation,
		Insights:                  insights,
		TotalPotentialSavings:     total,
	}, nil
}

// ProductionSequencing orders datasets by how favorable their forecast is
// for a consumer.
func (a *Advisor) ProductionSequencing(ctx context.Context, names []string, monthsAhead int) (*models.ProductionSequenceRecord, error) {
	all, err := a.loadAll(ctx, names, 1)
	if err != nil {
		return nil, err
	}
	items := make([]SequenceInput, 0, len(all))
	for _, ds := range all {
		current, err := a.trend.Latest(ds.History)
		if err != nil {
			return nil, err
		}
		date, forecast, err := a.forecast.Point(ds.Forecast, monthsAhead)
		if err != nil {
			return nil, err
		}
		pct, err := PercentChangeValues(current.Value, forecast)
		if err != nil {
			return nil, err
		}
		items = append(items, SequenceInput{
			Dataset:        ds.ID,
			PriceChangePct: pct,
			CurrentPrice:   current.Value,
			ForecastPrice:  forecast,
			CurrentDate:    formatDate(current.Date),
			ForecastDate:   formatDate(date),
		})
	}
	rec := a.decision.ProductionSequencing(items)
	rec.DatasetsAnalyzed = names
	rec.MonthsAhead = monthsAhead
	return &rec, nil
}

// TalkingPoints builds cited negotiation talking points.
func (a *Advisor) TalkingPoints(ctx context.Context, dataset string, monthsAhead int) (*models.TalkingPointsRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	rec, err := a.negotiation.TalkingPoints(ds, monthsAhead)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ValidateClaim classifies a supplier's claimed price.
func (a *Advisor) ValidateClaim(ctx context.Context, dataset string, claimed float64, monthsAhead int) (*models.ClaimValidationRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	rec, err := a.negotiation.ValidateClaim(ds, claimed, monthsAhead)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DriverArguments splits drivers by whether they back a price direction.
func (a *Advisor) DriverArguments(ctx context.Context, dataset, direction string) (*models.DriverArgumentsRecord, error) {
	ds, err := a.load(ctx, dataset)
	if err != nil {
		return nil, err
	}
	rec, err := a.negotiation.DriverArguments(ds, direction)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
