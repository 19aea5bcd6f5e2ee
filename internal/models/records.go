package models

// Records returned across the tool boundary. Field names follow the JSON
// contract consumed by the agent layer, so they stay snake_case on the wire.

// ErrorRecord is the structured failure returned instead of a fault.
type ErrorRecord struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// DatedValue is a point rendered for output.
type DatedValue struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// DateRange is an inclusive range of rendered dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// HistoricalQueryRecord answers latest/date/range lookups.
type HistoricalQueryRecord struct {
	QueryType string       `json:"query_type"`
	Dataset   string       `json:"dataset"`
	Date      string       `json:"date,omitempty"`
	Value     *float64     `json:"value,omitempty"`
	StartDate string       `json:"start_date,omitempty"`
	EndDate   string       `json:"end_date,omitempty"`
	Values    []DatedValue `json:"values,omitempty"`
	Count     int          `json:"count,omitempty"`
}

// PercentChangeRecord reports change and trend between two dates.
type PercentChangeRecord struct {
	Dataset          string  `json:"dataset"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	StartValue       float64 `json:"start_value"`
	EndValue         float64 `json:"end_value"`
	PercentageChange float64 `json:"percentage_change"`
	TrendDirection   string  `json:"trend_direction"`
}

// PeakValleyRecord reports extremes over a range.
type PeakValleyRecord struct {
	Dataset string     `json:"dataset"`
	Peak    DatedValue `json:"peak"`
	Valley  DatedValue `json:"valley"`
}

// MovingAveragePoint is one smoothed value.
type MovingAveragePoint struct {
	Date          string  `json:"date"`
	MovingAverage float64 `json:"moving_average"`
}

// MovingAverageRecord reports a simple moving average.
type MovingAverageRecord struct {
	Dataset    string               `json:"dataset"`
	WindowSize int                  `json:"window_size"`
	Points     []MovingAveragePoint `json:"points"`
}

// TrendLineRecord reports a least-squares fit against the month index.
type TrendLineRecord struct {
	Dataset        string  `json:"dataset"`
	Slope          float64 `json:"slope"`
	Intercept      float64 `json:"intercept"`
	TrendDirection string  `json:"trend_direction"`
	PointsUsed     int     `json:"points_used"`
}

// ForecastValueRecord is a point forecast, optionally with its band, or
// the whole forecast path for an "all" query.
type ForecastValueRecord struct {
	QueryType     string             `json:"query_type"`
	Dataset       string             `json:"dataset"`
	MonthsAhead   int                `json:"months_ahead,omitempty"`
	Date          string             `json:"date,omitempty"`
	ForecastValue float64            `json:"forecast_value,omitempty"`
	Quantiles     map[string]float64 `json:"quantiles,omitempty"`
	Forecasts     []DatedValue       `json:"forecasts,omitempty"`
}

// ConfidenceIntervalRecord is a symmetric interval around the median.
type ConfidenceIntervalRecord struct {
	Dataset         string  `json:"dataset"`
	Date            string  `json:"date"`
	ConfidenceLevel int     `json:"confidence_level"`
	LowerQuantile   string  `json:"lower_quantile"`
	UpperQuantile   string  `json:"upper_quantile"`
	LowerBound      float64 `json:"lower_bound"`
	UpperBound      float64 `json:"upper_bound"`
	Median          float64 `json:"median"`
}

// CurrentVsForecastRecord compares the latest actual with next month.
type CurrentVsForecastRecord struct {
	Dataset          string  `json:"dataset"`
	CurrentDate      string  `json:"current_date"`
	CurrentValue     float64 `json:"current_value"`
	ForecastDate     string  `json:"forecast_date"`
	ForecastValue    float64 `json:"forecast_value"`
	Difference       float64 `json:"difference"`
	PercentageChange float64 `json:"percentage_change"`
	TrendDirection   string  `json:"trend_direction"`
}

// ForecastTrendRecord summarises month-over-month forecast changes.
type ForecastTrendRecord struct {
	Dataset              string    `json:"dataset"`
	StartDate            string    `json:"start_date"`
	EndDate              string    `json:"end_date"`
	StartValue           float64   `json:"start_value"`
	EndValue             float64   `json:"end_value"`
	MonthsAnalyzed       int       `json:"months_analyzed"`
	AverageMonthlyChange float64   `json:"average_monthly_change"`
	TrendDirection       string    `json:"trend_direction"`
	MonthlyChanges       []float64 `json:"monthly_changes"`
}

// DriverSummary is a ranked driver.
type DriverSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ImportanceMean float64 `json:"importance_mean"`
	ImportanceMax  float64 `json:"importance_max"`
	ImportanceMin  float64 `json:"importance_min"`
	Direction      string  `json:"direction"`
}

// DriverDetailRecord explains a single driver.
type DriverDetailRecord struct {
	Dataset              string `json:"dataset"`
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Direction            string `json:"direction"`
	DirectionExplanation string `json:"direction_explanation"`
	PearsonCorrelation   Stats  `json:"pearson_correlation"`
	GrangerCausality     Stats  `json:"granger_causality"`
	Lag                  string `json:"lag,omitempty"`
	LagExplanation       string `json:"lag_explanation"`
}

// TopDriversRecord lists ranked drivers.
type TopDriversRecord struct {
	Dataset string          `json:"dataset"`
	TopN    int             `json:"top_n"`
	Drivers []DriverSummary `json:"drivers"`
}

// CombinedDriversRecord nets the direction of the top drivers.
type CombinedDriversRecord struct {
	Dataset                   string          `json:"dataset"`
	DriversSupportingIncrease []DriverSummary `json:"drivers_supporting_increase"`
	DriversSupportingDecrease []DriverSummary `json:"drivers_supporting_decrease"`
	TotalImportanceIncrease   float64         `json:"total_importance_increase"`
	TotalImportanceDecrease   float64         `json:"total_importance_decrease"`
	NetEffect                 string          `json:"net_effect"`
	NetExplanation            string          `json:"net_explanation"`
	TotalDriversAnalyzed      int             `json:"total_drivers_analyzed"`
}

// AlignedRow holds every dataset's value at one common date.
type AlignedRow struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

// ComparisonRecord aligns several datasets on common dates.
type ComparisonRecord struct {
	Datasets            []string     `json:"datasets"`
	CommonDateRange     *DateRange   `json:"common_date_range"`
	AlignedData         []AlignedRow `json:"aligned_data"`
	TotalAlignedRecords int          `json:"total_aligned_records"`
}

// CorrelationRecord reports Pearson correlation between two datasets.
type CorrelationRecord struct {
	Dataset1               string  `json:"dataset1"`
	Dataset2               string  `json:"dataset2"`
	CorrelationCoefficient float64 `json:"correlation_coefficient"`
	Direction              string  `json:"direction"`
	Strength               string  `json:"strength"`
	Interpretation         string  `json:"interpretation"`
	DataPointsUsed         int     `json:"data_points_used"`
}

// TimingInsight compares lags of one shared driver.
type TimingInsight struct {
	Driver         string `json:"driver"`
	Dataset1Lag    int    `json:"dataset1_lag"`
	Dataset2Lag    int    `json:"dataset2_lag"`
	Interpretation string `json:"interpretation"`
}

// TimingRecord reports which commodity tends to react first.
type TimingRecord struct {
	Dataset1         string          `json:"dataset1"`
	Dataset2         string          `json:"dataset2"`
	CommonDrivers    []string        `json:"common_drivers"`
	LeadCommodity    string          `json:"lead_commodity"`
	AverageLagMonths float64         `json:"average_lag_months"`
	TimingInsights   []TimingInsight `json:"timing_insights"`
	PredictiveValue  string          `json:"predictive_value"`
}

// ForwardBuyDecision is the outcome of the buy/wait/hedge/monitor policy.
type ForwardBuyDecision struct {
	Recommendation string  `json:"recommendation"`
	PriceChangePct float64 `json:"price_change_pct"`
	PriceChangeAbs float64 `json:"price_change_abs"`
	Savings        float64 `json:"savings"`
	Rationale      string  `json:"rationale"`
	Action         string  `json:"action"`
}

// ForwardBuyRecord is a forward-buy recommendation for one dataset.
type ForwardBuyRecord struct {
	Dataset       string  `json:"dataset"`
	CurrentPrice  float64 `json:"current_price"`
	CurrentDate   string  `json:"current_date"`
	ForecastPrice float64 `json:"forecast_price"`
	ForecastDate  string  `json:"forecast_date"`
	MonthsAhead   int     `json:"months_ahead"`
	Quantity      float64 `json:"quantity"`
	ForwardBuyDecision
}

// Scenario is one leg of an impact analysis.
type Scenario struct {
	Scenario       string  `json:"scenario"`
	ForecastPrice  float64 `json:"forecast_price"`
	PriceChangeAbs float64 `json:"price_change_abs"`
	PriceChangePct float64 `json:"price_change_pct"`
	TotalImpact    float64 `json:"total_impact"`
	ImpactPerUnit  float64 `json:"impact_per_unit"`
}

// ConfidenceRange is the q0.1 / median / q0.9 span.
type ConfidenceRange struct {
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// ImpactAnalysis is the best/expected/worst case framing of a band.
type ImpactAnalysis struct {
	PriceDirection  string          `json:"price_direction"`
	BestCase        Scenario        `json:"best_case"`
	Expected        Scenario        `json:"expected"`
	WorstCase       Scenario        `json:"worst_case"`
	ConfidenceRange ConfidenceRange `json:"confidence_range"`
}

// ImpactRecord is an impact analysis for one dataset.
type ImpactRecord struct {
	Dataset      string  `json:"dataset"`
	CurrentPrice float64 `json:"current_price"`
	CurrentDate  string  `json:"current_date"`
	ForecastDate string  `json:"forecast_date"`
	MonthsAhead  int     `json:"months_ahead"`
	Quantity     float64 `json:"quantity"`
	ImpactAnalysis
}

// PrioritizedAction is a recommendation ranked by urgency.
type PrioritizedAction struct {
	Dataset        string  `json:"dataset"`
	Recommendation string  `json:"recommendation"`
	UrgencyScore   int     `json:"urgency_score"`
	PriceChangePct float64 `json:"price_change_pct"`
	Savings        float64 `json:"savings"`
	Rationale      string  `json:"rationale,omitempty"`
	CurrentPrice   float64 `json:"current_price,omitempty"`
	ForecastPrice  float64 `json:"forecast_price,omitempty"`
}

// MultiCommodityRecord ranks forward-buy actions across datasets.
type MultiCommodityRecord struct {
	DatasetsAnalyzed          []string                    `json:"datasets_analyzed"`
	MonthsAhead               int                         `json:"months_ahead"`
	IndividualRecommendations map[string]ForwardBuyRecord `json:"individual_recommendations"`
	PrioritizedActions        []PrioritizedAction         `json:"prioritized_actions"`
	Correlation               *CorrelationRecord          `json:"correlation,omitempty"`
	Insights                  []string                    `json:"insights"`
	TotalPotentialSavings     float64                     `json:"total_potential_savings"`
}

// SequencedCommodity is one dataset placed in production order.
type SequencedCommodity struct {
	SequenceOrder  int     `json:"sequence_order"`
	Dataset        string  `json:"dataset"`
	Favorability   string  `json:"favorability"`
	Priority       int     `json:"priority"`
	PriceChangePct float64 `json:"price_change_pct"`
	Recommendation string  `json:"recommendation"`
	CurrentPrice   float64 `json:"current_price,omitempty"`
	ForecastPrice  float64 `json:"forecast_price,omitempty"`
	CurrentDate    string  `json:"current_date,omitempty"`
	ForecastDate   string  `json:"forecast_date,omitempty"`
}

// CostImpactSummary totals the favorable and unfavorable trends.
type CostImpactSummary struct {
	FavorableTrend   float64 `json:"favorable_trend"`
	UnfavorableTrend float64 `json:"unfavorable_trend"`
}

// ProductionSequenceRecord orders datasets by forecast favorability.
type ProductionSequenceRecord struct {
	DatasetsAnalyzed       []string             `json:"datasets_analyzed"`
	MonthsAhead            int                  `json:"months_ahead"`
	RecommendedSequence    []SequencedCommodity `json:"recommended_sequence"`
	FavorableCommodities   []string             `json:"favorable_commodities"`
	UnfavorableCommodities []string             `json:"unfavorable_commodities"`
	Insights               []string             `json:"insights"`
	CostImpactSummary      CostImpactSummary    `json:"cost_impact_summary"`
}

// TalkingPoint is one cited negotiation argument.
type TalkingPoint struct {
	Point    string `json:"point"`
	Type     string `json:"type"`
	Citation string `json:"citation"`
}

// MarketContext summarises the figures behind the talking points.
type MarketContext struct {
	CurrentPrice  float64  `json:"current_price"`
	ForecastPrice float64  `json:"forecast_price"`
	PriceTrend    string   `json:"price_trend"`
	TopDrivers    []string `json:"top_drivers"`
}

// TalkingPointsRecord is a negotiation brief.
type TalkingPointsRecord struct {
	Dataset       string         `json:"dataset"`
	TalkingPoints []TalkingPoint `json:"talking_points"`
	MarketContext MarketContext  `json:"market_context"`
}

// ClaimValidationRecord classifies a supplier's claimed price.
type ClaimValidationRecord struct {
	Dataset        string     `json:"dataset"`
	ClaimedPrice   float64    `json:"claimed_price"`
	MonthsAhead    int        `json:"months_ahead"`
	ForecastDate   string     `json:"forecast_date"`
	ForecastMedian float64    `json:"forecast_median"`
	ForecastRange  PriceRange `json:"forecast_range"`
	DifferenceAbs  float64    `json:"difference_abs"`
	DifferencePct  float64    `json:"difference_pct"`
	Classification string     `json:"classification"`
	Verdict        string     `json:"verdict"`
	CurrentPrice   float64    `json:"current_price"`
}

// PriceRange is a low/high price pair.
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ArgumentBalance counts both sides of a driver argument.
type ArgumentBalance struct {
	SupportingCount    int    `json:"supporting_count"`
	ContradictingCount int    `json:"contradicting_count"`
	NetSentiment       string `json:"net_sentiment"`
}

// DriverArgumentsRecord splits drivers by whether they back a price move.
type DriverArgumentsRecord struct {
	Dataset              string          `json:"dataset"`
	PriceDirection       string          `json:"price_direction"`
	SupportingDrivers    []DriverSummary `json:"supporting_drivers"`
	ContradictingDrivers []DriverSummary `json:"contradicting_drivers"`
	Balance              ArgumentBalance `json:"balance"`
}

// DatasetInfo describes a configured dataset for listings.
type DatasetInfo struct {
	ID            string     `json:"id"`
	Observations  int        `json:"observations"`
	HistoryRange  *DateRange `json:"history_range,omitempty"`
	ForecastRange *DateRange `json:"forecast_range,omitempty"`
	Drivers       int        `json:"drivers"`
	Error         string     `json:"error,omitempty"`
}
