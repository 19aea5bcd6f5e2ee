package tools

import (
	"context"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/services"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Defaults applied when an argument is omitted.
const (
	DefaultForecastMonths   = 1
	DefaultDecisionMonths   = 3
	DefaultQuantity         = 1000.0
	DefaultTopDrivers       = 5
	DefaultCombinedDrivers  = 10
	DefaultConfidenceLevel  = 80
	DefaultPriceDirection   = services.DirectionIncrease
	defaultForecastTrendLen = 3
)

var (
	datasetParam = Param{
		Name:        "dataset_name",
		Type:        TypeString,
		Description: "Dataset identifier, e.g. cotton_price, energy_futures, cotton_export",
		Required:    true,
	}
	datasetsParam = Param{
		Name:        "dataset_names",
		Type:        TypeArray,
		Description: "Dataset identifiers to analyze together",
		Required:    true,
	}
	startParam = Param{Name: "start_date", Type: TypeString, Description: "Start date (YYYY-MM-DD or YYYY-MM)"}
	endParam   = Param{Name: "end_date", Type: TypeString, Description: "End date (YYYY-MM-DD or YYYY-MM)"}
)

func monthsParam(def int) Param {
	return Param{
		Name:        "months_ahead",
		Type:        TypeInteger,
		Description: "Months after the last actual observation",
		Default:     def,
	}
}

func quantityParam() Param {
	return Param{Name: "quantity", Type: TypeNumber, Description: "Units to procure", Default: DefaultQuantity}
}

type datasetArgs struct {
	Dataset string `json:"dataset_name"`
}

type windowArgs struct {
	Dataset string `json:"dataset_name"`
	Start   string `json:"start_date"`
	End     string `json:"end_date"`
}

type historicalArgs struct {
	Dataset string `json:"dataset_name"`
	Date    string `json:"date"`
	Start   string `json:"start_date"`
	End     string `json:"end_date"`
}

type movingAverageArgs struct {
	Dataset string `json:"dataset_name"`
	Window  *int   `json:"window_size"`
	Start   string `json:"start_date"`
	End     string `json:"end_date"`
}

type forecastArgs struct {
	Dataset          string `json:"dataset_name"`
	MonthsAhead      *int   `json:"months_ahead"`
	Date             string `json:"date"`
	All              bool   `json:"all"`
	IncludeQuantiles bool   `json:"include_quantiles"`
}

type intervalArgs struct {
	Dataset     string `json:"dataset_name"`
	MonthsAhead *int   `json:"months_ahead"`
	Date        string `json:"date"`
	Level       *int   `json:"confidence_level"`
}

type forecastTrendArgs struct {
	Dataset string `json:"dataset_name"`
	Months  *int   `json:"months_ahead"`
}

type driversArgs struct {
	Dataset       string   `json:"dataset_name"`
	TopN          *int     `json:"top_n"`
	Driver        string   `json:"driver_name"`
	Direction     *int     `json:"direction"`
	MinImportance *float64 `json:"min_importance"`
}

type combinedArgs struct {
	Dataset string `json:"dataset_name"`
	TopN    *int   `json:"top_n"`
}

type pairArgs struct {
	Dataset1 string `json:"dataset1"`
	Dataset2 string `json:"dataset2"`
}

type namesArgs struct {
	Datasets []string `json:"dataset_names"`
}

type decisionArgs struct {
	Dataset     string   `json:"dataset_name"`
	MonthsAhead *int     `json:"months_ahead"`
	Quantity    *float64 `json:"quantity"`
}

type scenarioArgs struct {
	Datasets    []string `json:"dataset_names"`
	MonthsAhead *int     `json:"months_ahead"`
	Quantity    *float64 `json:"quantity"`
}

type sequencingArgs struct {
	Datasets    []string `json:"dataset_names"`
	MonthsAhead *int     `json:"months_ahead"`
}

type talkingPointsArgs struct {
	Dataset     string `json:"dataset_name"`
	MonthsAhead *int   `json:"months_ahead"`
}

type claimArgs struct {
	Dataset     string   `json:"dataset_name"`
	Claimed     *float64 `json:"claimed_price"`
	MonthsAhead *int     `json:"months_ahead"`
}

type argumentsArgs struct {
	Dataset   string `json:"dataset_name"`
	Direction string `json:"price_direction"`
}

func definitions(a *services.Advisor) []Tool {
	return []Tool{
		{
			Name:        "list_datasets",
			Description: "List the available commodity datasets with their history and forecast coverage",
			handler: typed(func(ctx context.Context, _ struct{}) (interface{}, error) {
				return a.Datasets(ctx), nil
			}),
		},
		{
			Name:        "query_historical_data",
			Description: "Get historical commodity prices: latest value, a specific date, or a date range",
			Params: []Param{
				datasetParam,
				{Name: "date", Type: TypeString, Description: "Specific date, or latest/current/now"},
				startParam,
				endParam,
			},
			handler: typed(func(ctx context.Context, args historicalArgs) (interface{}, error) {
				return a.QueryHistorical(ctx, args.Dataset, args.Date, args.Start, args.End)
			}),
		},
		{
			Name:        "calculate_percentage_change",
			Description: "Calculate the percentage price change between two historical dates",
			Params: []Param{
				datasetParam,
				{Name: "start_date", Type: TypeString, Description: startParam.Description, Required: true},
				{Name: "end_date", Type: TypeString, Description: endParam.Description, Required: true},
			},
			handler: typed(func(ctx context.Context, args windowArgs) (interface{}, error) {
				return a.PercentageChange(ctx, args.Dataset, args.Start, args.End)
			}),
		},
		{
			Name:        "find_peak_and_valley",
			Description: "Find the highest and lowest historical prices, optionally within a date range",
			Params:      []Param{datasetParam, startParam, endParam},
			handler: typed(func(ctx context.Context, args windowArgs) (interface{}, error) {
				return a.PeakAndValley(ctx, args.Dataset, args.Start, args.End)
			}),
		},
		{
			Name:        "calculate_moving_average",
			Description: "Calculate the simple moving average of historical prices",
			Params: []Param{
				datasetParam,
				{Name: "window_size", Type: TypeInteger, Description: "Observations per average", Default: services.DefaultMovingAverageWindow},
				startParam,
				endParam,
			},
			handler: typed(func(ctx context.Context, args movingAverageArgs) (interface{}, error) {
				return a.MovingAverage(ctx, args.Dataset, intOr(args.Window, services.DefaultMovingAverageWindow), args.Start, args.End)
			}),
		},
		{
			Name:        "calculate_trend_line",
			Description: "Fit a linear trend line through historical prices",
			Params:      []Param{datasetParam, startParam, endParam},
			handler: typed(func(ctx context.Context, args windowArgs) (interface{}, error) {
				return a.TrendLine(ctx, args.Dataset, args.Start, args.End)
			}),
		},
		{
			Name:        "query_forecast_data",
			Description: "Get future price forecasts for a number of months ahead, a date, or the whole horizon",
			Params: []Param{
				datasetParam,
				monthsParam(DefaultForecastMonths),
				{Name: "date", Type: TypeString, Description: "Forecast date, or latest/next/soon"},
				{Name: "all", Type: TypeBoolean, Description: "Return every forecast month"},
				{Name: "include_quantiles", Type: TypeBoolean, Description: "Include the quantile band"},
			},
			handler: typed(func(ctx context.Context, args forecastArgs) (interface{}, error) {
				return a.QueryForecast(ctx, args.Dataset, intOr(args.MonthsAhead, DefaultForecastMonths), args.Date, args.All, args.IncludeQuantiles)
			}),
		},
		{
			Name:        "get_confidence_interval",
			Description: "Get the forecast confidence interval (80, 70 or 50 percent) for a month",
			Params: []Param{
				datasetParam,
				monthsParam(DefaultForecastMonths),
				{Name: "date", Type: TypeString, Description: "Forecast date; overrides months_ahead"},
				{Name: "confidence_level", Type: TypeInteger, Description: "80, 70 or 50", Default: DefaultConfidenceLevel},
			},
			handler: typed(func(ctx context.Context, args intervalArgs) (interface{}, error) {
				return a.ConfidenceInterval(ctx, args.Dataset, intOr(args.MonthsAhead, DefaultForecastMonths), args.Date, intOr(args.Level, DefaultConfidenceLevel))
			}),
		},
		{
			Name:        "compare_current_to_forecast",
			Description: "Compare the latest actual price with next month's forecast",
			Params:      []Param{datasetParam},
			handler: typed(func(ctx context.Context, args datasetArgs) (interface{}, error) {
				return a.CompareCurrent(ctx, args.Dataset)
			}),
		},
		{
			Name:        "analyze_forecast_trend",
			Description: "Analyze the month-over-month forecast trend",
			Params:      []Param{datasetParam, monthsParam(defaultForecastTrendLen)},
			handler: typed(func(ctx context.Context, args forecastTrendArgs) (interface{}, error) {
				return a.ForecastTrend(ctx, args.Dataset, intOr(args.Months, defaultForecastTrendLen))
			}),
		},
		{
			Name:        "analyze_market_drivers",
			Description: "Rank the market drivers of a commodity, filter them, or explain one driver",
			Params: []Param{
				datasetParam,
				{Name: "top_n", Type: TypeInteger, Description: "Number of drivers to return", Default: DefaultTopDrivers},
				{Name: "driver_name", Type: TypeString, Description: "Explain this driver (name or identifier)"},
				{Name: "direction", Type: TypeInteger, Description: "Only drivers with this sign: 1 or -1"},
				{Name: "min_importance", Type: TypeNumber, Description: "Only drivers with at least this mean importance"},
			},
			handler: typed(func(ctx context.Context, args driversArgs) (interface{}, error) {
				if args.Driver != "" {
					return a.DriverDetails(ctx, args.Dataset, args.Driver)
				}
				if args.Direction != nil || args.MinImportance != nil {
					f := services.DriverFilter{Direction: intOr(args.Direction, 0), MinImportance: args.MinImportance}
					return a.FilterDrivers(ctx, args.Dataset, f)
				}
				return a.TopDrivers(ctx, args.Dataset, intOr(args.TopN, DefaultTopDrivers))
			}),
		},
		{
			Name:        "analyze_drivers_combined",
			Description: "Net the directional effect of the top drivers",
			Params: []Param{
				datasetParam,
				{Name: "top_n", Type: TypeInteger, Description: "Number of drivers to combine", Default: DefaultCombinedDrivers},
			},
			handler: typed(func(ctx context.Context, args combinedArgs) (interface{}, error) {
				return a.CombinedDrivers(ctx, args.Dataset, intOr(args.TopN, DefaultCombinedDrivers))
			}),
		},
		{
			Name:        "compare_commodities",
			Description: "Align the price histories of several commodities on their common dates",
			Params:      []Param{datasetsParam},
			handler: typed(func(ctx context.Context, args namesArgs) (interface{}, error) {
				return a.Compare(ctx, args.Datasets)
			}),
		},
		{
			Name:        "calculate_correlation",
			Description: "Calculate the Pearson correlation between two commodities' price histories",
			Params:      pairParams(),
			handler: typed(func(ctx context.Context, args pairArgs) (interface{}, error) {
				return a.Correlation(ctx, args.Dataset1, args.Dataset2)
			}),
		},
		{
			Name:        "analyze_timing_relationships",
			Description: "Compare how quickly two commodities respond to their shared drivers",
			Params:      pairParams(),
			handler: typed(func(ctx context.Context, args pairArgs) (interface{}, error) {
				return a.Timing(ctx, args.Dataset1, args.Dataset2)
			}),
		},
		{
			Name:        "recommend_forward_buy",
			Description: "Recommend buying now, waiting, hedging or monitoring, with quantified savings",
			Params:      []Param{datasetParam, monthsParam(DefaultDecisionMonths), quantityParam()},
			handler: typed(func(ctx context.Context, args decisionArgs) (interface{}, error) {
				return a.ForwardBuy(ctx, args.Dataset, intOr(args.MonthsAhead, DefaultDecisionMonths), floatOr(args.Quantity, DefaultQuantity))
			}),
		},
		{
			Name:        "calculate_impact_analysis",
			Description: "Quantify best, expected and worst case cost impact from the forecast band",
			Params:      []Param{datasetParam, monthsParam(DefaultDecisionMonths), quantityParam()},
			handler: typed(func(ctx context.Context, args decisionArgs) (interface{}, error) {
				return a.ImpactAnalysis(ctx, args.Dataset, intOr(args.MonthsAhead, DefaultDecisionMonths), floatOr(args.Quantity, DefaultQuantity))
			}),
		},
		{
			Name:        "analyze_multi_commodity_scenario",
			Description: "Prioritize forward-buy actions across several commodities by urgency",
			Params:      []Param{datasetsParam, monthsParam(DefaultDecisionMonths), quantityParam()},
			handler: typed(func(ctx context.Context, args scenarioArgs) (interface{}, error) {
				return a.MultiCommodityScenario(ctx, args.Datasets, intOr(args.MonthsAhead, DefaultDecisionMonths), floatOr(args.Quantity, DefaultQuantity))
			}),
		},
		{
			Name:        "recommend_production_sequencing",
			Description: "Order production by how favorable each commodity's forecast is",
			Params:      []Param{datasetsParam, monthsParam(DefaultDecisionMonths)},
			handler: typed(func(ctx context.Context, args sequencingArgs) (interface{}, error) {
				return a.ProductionSequencing(ctx, args.Datasets, intOr(args.MonthsAhead, DefaultDecisionMonths))
			}),
		},
		{
			Name:        "generate_negotiation_talking_points",
			Description: "Generate cited talking points for a supplier negotiation",
			Params:      []Param{datasetParam, monthsParam(DefaultDecisionMonths)},
			handler: typed(func(ctx context.Context, args talkingPointsArgs) (interface{}, error) {
				return a.TalkingPoints(ctx, args.Dataset, intOr(args.MonthsAhead, DefaultDecisionMonths))
			}),
		},
		{
			Name:        "validate_supplier_claim",
			Description: "Check a supplier's claimed price against the forecast band",
			Params: []Param{
				datasetParam,
				{Name: "claimed_price", Type: TypeNumber, Description: "Price quoted by the supplier", Required: true},
				monthsParam(DefaultDecisionMonths),
			},
			handler: typed(func(ctx context.Context, args claimArgs) (interface{}, error) {
				if args.Claimed == nil {
					return nil, utils.NewValidationError("claimed_price is required")
				}
				return a.ValidateClaim(ctx, args.Dataset, *args.Claimed, intOr(args.MonthsAhead, DefaultDecisionMonths))
			}),
		},
		{
			Name:        "identify_driver_arguments",
			Description: "Split the top drivers into those supporting and contradicting a price move",
			Params: []Param{
				datasetParam,
				{Name: "price_direction", Type: TypeString, Description: "increase or decrease", Default: DefaultPriceDirection},
			},
			handler: typed(func(ctx context.Context, args argumentsArgs) (interface{}, error) {
				direction := args.Direction
				if direction == "" {
					direction = DefaultPriceDirection
				}
				return a.DriverArguments(ctx, args.Dataset, direction)
			}),
		},
	}
}

func pairParams() []Param {
	return []Param{
		{Name: "dataset1", Type: TypeString, Description: "First dataset identifier", Required: true},
		{Name: "dataset2", Type: TypeString, Description: "Second dataset identifier", Required: true},
	}
}
