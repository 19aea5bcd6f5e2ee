package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/config"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Supplier claim classifications.
const (
	ClaimAboveRange = "above_forecast_range"
	ClaimAbove      = "above_forecast"
	ClaimAligned    = "aligned"
	ClaimBelow      = "below_forecast"
	ClaimBelowRange = "below_forecast_range"
)

// Talking point types.
const (
	PointFact          = "fact"
	PointForecast      = "forecast_trend"
	PointSupporting    = "supporting"
	PointContradicting = "contradicting"
)

// Requested price directions and the resulting sentiment.
const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"

	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// talkingPointDrivers is how many top drivers back the talking points.
const talkingPointDrivers = 3

// maxArguments caps each side of a driver argument list.
const maxArguments = 5

// NegotiationAdvisor builds supplier negotiation material from forecasts
// and drivers.
type NegotiationAdvisor struct {
	policy   config.PolicyConfig
	trend    *TrendAnalyzer
	forecast ForecastAccessor
	drivers  DriverRanker
}

// NewNegotiationAdvisor creates an advisor applying policy.
func NewNegotiationAdvisor(policy config.PolicyConfig) *NegotiationAdvisor {
	return &NegotiationAdvisor{
		policy: policy,
		trend:  NewTrendAnalyzer(policy.TrendThresholdPct),
	}
}

// TalkingPoints states the current price, the forecast move and up to three
// top drivers, each labelled by whether it agrees with the forecast move.
func (n *NegotiationAdvisor) TalkingPoints(ds *models.Dataset, monthsAhead int) (models.TalkingPointsRecord, error) {
	current, err := n.trend.Latest(ds.History)
	if err != nil {
		return models.TalkingPointsRecord{}, err
	}
	date, forecast, err := n.forecast.Point(ds.Forecast, monthsAhead)
	if err != nil {
		return models.TalkingPointsRecord{}, err
	}
	pct, err := PercentChangeValues(current.Value, forecast)
	if err != nil {
		return models.TalkingPointsRecord{}, err
	}
	top, err := n.drivers.Top(ds, talkingPointDrivers)
	if err != nil {
		return models.TalkingPointsRecord{}, err
	}

	rising := pct > 0
	move, trend := "decrease", PriceFalling
	if rising {
		move, trend = "increase", PriceRising
	}

	points := []models.TalkingPoint{
		{
			Point:    fmt.Sprintf("Current market price is $%.2f as of %s", current.Value, formatDate(current.Date)),
			Type:     PointFact,
			Citation: "Historical data: " + ds.ID,
		},
		{
			Point:    fmt.Sprintf("Forecast shows %.1f%% %s to $%.2f by %s", math.Abs(pct), move, forecast, formatDate(date)),
			Type:     PointForecast,
			Citation: "Forecast data: " + ds.ID,
		},
	}

	names := make([]string, 0, len(top))
	for _, d := range top {
		names = append(names, d.Name)
		kind, verb := PointContradicting, "contradicting"
		if d.Positive() == rising {
			kind, verb = PointSupporting, "supporting"
		}
		points = append(points, models.TalkingPoint{
			Point: fmt.Sprintf("%s (importance %.2f) shows %s correlation, %s the expected %s",
				d.Name, d.Importance.Overall.Mean, d.DirectionLabel(), verb, move),
			Type:     kind,
			Citation: "Driver analysis: " + ds.ID,
		})
	}

	return models.TalkingPointsRecord{
		Dataset:       ds.ID,
		TalkingPoints: points,
		MarketContext: models.MarketContext{
			CurrentPrice:  current.Value,
			ForecastPrice: money(forecast),
			PriceTrend:    trend,
			TopDrivers:    names,
		},
	}, nil
}

// ClassifyClaim places a claimed price against a band. The tails win over
// the tolerance band around the median.
func (n *NegotiationAdvisor) ClassifyClaim(claimed, low, median, high float64) (string, string) {
	tolerance := median * n.policy.ClaimTolerancePct / 100
	switch {
	case claimed > high:
		return ClaimAboveRange, "Challenge this claim - significantly above forecast"
	case claimed < low:
		return ClaimBelowRange, "Excellent deal - below forecast range"
	case claimed > median+tolerance:
		return ClaimAbove, "Negotiate down - above expected forecast"
	case claimed < median-tolerance:
		return ClaimBelow, "Good deal - below expected forecast"
	default:
		return ClaimAligned, "Reasonable - aligned with forecast"
	}
}

// ValidateClaim checks a supplier's claimed price for monthsAhead against
// that month's forecast band.
func (n *NegotiationAdvisor) ValidateClaim(ds *models.Dataset, claimed float64, monthsAhead int) (models.ClaimValidationRecord, error) {
	if claimed <= 0 {
		return models.ClaimValidationRecord{}, utils.NewValidationErrorf("claimed_price must be positive, got %v", claimed)
	}
	current, err := n.trend.Latest(ds.History)
	if err != nil {
		return models.ClaimValidationRecord{}, err
	}
	date, band, err := n.forecast.Quantiles(ds.Forecast, monthsAhead)
	if err != nil {
		return models.ClaimValidationRecord{}, err
	}
	median, mok := band.Median()
	low, _, lok := band.Lower()
	high, _, hok := band.Upper()
	if !mok || !lok || !hok {
		return models.ClaimValidationRecord{}, utils.NewInvalidDataError("quantile band at %s needs a lower tail, a median and an upper tail", formatDate(date))
	}
	diffPct, err := PercentChangeValues(median, claimed)
	if err != nil {
		return models.ClaimValidationRecord{}, err
	}

	class, verdict := n.ClassifyClaim(claimed, low, median, high)
	return models.ClaimValidationRecord{
		Dataset:        ds.ID,
		ClaimedPrice:   claimed,
		MonthsAhead:    monthsAhead,
		ForecastDate:   formatDate(date),
		ForecastMedian: money(median),
		ForecastRange:  models.PriceRange{Low: money(low), High: money(high)},
		DifferenceAbs:  money(claimed - median),
		DifferencePct:  round(diffPct, 2),
		Classification: class,
		Verdict:        verdict,
		CurrentPrice:   current.Value,
	}, nil
}

// DriverArguments splits the most important drivers into those whose sign
// supports the requested price direction and those that contradict it.
func (n *NegotiationAdvisor) DriverArguments(ds *models.Dataset, direction string) (models.DriverArgumentsRecord, error) {
	direction = strings.ToLower(strings.TrimSpace(direction))
	var want int
	switch direction {
	case DirectionIncrease:
		want = 1
	case DirectionDecrease:
		want = -1
	default:
		return models.DriverArgumentsRecord{}, utils.NewValidationErrorf(
			"price_direction must be %q or %q, got %q", DirectionIncrease, DirectionDecrease, direction)
	}

	pool, err := n.drivers.Top(ds, n.policy.ArgumentPool)
	if err != nil {
		return models.DriverArgumentsRecord{}, err
	}

	supporting := []models.DriverSummary{}
	contradicting := []models.DriverSummary{}
	for _, d := range pool {
		sign := -1
		if d.Positive() {
			sign = 1
		}
		if sign == want {
			supporting = append(supporting, Summarize(d))
		} else {
			contradicting = append(contradicting, Summarize(d))
		}
	}

	balance := models.ArgumentBalance{
		SupportingCount:    len(supporting),
		ContradictingCount: len(contradicting),
		NetSentiment:       SentimentNeutral,
	}
	switch {
	case balance.SupportingCount > balance.ContradictingCount:
		balance.NetSentiment = SentimentBullish
	case balance.SupportingCount < balance.ContradictingCount:
		balance.NetSentiment = SentimentBearish
	}

	if len(supporting) > maxArguments {
		supporting = supporting[:maxArguments]
	}
	if len(contradicting) > maxArguments {
		contradicting = contradicting[:maxArguments]
	}
	return models.DriverArgumentsRecord{
		Dataset:              ds.ID,
		PriceDirection:       direction,
		SupportingDrivers:    supporting,
		ContradictingDrivers: contradicting,
		Balance:              balance,
	}, nil
}
