package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/config"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Forward-buy recommendations.
const (
	RecommendBuyNow  = "buy_now"
	RecommendWait    = "wait"
	RecommendHedge   = "hedge"
	RecommendMonitor = "monitor"
)

// Price directions of an impact analysis.
const (
	PriceRising  = "rising"
	PriceFalling = "falling"
)

// Production favorability classes.
const (
	Favorable           = "favorable"
	ModeratelyFavorable = "moderately_favorable"
	Unfavorable         = "unfavorable"
)

// correlationInsightThreshold is the |r| above which a multi-commodity
// analysis calls out co-movement.
const correlationInsightThreshold = 0.5

// DecisionEngine turns current prices and forecasts into procurement
// recommendations. It holds no state beyond its policy.
type DecisionEngine struct {
	policy config.PolicyConfig
}

// NewDecisionEngine creates an engine applying policy.
func NewDecisionEngine(policy config.PolicyConfig) *DecisionEngine {
	return &DecisionEngine{policy: policy}
}

// ForwardBuy recommends buying now, waiting, hedging or monitoring.
// Savings is the value of following the recommendation and is never
// negative.
func (e *DecisionEngine) ForwardBuy(current, forecast, quantity float64) (models.ForwardBuyDecision, error) {
	if quantity < 0 {
		return models.ForwardBuyDecision{}, utils.NewValidationErrorf("quantity must not be negative, got %v", quantity)
	}
	change := forecast - current
	pct, err := PercentChangeValues(current, forecast)
	if err != nil {
		return models.ForwardBuyDecision{}, err
	}

	d := models.ForwardBuyDecision{
		PriceChangePct: round(pct, 2),
		PriceChangeAbs: money(change),
	}
	abs := math.Abs(pct)
	switch {
	case pct > e.policy.BuyWaitThresholdPct:
		d.Recommendation = RecommendBuyNow
		d.Rationale = fmt.Sprintf("Price expected to rise %.1f%%. Buy now to lock in lower price.", pct)
		d.Savings = money(math.Abs(change) * quantity)
		d.Action = "buying now"
	case pct < -e.policy.BuyWaitThresholdPct:
		d.Recommendation = RecommendWait
		d.Rationale = fmt.Sprintf("Price expected to fall %.1f%%. Wait for lower prices.", abs)
		d.Savings = money(math.Abs(change) * quantity)
		d.Action = "waiting"
	case abs > e.policy.HedgeLowerPct:
		d.Recommendation = RecommendHedge
		d.Rationale = "Price movement uncertain. Consider buying 50-70% now, wait on rest."
		d.Action = "hedging"
	default:
		d.Recommendation = RecommendMonitor
		d.Rationale = "Price stable. No urgency to act. Monitor for changes."
		d.Action = "monitoring"
	}
	return d, nil
}

// ImpactAnalysis frames the 0.1/0.5/0.9 quantiles as best, expected and
// worst cases for a buyer of quantity units. When the median is above the
// current price the low quantile is the best case, otherwise the high one.
func (e *DecisionEngine) ImpactAnalysis(current float64, band models.QuantileBand, quantity float64) (models.ImpactAnalysis, error) {
	if quantity < 0 {
		return models.ImpactAnalysis{}, utils.NewValidationErrorf("quantity must not be negative, got %v", quantity)
	}
	if current == 0 {
		return models.ImpactAnalysis{}, utils.NewDivisionUndefinedError("impact analysis is undefined for a current price of zero")
	}
	low, _, lok := band.Lower()
	high, _, hok := band.Upper()
	median, mok := band.Median()
	if !lok || !hok || !mok {
		return models.ImpactAnalysis{}, utils.NewInvalidDataError("quantile band needs a lower tail, a median and an upper tail")
	}

	scenario := func(name string, price float64) models.Scenario {
		change := price - current
		return models.Scenario{
			Scenario:       name,
			ForecastPrice:  money(price),
			PriceChangeAbs: money(change),
			PriceChangePct: round(change/current*100, 2),
			TotalImpact:    money(change * quantity),
			ImpactPerUnit:  money(change),
		}
	}

	out := models.ImpactAnalysis{
		ConfidenceRange: models.ConfidenceRange{Min: money(low), Median: money(median), Max: money(high)},
		Expected:        scenario("expected", median),
	}
	if median > current {
		out.PriceDirection = PriceRising
		out.BestCase = scenario("best_case", low)
		out.WorstCase = scenario("worst_case", high)
	} else {
		out.PriceDirection = PriceFalling
		out.BestCase = scenario("best_case", high)
		out.WorstCase = scenario("worst_case", low)
	}
	return out, nil
}

// Urgency scores a recommendation: buy_now 3, wait 2, anything else 1,
// plus the policy bonus when the expected move exceeds the magnitude
// threshold.
func (e *DecisionEngine) Urgency(recommendation string, pct float64) int {
	score := 1
	switch recommendation {
	case RecommendBuyNow:
		score = 3
	case RecommendWait:
		score = 2
	}
	if math.Abs(pct) > e.policy.UrgencyMagnitudePct {
		score += e.policy.UrgencyBonus
	}
	return score
}

// MultiCommodityScenario ranks forward-buy recommendations by urgency.
// Equal scores keep their input order. The correlation, when given, feeds
// the insights.
func (e *DecisionEngine) MultiCommodityScenario(recs []models.ForwardBuyRecord, correlation *models.CorrelationRecord) ([]models.PrioritizedAction, []string, float64) {
	actions := make([]models.PrioritizedAction, len(recs))
	var total float64
	buys, waits := 0, 0
	for i, r := range recs {
		actions[i] = models.PrioritizedAction{
			Dataset:        r.Dataset,
			Recommendation: r.Recommendation,
			UrgencyScore:   e.Urgency(r.Recommendation, r.PriceChangePct),
			PriceChangePct: r.PriceChangePct,
			Savings:        r.Savings,
			Rationale:      r.Rationale,
			CurrentPrice:   r.CurrentPrice,
			ForecastPrice:  r.ForecastPrice,
		}
		total += r.Savings
		switch r.Recommendation {
		case RecommendBuyNow:
			buys++
		case RecommendWait:
			waits++
		}
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].UrgencyScore > actions[j].UrgencyScore
	})

	insights := []string{}
	if correlation != nil && math.Abs(correlation.CorrelationCoefficient) > correlationInsightThreshold {
		direction, together := "positive", "together"
		if correlation.CorrelationCoefficient < 0 {
			direction, together = "negative", "opposite"
		}
		insights = append(insights, fmt.Sprintf(
			"Commodities show %s correlation (%.2f). Price movements tend to move %s.",
			direction, correlation.CorrelationCoefficient, together))
	}
	if buys > 0 && waits > 0 {
		insights = append(insights, fmt.Sprintf(
			"Mixed signals: %d commodity(ies) rising, %d falling. Consider staggered procurement strategy.",
			buys, waits))
	}
	return actions, insights, money(total)
}

// SequenceInput is one dataset's expected move for production planning.
type SequenceInput struct {
	Dataset        string
	PriceChangePct float64
	CurrentPrice   float64
	ForecastPrice  float64
	CurrentDate    string
	ForecastDate   string
}

// Favorability classifies an expected price move for a consumer of the
// commodity and returns its sort rank.
func (e *DecisionEngine) Favorability(pct float64) (string, int) {
	switch {
	case pct <= 0:
		return Favorable, 1
	case pct <= e.policy.ModeratelyFavorablePct:
		return ModeratelyFavorable, 2
	default:
		return Unfavorable, 3
	}
}

// ProductionSequencing orders datasets favorable first. Items of equal
// favorability keep their input order.
func (e *DecisionEngine) ProductionSequencing(items []SequenceInput) models.ProductionSequenceRecord {
	seq := make([]models.SequencedCommodity, len(items))
	for i, it := range items {
		fav, rank := e.Favorability(it.PriceChangePct)
		seq[i] = models.SequencedCommodity{
			Dataset:        it.Dataset,
			Favorability:   fav,
			Priority:       rank,
			PriceChangePct: round(it.PriceChangePct, 2),
			CurrentPrice:   money(it.CurrentPrice),
			ForecastPrice:  money(it.ForecastPrice),
			CurrentDate:    it.CurrentDate,
			ForecastDate:   it.ForecastDate,
		}
	}
	sort.SliceStable(seq, func(i, j int) bool { return seq[i].Priority < seq[j].Priority })

	rec := models.ProductionSequenceRecord{
		FavorableCommodities:   []string{},
		UnfavorableCommodities: []string{},
		Insights:               []string{},
	}
	var favorableTotal, unfavorableTotal float64
	for i := range seq {
		c := &seq[i]
		c.SequenceOrder = i + 1
		switch c.Favorability {
		case Favorable:
			c.Recommendation = fmt.Sprintf("Prioritize production using %s (prices falling %.1f%%)", c.Dataset, math.Abs(c.PriceChangePct))
			rec.FavorableCommodities = append(rec.FavorableCommodities, c.Dataset)
			favorableTotal += c.PriceChangePct
		case ModeratelyFavorable:
			c.Recommendation = fmt.Sprintf("Schedule production using %s normally (prices stable)", c.Dataset)
			rec.FavorableCommodities = append(rec.FavorableCommodities, c.Dataset)
			favorableTotal += c.PriceChangePct
		default:
			c.Recommendation = fmt.Sprintf("Delay production using %s if possible (prices rising %.1f%%)", c.Dataset, c.PriceChangePct)
			rec.UnfavorableCommodities = append(rec.UnfavorableCommodities, c.Dataset)
			unfavorableTotal += c.PriceChangePct
		}
	}
	rec.RecommendedSequence = seq

	if len(rec.FavorableCommodities) > 0 {
		rec.Insights = append(rec.Insights, fmt.Sprintf(
			"Prioritize production using %s to take advantage of favorable price trends.",
			strings.Join(rec.FavorableCommodities, ", ")))
	}
	if len(rec.UnfavorableCommodities) > 0 {
		rec.Insights = append(rec.Insights, fmt.Sprintf(
			"Consider delaying production using %s as prices are expected to rise.",
			strings.Join(rec.UnfavorableCommodities, ", ")))
	}
	if n := len(rec.FavorableCommodities); n > 0 && favorableTotal < 0 {
		rec.Insights = append(rec.Insights, fmt.Sprintf(
			"Overall favorable conditions: average price decrease of %.1f%% for prioritized commodities.",
			math.Abs(favorableTotal/float64(n))))
	}
	rec.CostImpactSummary = models.CostImpactSummary{
		FavorableTrend:   round(favorableTotal, 2),
		UnfavorableTrend: round(unfavorableTotal, 2),
	}
	return rec
}
