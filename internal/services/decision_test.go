package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/config"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/testutil"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

func newTestDecisionEngine() *DecisionEngine {
	return NewDecisionEngine(config.DefaultPolicy())
}

func TestDecisionEngine_ForwardBuy(t *testing.T) {
	e := newTestDecisionEngine()

	t.Run("rising price buys now", func(t *testing.T) {
		d, err := e.ForwardBuy(171.00, 178.72, 1000)
		require.NoError(t, err)
		assert.Equal(t, RecommendBuyNow, d.Recommendation)
		assert.Equal(t, 4.51, d.PriceChangePct)
		assert.Equal(t, 7.72, d.PriceChangeAbs)
		assert.Equal(t, 7720.0, d.Savings)
		assert.Equal(t, "Price expected to rise 4.5%. Buy now to lock in lower price.", d.Rationale)
	})

	tests := []struct {
		name           string
		current        float64
		forecast       float64
		recommendation string
		savings        float64
	}{
		{"falling price waits", 100, 95, RecommendWait, 5000},
		{"moderate move hedges", 100, 101, RecommendHedge, 0},
		{"moderate drop hedges", 100, 98.5, RecommendHedge, 0},
		{"flat price monitors", 100, 100.3, RecommendMonitor, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := e.ForwardBuy(tt.current, tt.forecast, 1000)
			require.NoError(t, err)
			assert.Equal(t, tt.recommendation, d.Recommendation)
			assert.Equal(t, tt.savings, d.Savings)
			assert.GreaterOrEqual(t, d.Savings, 0.0)
		})
	}

	_, err := e.ForwardBuy(0, 10, 1000)
	assert.ErrorIs(t, err, utils.ErrDivisionUndefined)

	_, err = e.ForwardBuy(10, 12, -1)
	assert.ErrorIs(t, err, utils.ErrInvalidArgument)
}

func TestDecisionEngine_ForwardBuyHonoursPolicy(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.BuyWaitThresholdPct = 5
	e := NewDecisionEngine(policy)

	d, err := e.ForwardBuy(171.00, 178.72, 1000)
	require.NoError(t, err)
	assert.Equal(t, RecommendHedge, d.Recommendation)
}

func TestDecisionEngine_ImpactAnalysis(t *testing.T) {
	e := newTestDecisionEngine()

	t.Run("rising", func(t *testing.T) {
		_, band, err := ForecastAccessor{}.Quantiles(testutil.CottonPrice().Forecast, 3)
		require.NoError(t, err)

		impact, err := e.ImpactAnalysis(171.00, band, 1000)
		require.NoError(t, err)
		assert.Equal(t, PriceRising, impact.PriceDirection)
		assert.Equal(t, -500.0, impact.BestCase.TotalImpact)
		assert.Equal(t, 7720.0, impact.Expected.TotalImpact)
		assert.Equal(t, 16200.0, impact.WorstCase.TotalImpact)
		assert.Equal(t, 170.50, impact.BestCase.ForecastPrice)
		assert.Equal(t, 187.20, impact.WorstCase.ForecastPrice)
		assert.Equal(t, models.ConfidenceRange{Min: 170.50, Median: 178.72, Max: 187.20}, impact.ConfidenceRange)
	})

	t.Run("falling", func(t *testing.T) {
		impact, err := e.ImpactAnalysis(200, testutil.Band(190), 100)
		require.NoError(t, err)
		assert.Equal(t, PriceFalling, impact.PriceDirection)
		assert.Equal(t, 198.0, impact.BestCase.ForecastPrice)
		assert.Equal(t, 182.0, impact.WorstCase.ForecastPrice)
		assert.Equal(t, -1000.0, impact.Expected.TotalImpact)
	})

	// Expected always lies between the two tail scenarios.
	for _, current := range []float64{150, 171, 178.72, 200} {
		impact, err := e.ImpactAnalysis(current, testutil.Band(178.72), 10)
		require.NoError(t, err)
		lo, hi := impact.BestCase.TotalImpact, impact.WorstCase.TotalImpact
		if lo > hi {
			lo, hi = hi, lo
		}
		assert.GreaterOrEqual(t, impact.Expected.TotalImpact, lo)
		assert.LessOrEqual(t, impact.Expected.TotalImpact, hi)
	}

	_, err := e.ImpactAnalysis(171, models.QuantileBand{"0.5": 171}, 10)
	assert.ErrorIs(t, err, utils.ErrInvalidData)

	_, err = e.ImpactAnalysis(0, testutil.Band(10), 10)
	assert.ErrorIs(t, err, utils.ErrDivisionUndefined)
}

func TestDecisionEngine_Urgency(t *testing.T) {
	e := newTestDecisionEngine()

	assert.Equal(t, 3, e.Urgency(RecommendBuyNow, 4.51))
	assert.Equal(t, 4, e.Urgency(RecommendBuyNow, 6))
	assert.Equal(t, 2, e.Urgency(RecommendWait, -3))
	assert.Equal(t, 3, e.Urgency(RecommendWait, -5.26))
	assert.Equal(t, 1, e.Urgency(RecommendHedge, 1.8))
	assert.Equal(t, 1, e.Urgency(RecommendMonitor, 0))
	assert.Equal(t, 1, e.Urgency(RecommendMonitor, 5))
}

func TestDecisionEngine_MultiCommodityScenario(t *testing.T) {
	e := newTestDecisionEngine()
	rec := func(dataset, recommendation string, pct, savings float64) models.ForwardBuyRecord {
		return models.ForwardBuyRecord{
			Dataset: dataset,
			ForwardBuyDecision: models.ForwardBuyDecision{
				Recommendation: recommendation,
				PriceChangePct: pct,
				Savings:        savings,
			},
		}
	}

	recs := []models.ForwardBuyRecord{
		rec("export", RecommendHedge, 1.8, 0),
		rec("cotton", RecommendBuyNow, 4.51, 7720),
		rec("energy", RecommendWait, -5.26, 5000),
		rec("wool", RecommendMonitor, 0.1, 0),
	}
	actions, insights, total := e.MultiCommodityScenario(recs, nil)

	require.Len(t, actions, 4)
	order := []string{actions[0].Dataset, actions[1].Dataset, actions[2].Dataset, actions[3].Dataset}
	assert.Equal(t, []string{"cotton", "energy", "export", "wool"}, order)
	assert.Equal(t, 12720.0, total)
	assert.Equal(t, []string{
		"Mixed signals: 1 commodity(ies) rising, 1 falling. Consider staggered procurement strategy.",
	}, insights)

	corr := &models.CorrelationRecord{CorrelationCoefficient: -0.82}
	_, insights, _ = e.MultiCommodityScenario(recs[:2], corr)
	assert.Equal(t, []string{
		"Commodities show negative correlation (-0.82). Price movements tend to move opposite.",
	}, insights)

	corr.CorrelationCoefficient = 0.3
	_, insights, _ = e.MultiCommodityScenario(recs[:2], corr)
	assert.Empty(t, insights)
}

func TestDecisionEngine_Favorability(t *testing.T) {
	e := newTestDecisionEngine()
	tests := []struct {
		pct          float64
		favorability string
		rank         int
	}{
		{-4, Favorable, 1},
		{0, Favorable, 1},
		{0.01, ModeratelyFavorable, 2},
		{2, ModeratelyFavorable, 2},
		{2.01, Unfavorable, 3},
	}
	for _, tt := range tests {
		favorability, rank := e.Favorability(tt.pct)
		assert.Equal(t, tt.favorability, favorability, "pct=%v", tt.pct)
		assert.Equal(t, tt.rank, rank, "pct=%v", tt.pct)
	}
}

func TestDecisionEngine_ProductionSequencing(t *testing.T) {
	e := newTestDecisionEngine()
	rec := e.ProductionSequencing([]SequenceInput{
		{Dataset: "X", PriceChangePct: 5},
		{Dataset: "Y", PriceChangePct: -3},
		{Dataset: "Z", PriceChangePct: 4},
		{Dataset: "W", PriceChangePct: 1.5},
	})

	require.Len(t, rec.RecommendedSequence, 4)
	var order []string
	for i, c := range rec.RecommendedSequence {
		order = append(order, c.Dataset)
		assert.Equal(t, i+1, c.SequenceOrder)
	}
	// X and Z tie as unfavorable and keep their input order.
	assert.Equal(t, []string{"Y", "W", "X", "Z"}, order)
	assert.Equal(t, []string{"Y", "W"}, rec.FavorableCommodities)
	assert.Equal(t, []string{"X", "Z"}, rec.UnfavorableCommodities)

	assert.Equal(t, "Prioritize production using Y (prices falling 3.0%)", rec.RecommendedSequence[0].Recommendation)
	assert.Equal(t, "Schedule production using W normally (prices stable)", rec.RecommendedSequence[1].Recommendation)
	assert.Equal(t, "Delay production using X if possible (prices rising 5.0%)", rec.RecommendedSequence[2].Recommendation)

	assert.Equal(t, models.CostImpactSummary{FavorableTrend: -1.5, UnfavorableTrend: 9}, rec.CostImpactSummary)
	assert.Equal(t, []string{
		"Prioritize production using Y, W to take advantage of favorable price trends.",
		"Consider delaying production using X, Z as prices are expected to rise.",
		"Overall favorable conditions: average price decrease of 0.8% for prioritized commodities.",
	}, rec.Insights)
}
