package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/config"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/testutil"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

func newTestNegotiationAdvisor() *NegotiationAdvisor {
	return NewNegotiationAdvisor(config.DefaultPolicy())
}

func TestNegotiationAdvisor_ValidateClaim(t *testing.T) {
	n := newTestNegotiationAdvisor()

	rec, err := n.ValidateClaim(testutil.CottonPrice(), 190, 3)
	require.NoError(t, err)
	assert.Equal(t, ClaimAboveRange, rec.Classification)
	assert.Equal(t, "Challenge this claim - significantly above forecast", rec.Verdict)
	assert.Equal(t, 178.72, rec.ForecastMedian)
	assert.Equal(t, models.PriceRange{Low: 170.50, High: 187.20}, rec.ForecastRange)
	assert.Equal(t, 11.28, rec.DifferenceAbs)
	assert.Equal(t, 6.31, rec.DifferencePct)
	assert.Equal(t, "2025-11-01", rec.ForecastDate)
	assert.Equal(t, 171.0, rec.CurrentPrice)

	tests := []struct {
		claimed float64
		class   string
	}{
		{186, ClaimAbove},
		{180, ClaimAligned},
		{178.72, ClaimAligned},
		{175, ClaimBelow},
		{170, ClaimBelowRange},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("claim %v", tt.claimed), func(t *testing.T) {
			rec, err := n.ValidateClaim(testutil.CottonPrice(), tt.claimed, 3)
			require.NoError(t, err)
			assert.Equal(t, tt.class, rec.Classification)
		})
	}

	_, err = n.ValidateClaim(testutil.CottonPrice(), 0, 3)
	assert.ErrorIs(t, err, utils.ErrInvalidArgument)

	_, err = n.ValidateClaim(testutil.CottonPrice(), 180, 24)
	assert.ErrorIs(t, err, utils.ErrOutOfRange)
}

func TestNegotiationAdvisor_DriverArguments(t *testing.T) {
	n := newTestNegotiationAdvisor()

	up, err := n.DriverArguments(testutil.CottonPrice(), "increase")
	require.NoError(t, err)
	assert.Equal(t, SentimentBullish, up.Balance.NetSentiment)
	assert.Equal(t, 4, up.Balance.SupportingCount)
	assert.Equal(t, 2, up.Balance.ContradictingCount)
	assert.Equal(t, "1021", up.SupportingDrivers[0].ID)
	assert.Equal(t, "1040", up.ContradictingDrivers[0].ID)

	down, err := n.DriverArguments(testutil.CottonPrice(), " Decrease ")
	require.NoError(t, err)
	assert.Equal(t, DirectionDecrease, down.PriceDirection)
	assert.Equal(t, SentimentBearish, down.Balance.NetSentiment)

	even, err := n.DriverArguments(testutil.CottonExport(), "increase")
	require.NoError(t, err)
	assert.Equal(t, SentimentNeutral, even.Balance.NetSentiment)

	_, err = n.DriverArguments(testutil.CottonPrice(), "sideways")
	assert.ErrorIs(t, err, utils.ErrInvalidArgument)
}

func TestNegotiationAdvisor_DriverArgumentsCap(t *testing.T) {
	n := newTestNegotiationAdvisor()
	ds := &models.Dataset{ID: "synthetic"}
	for i := 0; i < 7; i++ {
		ds.Drivers = append(ds.Drivers, testutil.Driver(fmt.Sprintf("d%d", i), fmt.Sprintf("Driver %d", i), 0.9-float64(i)/10, 1, "", 0))
	}

	rec, err := n.DriverArguments(ds, "increase")
	require.NoError(t, err)
	assert.Len(t, rec.SupportingDrivers, 5)
	assert.Empty(t, rec.ContradictingDrivers)
	assert.Equal(t, 7, rec.Balance.SupportingCount)
	assert.Equal(t, SentimentBullish, rec.Balance.NetSentiment)
}

func TestNegotiationAdvisor_TalkingPoints(t *testing.T) {
	n := newTestNegotiationAdvisor()

	t.Run("rising market", func(t *testing.T) {
		rec, err := n.TalkingPoints(testutil.CottonPrice(), 3)
		require.NoError(t, err)
		require.Len(t, rec.TalkingPoints, 5)

		assert.Equal(t, models.TalkingPoint{
			Point:    "Current market price is $171.00 as of 2025-08-01",
			Type:     PointFact,
			Citation: "Historical data: cotton_price",
		}, rec.TalkingPoints[0])
		assert.Equal(t, "Forecast shows 4.5% increase to $178.72 by 2025-11-01", rec.TalkingPoints[1].Point)
		assert.Equal(t, PointForecast, rec.TalkingPoints[1].Type)
		assert.Equal(t,
			"Crude Oil Price (importance 0.32) shows positive correlation, supporting the expected increase",
			rec.TalkingPoints[2].Point)
		assert.Equal(t, PointSupporting, rec.TalkingPoints[2].Type)
		assert.Equal(t, PointContradicting, rec.TalkingPoints[3].Type)
		assert.Equal(t, PointSupporting, rec.TalkingPoints[4].Type)

		assert.Equal(t, PriceRising, rec.MarketContext.PriceTrend)
		assert.Equal(t, []string{"Crude Oil Price", "US Dollar Index", "Polyester Staple Fiber"}, rec.MarketContext.TopDrivers)
	})

	t.Run("falling market", func(t *testing.T) {
		rec, err := n.TalkingPoints(testutil.EnergyFutures(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Forecast shows 5.3% decrease to $90.00 by 2025-11-01", rec.TalkingPoints[1].Point)
		assert.Equal(t, PointContradicting, rec.TalkingPoints[2].Type)
		assert.Equal(t, PointContradicting, rec.TalkingPoints[3].Type)
		assert.Equal(t, PointSupporting, rec.TalkingPoints[4].Type)
		assert.Equal(t, PriceFalling, rec.MarketContext.PriceTrend)
	})
}
