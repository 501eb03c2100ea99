package arbitrage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

func newTestCrossPlatformDetector(t *testing.T, minProfit string, cfg MatcherConfig) *CrossPlatformDetector {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewCrossPlatformDetector(CrossPlatformConfig{
		MinProfit: decimal.RequireFromString(minProfit),
		Matcher:   NewMatcher(cfg),
		Logger:    logger,
	})
}

func TestCrossPlatformDetector_HeuristicScenario(t *testing.T) {
	d := newTestCrossPlatformDetector(t, "0.02", DefaultMatcherConfig())
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	a := withEndDate(CreateTestMarket(types.VenuePolymarket, "poly-btc", "BTC $100k", "0.45", "0.60"), end)
	b := withEndDate(CreateTestMarket(types.VenueKalshi, "kalshi-btc", "BTC 100k", "0.60", "0.53"), end.Add(72*time.Hour))
	b.Liquidity = decimal.NewFromInt(800)

	opps := d.Scan(map[types.Venue][]*types.Market{
		types.VenuePolymarket: {a},
		types.VenueKalshi:     {b},
	})

	require.Len(t, opps, 1)
	opp := opps[0]
	assert.Equal(t, KindCrossPlatform, opp.Kind)
	assert.True(t, opp.ProfitPercentage.Equal(decimal.RequireFromString("0.02")), "profit = %s", opp.ProfitPercentage)
	assert.Equal(t, "cross_platform:yes=polymarket:poly-btc:no=kalshi:kalshi-btc", opp.ID)
	require.NotNil(t, opp.CrossPlatform)
	assert.Equal(t, types.VenuePolymarket, opp.CrossPlatform.VenueA)
	assert.Equal(t, types.VenueKalshi, opp.CrossPlatform.VenueB)
	assert.True(t, opp.CrossPlatform.PriceA.Equal(decimal.RequireFromString("0.45")))
	assert.True(t, opp.CrossPlatform.PriceB.Equal(decimal.RequireFromString("0.53")))
	assert.True(t, opp.LiquidityAvailable.Valid)
	assert.True(t, opp.LiquidityAvailable.Decimal.Equal(decimal.NewFromInt(800)))
	assert.True(t, opp.Confidence.Equal(DefaultConfidence))
}

func TestCrossPlatformDetector_BothDirectionsHaveDistinctIDs(t *testing.T) {
	d := newTestCrossPlatformDetector(t, "0.01", DefaultMatcherConfig())

	a := CreateTestMarket(types.VenuePolymarket, "a", "Will the Fed cut rates?", "0.40", "0.40")
	b := CreateTestMarket(types.VenueKalshi, "b", "will the fed cut rates?", "0.40", "0.40")

	opps := d.Scan(map[types.Venue][]*types.Market{
		types.VenuePolymarket: {a},
		types.VenueKalshi:     {b},
	})

	require.Len(t, opps, 2)
	assert.NotEqual(t, opps[0].ID, opps[1].ID)
	for _, opp := range opps {
		assert.NotEqual(t, opp.Markets[0].Venue, opp.Markets[1].Venue)
		assert.True(t, opp.ProfitPercentage.Equal(decimal.RequireFromString("0.2")))
	}
}

func TestCrossPlatformDetector_DuplicateStrategiesCollapse(t *testing.T) {
	cfg := DefaultMatcherConfig()
	cfg.EventMappings = EventMappings{
		"rain": {types.VenuePolymarket: "a", types.VenueKalshi: "b"},
	}
	d := newTestCrossPlatformDetector(t, "0.01", cfg)

	// matched by mapping and by exact name
	a := CreateTestMarket(types.VenuePolymarket, "a", "Rain tomorrow?", "0.40", "0.70")
	b := CreateTestMarket(types.VenueKalshi, "b", "Rain tomorrow?", "0.70", "0.50")

	opps := d.Scan(map[types.Venue][]*types.Market{
		types.VenuePolymarket: {a},
		types.VenueKalshi:     {b},
	})

	require.Len(t, opps, 1)
	assert.Equal(t, "cross_platform:yes=polymarket:a:no=kalshi:b", opps[0].ID)
}

func TestCrossPlatformDetector_NoOpportunity(t *testing.T) {
	tests := []struct {
		name      string
		minProfit string
		a         *types.Market
		b         *types.Market
	}{
		{
			name:      "no-match",
			minProfit: "0.01",
			a:         CreateTestMarket(types.VenuePolymarket, "a", "Rain tomorrow?", "0.10", "0.10"),
			b:         CreateTestMarket(types.VenueKalshi, "b", "Snow tomorrow?", "0.10", "0.10"),
		},
		{
			name:      "matched-but-overpriced",
			minProfit: "0.01",
			a:         CreateTestMarket(types.VenuePolymarket, "a", "Rain tomorrow?", "0.50", "0.52"),
			b:         CreateTestMarket(types.VenueKalshi, "b", "Rain tomorrow?", "0.49", "0.51"),
		},
		{
			name:      "matched-below-threshold",
			minProfit: "0.02",
			a:         CreateTestMarket(types.VenuePolymarket, "a", "Rain tomorrow?", "0.49", "0.52"),
			b:         CreateTestMarket(types.VenueKalshi, "b", "Rain tomorrow?", "0.50", "0.50"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestCrossPlatformDetector(t, tt.minProfit, DefaultMatcherConfig())
			opps := d.Scan(map[types.Venue][]*types.Market{
				tt.a.Venue: {tt.a},
				tt.b.Venue: {tt.b},
			})
			assert.Empty(t, opps)
		})
	}
}

func TestCrossPlatformDetector_ThreeVenueMapping(t *testing.T) {
	cfg := DefaultMatcherConfig()
	cfg.EventMappings = EventMappings{
		"election": {
			types.VenuePolymarket: "p",
			types.VenueKalshi:     "k",
			types.VenueDemo:       "d",
		},
	}
	d := newTestCrossPlatformDetector(t, "0.01", cfg)

	opps := d.Scan(map[types.Venue][]*types.Market{
		types.VenuePolymarket: {CreateTestMarket(types.VenuePolymarket, "p", "Candidate A wins", "0.40", "0.50")},
		types.VenueKalshi:     {CreateTestMarket(types.VenueKalshi, "k", "Will candidate A win", "0.45", "0.48")},
		types.VenueDemo:       {CreateTestMarket(types.VenueDemo, "d", "A to win", "0.42", "0.45")},
	})

	// 3 venue pairs x 2 directions, every combination sums below 1
	require.Len(t, opps, 6)
	for i := 1; i < len(opps); i++ {
		assert.True(t, opps[i-1].ProfitPercentage.GreaterThanOrEqual(opps[i].ProfitPercentage))
	}
	assert.Equal(t, "cross_platform:yes=polymarket:p:no=demo:d", opps[0].ID)
}
