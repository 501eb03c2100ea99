package arbitrage

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/pkg/types"
)

// CreateTestMarket creates a liquid binary test market with the given prices.
// This is a test helper shared with other packages' tests to avoid import cycles.
func CreateTestMarket(venue types.Venue, id string, name string, yesPrice string, noPrice string) *types.Market {
	return &types.Market{
		ID:    id,
		Venue: venue,
		Name:  name,
		Outcomes: []types.Outcome{
			{ID: id + "-yes", Name: "Yes", Price: decimal.RequireFromString(yesPrice)},
			{ID: id + "-no", Name: "No", Price: decimal.RequireFromString(noPrice)},
		},
		Liquidity: decimal.NewFromInt(5000),
		Volume24h: decimal.NewFromInt(1000),
		URL:       "https://example.com/" + id,
	}
}

// CreateTestOpportunity creates an internal opportunity with the given id and profit.
func CreateTestOpportunity(id string, profit string) *Opportunity {
	market := CreateTestMarket(types.VenuePolymarket, "market-"+id, "Test market "+id, "0.45", "0.50")
	p := decimal.RequireFromString(profit)

	return &Opportunity{
		ID:                 id,
		Kind:               KindInternal,
		DetectedAt:         time.Now(),
		ProfitPercentage:   p,
		ProfitAbsolute:     decimal.NewNullDecimal(p),
		Markets:            []*types.Market{market},
		Venues:             []types.Venue{market.Venue},
		Description:        "Test opportunity " + id,
		Instructions:       []string{"1. Buy YES", "2. Buy NO"},
		LiquidityAvailable: decimal.NewNullDecimal(market.Liquidity),
		Confidence:         DefaultConfidence,
		Internal: &InternalDetail{
			YesPrice:  decimal.RequireFromString("0.45"),
			NoPrice:   decimal.RequireFromString("0.50"),
			TotalCost: decimal.RequireFromString("0.95"),
		},
	}
}
