package arbitrage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOpportunity_String(t *testing.T) {
	opp := CreateTestOpportunity("opp-1", "0.05")
	assert.Equal(t, "[INTERNAL] 5.00% profit - Test opportunity opp-1", opp.String())

	opp.Kind = KindCrossPlatform
	assert.Equal(t, "[CROSS_PLATFORM] 5.00% profit - Test opportunity opp-1", opp.String())
}

func TestOpportunity_ProfitBPS(t *testing.T) {
	assert.Equal(t, int64(500), CreateTestOpportunity("a", "0.05").ProfitBPS())
	assert.Equal(t, int64(123), CreateTestOpportunity("b", "0.01234").ProfitBPS())
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "2.00%", FormatPercent(decimal.RequireFromString("0.02"), 2))
	assert.Equal(t, "15.0%", FormatPercent(decimal.RequireFromString("0.15"), 1))
	assert.Equal(t, "-20.0%", FormatPercent(decimal.RequireFromString("-0.2"), 1))
}

func TestSortByProfit_StableForTies(t *testing.T) {
	opps := []*Opportunity{
		CreateTestOpportunity("first", "0.02"),
		CreateTestOpportunity("big", "0.08"),
		CreateTestOpportunity("second", "0.02"),
	}

	SortByProfit(opps)

	assert.Equal(t, "big", opps[0].ID)
	assert.Equal(t, "first", opps[1].ID)
	assert.Equal(t, "second", opps[2].ID)
}
