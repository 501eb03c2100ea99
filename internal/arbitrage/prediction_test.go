package arbitrage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xbklairith/aubit-poly/pkg/types"
)

func TestIsHedgeable(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: "Will BTC hit $100k by January 2025?", want: true},
		{name: "Ethereum price above 5000 on Friday", want: true},
		{name: "Bitcoin below $60k?", want: true},
		{name: "Will Bitcoin ETF be approved?", want: false},
		{name: "Will SOL reach $500?", want: false},
		{name: "Who wins the election?", want: false},
		{name: "Will Musk say whether Tesla stock will hit $300?", want: false},
		{name: "Will Tether reach $1?", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHedgeable(&types.Market{Name: tt.name}))
		})
	}
}

func TestParsePrediction(t *testing.T) {
	now := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name          string
		marketName    string
		endDate       *time.Time
		wantOK        bool
		wantAsset     string
		wantTarget    string
		wantDirection string
		wantExpiry    string
	}{
		{
			name:          "dollar-k",
			marketName:    "Will BTC hit $100k by January 2025?",
			endDate:       &end,
			wantOK:        true,
			wantAsset:     "BTC",
			wantTarget:    "100000",
			wantDirection: Above,
			wantExpiry:    "250131",
		},
		{
			name:          "dollar-plain",
			marketName:    "Will ETH reach $5000 in Q1 2025?",
			wantOK:        true,
			wantAsset:     "ETH",
			wantTarget:    "5000",
			wantDirection: Above,
			wantExpiry:    "250228",
		},
		{
			name:          "dollar-grouped",
			marketName:    "Bitcoin above $100,000 on March 1?",
			wantOK:        true,
			wantAsset:     "BTC",
			wantTarget:    "100000",
			wantDirection: Above,
			wantExpiry:    "250228",
		},
		{
			name:          "bare-k",
			marketName:    "BTC under 90k this week",
			wantOK:        true,
			wantAsset:     "BTC",
			wantTarget:    "90000",
			wantDirection: Below,
			wantExpiry:    "250228",
		},
		{
			name:          "bare-grouped",
			marketName:    "ethereum less than 3,500 by friday",
			wantOK:        true,
			wantAsset:     "ETH",
			wantTarget:    "3500",
			wantDirection: Below,
			wantExpiry:    "250228",
		},
		{
			name:          "small-value-scaled",
			marketName:    "Will BTC be above $95?",
			wantOK:        true,
			wantAsset:     "BTC",
			wantTarget:    "95000",
			wantDirection: Above,
			wantExpiry:    "250228",
		},
		{
			name:          "dollar-fractional-k",
			marketName:    "Will ETH reach $3.5k by Friday?",
			wantOK:        true,
			wantAsset:     "ETH",
			wantTarget:    "3500",
			wantDirection: Above,
			wantExpiry:    "250228",
		},
		{
			name:          "bare-fractional-k",
			marketName:    "BTC below 97.25k on Sunday",
			wantOK:        true,
			wantAsset:     "BTC",
			wantTarget:    "97250",
			wantDirection: Below,
			wantExpiry:    "250228",
		},
		{
			name:       "asset-inside-word",
			marketName: "Will Musk say whether Tesla stock will hit $300?",
			wantOK:     false,
		},
		{
			name:       "no-price",
			marketName: "Will BTC price go up?",
			wantOK:     false,
		},
		{
			name:       "no-asset",
			marketName: "Will gold reach $3000?",
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market := &types.Market{Name: tt.marketName, EndDate: tt.endDate}

			p, ok := ParsePrediction(market, now)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}

			assert.Equal(t, tt.wantAsset, p.Underlying)
			assert.True(t, p.TargetPrice.Equal(decimal.RequireFromString(tt.wantTarget)),
				"target = %s, want %s", p.TargetPrice, tt.wantTarget)
			assert.Equal(t, tt.wantDirection, p.Direction)
			assert.Equal(t, tt.wantExpiry, p.Expiry)
		})
	}
}

func TestExpiryFor_LastDayOfMonth(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{now: time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), want: "240229"},
		{now: time.Date(2025, 4, 30, 23, 0, 0, 0, time.UTC), want: "250430"},
		{now: time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC), want: "251231"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, expiryFor(&types.Market{}, tt.now))
		})
	}
}
