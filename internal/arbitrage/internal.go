package arbitrage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // confidence policy
var (
	suspiciousProfit   = decimal.RequireFromString("0.05")
	lowLiquidity       = decimal.NewFromInt(1000)
	lowVolume          = decimal.NewFromInt(100)
	largeProfitPenalty = decimal.RequireFromString("0.2")
	thinMarketPenalty  = decimal.RequireFromString("0.1")
)

// InternalConfig holds internal detector configuration.
type InternalConfig struct {
	MinProfit decimal.Decimal
	Logger    *zap.Logger
}

// InternalDetector finds markets where buying both YES and NO costs less than
// the guaranteed $1 payout.
type InternalDetector struct {
	minProfit decimal.Decimal
	logger    *zap.Logger
	now       func() time.Time
}

// NewInternalDetector creates a new internal detector.
func NewInternalDetector(cfg InternalConfig) *InternalDetector {
	return &InternalDetector{
		minProfit: cfg.MinProfit,
		logger:    loggerOrNop(cfg.Logger),
		now:       time.Now,
	}
}

// Scan returns opportunities for every open market with YES + NO below 1 by at
// least the minimum profit, sorted by profit descending.
func (d *InternalDetector) Scan(markets []*types.Market) []*Opportunity {
	start := time.Now()
	defer observeDuration(KindInternal, start)

	opportunities := make([]*Opportunity, 0)

	for _, market := range markets {
		if market == nil || market.Resolved {
			continue
		}

		opp, ok := d.checkMarket(market)
		if !ok {
			continue
		}

		if opp.ProfitPercentage.LessThan(d.minProfit) {
			OpportunitiesRejectedTotal.WithLabelValues(string(KindInternal), "below_threshold").Inc()
			continue
		}

		recordDetected(opp)
		d.logger.Info("internal-arbitrage-detected",
			zap.String("opportunity-id", opp.ID),
			zap.String("market-name", market.Name),
			zap.String("profit", FormatPercent(opp.ProfitPercentage, 2)))

		opportunities = append(opportunities, opp)
	}

	SortByProfit(opportunities)

	return opportunities
}

func (d *InternalDetector) checkMarket(market *types.Market) (*Opportunity, bool) {
	yesPrice, okYes := market.YesPrice()
	noPrice, okNo := market.NoPrice()
	if !okYes || !okNo {
		d.logger.Debug("market-missing-prices", zap.String("market-id", market.ID))
		return nil, false
	}

	totalCost := yesPrice.Add(noPrice)
	if totalCost.GreaterThanOrEqual(one) {
		return nil, false
	}

	profit := one.Sub(totalCost)

	return &Opportunity{
		ID:                 fmt.Sprintf("internal:%s:%s", market.Venue, market.ID),
		Kind:               KindInternal,
		DetectedAt:         d.now(),
		ProfitPercentage:   profit,
		ProfitAbsolute:     decimal.NewNullDecimal(profit),
		Markets:            []*types.Market{market},
		Venues:             []types.Venue{market.Venue},
		Description:        fmt.Sprintf("Buy YES@%s + NO@%s = %s on %s", yesPrice.StringFixed(4), noPrice.StringFixed(4), totalCost.StringFixed(4), market.Name),
		Instructions:       internalInstructions(market, yesPrice, noPrice, totalCost, profit),
		LiquidityAvailable: decimal.NewNullDecimal(market.Liquidity),
		Confidence:         internalConfidence(market, profit),
		Internal: &InternalDetail{
			YesPrice:  yesPrice,
			NoPrice:   noPrice,
			TotalCost: totalCost,
		},
	}, true
}

func internalInstructions(market *types.Market, yes, no, total, profit decimal.Decimal) []string {
	return []string{
		fmt.Sprintf("1. Go to: %s", market.URL),
		fmt.Sprintf("2. Buy YES shares at $%s", yes.StringFixed(4)),
		fmt.Sprintf("3. Buy NO shares at $%s", no.StringFixed(4)),
		fmt.Sprintf("4. Total cost: $%s per share pair", total.StringFixed(4)),
		"5. Guaranteed return: $1.00 per share pair",
		fmt.Sprintf("6. Profit: $%s (%s)", profit.StringFixed(4), FormatPercent(profit, 2)),
	}
}

// internalConfidence starts at the default and penalizes implausibly large
// profit (likely stale data) and thin markets.
func internalConfidence(market *types.Market, profit decimal.Decimal) decimal.Decimal {
	confidence := DefaultConfidence

	if profit.GreaterThan(suspiciousProfit) {
		confidence = confidence.Sub(largeProfitPenalty)
	}

	if market.Liquidity.LessThan(lowLiquidity) {
		confidence = confidence.Sub(thinMarketPenalty)
	}

	if market.Volume24h.LessThan(lowVolume) {
		confidence = confidence.Sub(thinMarketPenalty)
	}

	return clampConfidence(confidence)
}
