package arbitrage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

// PairValidator decides whether two matched markets can be traded against
// each other. The reason explains a rejection.
type PairValidator interface {
	Compatible(a, b *types.Market) (bool, string)
}

// CrossPlatformConfig holds cross-platform detector configuration.
type CrossPlatformConfig struct {
	MinProfit decimal.Decimal
	Matcher   *Matcher
	// Validator screens matched pairs before pricing; nil accepts every pair.
	Validator PairValidator
	Logger    *zap.Logger
}

// CrossPlatformDetector finds matched markets on two venues where YES on one
// plus NO on the other costs less than 1.
type CrossPlatformDetector struct {
	minProfit decimal.Decimal
	matcher   *Matcher
	validator PairValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewCrossPlatformDetector creates a new cross-platform detector. A nil
// matcher uses the default vocabulary.
func NewCrossPlatformDetector(cfg CrossPlatformConfig) *CrossPlatformDetector {
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = NewMatcher(DefaultMatcherConfig())
	}

	return &CrossPlatformDetector{
		minProfit: cfg.MinProfit,
		matcher:   matcher,
		validator: cfg.Validator,
		logger:    loggerOrNop(cfg.Logger),
		now:       time.Now,
	}
}

// Scan matches markets across venues and evaluates both directions of every
// venue pair in each match. Results are sorted by profit descending; a pair
// found by more than one strategy is reported once.
func (d *CrossPlatformDetector) Scan(marketsByVenue map[types.Venue][]*types.Market) []*Opportunity {
	start := time.Now()
	defer observeDuration(KindCrossPlatform, start)

	opportunities := make([]*Opportunity, 0)
	seen := make(map[string]struct{})

	for _, group := range d.matcher.Match(marketsByVenue) {
		for _, opp := range d.evaluateGroup(group) {
			if _, dup := seen[opp.ID]; dup {
				continue
			}
			seen[opp.ID] = struct{}{}

			recordDetected(opp)
			d.logger.Info("cross-platform-arbitrage-detected",
				zap.String("opportunity-id", opp.ID),
				zap.String("match-strategy", group.Strategy),
				zap.String("profit", FormatPercent(opp.ProfitPercentage, 2)))

			opportunities = append(opportunities, opp)
		}
	}

	SortByProfit(opportunities)

	return opportunities
}

func (d *CrossPlatformDetector) evaluateGroup(group MatchGroup) []*Opportunity {
	var out []*Opportunity

	for i, a := range group.Markets {
		for _, b := range group.Markets[i+1:] {
			if a.Venue == b.Venue || !d.compatible(a, b) {
				continue
			}

			if opp, ok := d.checkPair(a, b); ok {
				out = append(out, opp)
			}
			if opp, ok := d.checkPair(b, a); ok {
				out = append(out, opp)
			}
		}
	}

	return out
}

func (d *CrossPlatformDetector) compatible(a, b *types.Market) bool {
	if d.validator == nil {
		return true
	}

	ok, reason := d.validator.Compatible(a, b)
	if !ok {
		OpportunitiesRejectedTotal.WithLabelValues(string(KindCrossPlatform), "resolution_mismatch").Inc()
		d.logger.Debug("cross-platform-pair-rejected",
			zap.String("market-a", a.ID),
			zap.String("market-b", b.ID),
			zap.String("reason", reason))
	}
	return ok
}

// checkPair evaluates buying YES on marketYes and NO on marketNo.
func (d *CrossPlatformDetector) checkPair(marketYes, marketNo *types.Market) (*Opportunity, bool) {
	yesPrice, okYes := marketYes.YesPrice()
	noPrice, okNo := marketNo.NoPrice()
	if !okYes || !okNo {
		return nil, false
	}

	totalCost := yesPrice.Add(noPrice)
	if totalCost.GreaterThanOrEqual(one) {
		return nil, false
	}

	profit := one.Sub(totalCost)
	if profit.LessThan(d.minProfit) {
		OpportunitiesRejectedTotal.WithLabelValues(string(KindCrossPlatform), "below_threshold").Inc()
		return nil, false
	}

	return &Opportunity{
		ID: fmt.Sprintf("cross_platform:yes=%s:%s:no=%s:%s",
			marketYes.Venue, marketYes.ID, marketNo.Venue, marketNo.ID),
		Kind:             KindCrossPlatform,
		DetectedAt:       d.now(),
		ProfitPercentage: profit,
		ProfitAbsolute:   decimal.NewNullDecimal(profit),
		Markets:          []*types.Market{marketYes, marketNo},
		Venues:           []types.Venue{marketYes.Venue, marketNo.Venue},
		Description: fmt.Sprintf("Buy YES@%s on %s, NO@%s on %s",
			yesPrice.StringFixed(4), marketYes.Venue, noPrice.StringFixed(4), marketNo.Venue),
		Instructions:       crossPlatformInstructions(marketYes, marketNo, yesPrice, noPrice, totalCost, profit),
		LiquidityAvailable: decimal.NewNullDecimal(decimal.Min(marketYes.Liquidity, marketNo.Liquidity)),
		Confidence:         DefaultConfidence,
		CrossPlatform: &CrossPlatformDetail{
			VenueA: marketYes.Venue,
			VenueB: marketNo.Venue,
			PriceA: yesPrice,
			PriceB: noPrice,
		},
	}, true
}

func crossPlatformInstructions(marketYes, marketNo *types.Market, yes, no, total, profit decimal.Decimal) []string {
	return []string{
		fmt.Sprintf("1. Buy YES on %s:", marketYes.Venue),
		fmt.Sprintf("   - Market: %s", marketYes.Name),
		fmt.Sprintf("   - Price: $%s", yes.StringFixed(4)),
		fmt.Sprintf("   - URL: %s", marketYes.URL),
		"",
		fmt.Sprintf("2. Buy NO on %s:", marketNo.Venue),
		fmt.Sprintf("   - Market: %s", marketNo.Name),
		fmt.Sprintf("   - Price: $%s", no.StringFixed(4)),
		fmt.Sprintf("   - URL: %s", marketNo.URL),
		"",
		fmt.Sprintf("3. Total cost: $%s", total.StringFixed(4)),
		"4. Guaranteed return: $1.00",
		fmt.Sprintf("5. Profit: $%s (%s)", profit.StringFixed(4), FormatPercent(profit, 2)),
	}
}
