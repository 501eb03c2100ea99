package arbitrage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

// HedgingConfidence reflects basis risk between the prediction market and the
// derivative used to price it.
//
//nolint:gochecknoglobals // decimal constant
var HedgingConfidence = decimal.RequireFromString("0.6")

// ProbabilityOracle returns the derivatives-implied probability that
// underlying trades above target at expiry (YYMMDD). ok is false when the
// venue has no data for that expiry; err is reserved for transport failures.
type ProbabilityOracle interface {
	ImpliedProbability(ctx context.Context, underlying string, target decimal.Decimal, expiry string) (prob decimal.Decimal, ok bool, err error)
}

// HedgingConfig holds hedging detector configuration.
type HedgingConfig struct {
	MinDiscrepancy decimal.Decimal
	Oracle         ProbabilityOracle
	HedgeVenue     types.Venue
	Logger         *zap.Logger
}

// HedgingDetector compares prediction market YES prices with the probability
// implied by options on the same underlying.
type HedgingDetector struct {
	minDiscrepancy decimal.Decimal
	oracle         ProbabilityOracle
	hedgeVenue     types.Venue
	logger         *zap.Logger
	now            func() time.Time
}

// NewHedgingDetector creates a new hedging detector.
func NewHedgingDetector(cfg HedgingConfig) *HedgingDetector {
	hedgeVenue := cfg.HedgeVenue
	if hedgeVenue == "" {
		hedgeVenue = types.VenueBinance
	}

	return &HedgingDetector{
		minDiscrepancy: cfg.MinDiscrepancy,
		oracle:         cfg.Oracle,
		hedgeVenue:     hedgeVenue,
		logger:         loggerOrNop(cfg.Logger),
		now:            time.Now,
	}
}

// Scan checks every hedgeable market against the oracle. An oracle transport
// error aborts the scan; missing oracle data only skips the market. Results
// are sorted by absolute discrepancy descending.
func (d *HedgingDetector) Scan(ctx context.Context, markets []*types.Market) ([]*Opportunity, error) {
	start := time.Now()
	defer observeDuration(KindHedging, start)

	opportunities := make([]*Opportunity, 0)
	if d.oracle == nil {
		return opportunities, nil
	}

	for _, market := range markets {
		if market == nil || !IsHedgeable(market) {
			continue
		}

		opp, ok, err := d.checkMarket(ctx, market)
		if err != nil {
			return nil, fmt.Errorf("check market %s: %w", market.ID, err)
		}
		if !ok {
			continue
		}

		recordDetected(opp)
		d.logger.Info("hedging-arbitrage-detected",
			zap.String("opportunity-id", opp.ID),
			zap.String("market-name", market.Name),
			zap.String("discrepancy", opp.Hedging.ProbabilityDiscrepancy.StringFixed(4)))

		opportunities = append(opportunities, opp)
	}

	slices.SortStableFunc(opportunities, func(a, b *Opportunity) int {
		return b.Hedging.ProbabilityDiscrepancy.Abs().Cmp(a.Hedging.ProbabilityDiscrepancy.Abs())
	})

	return opportunities, nil
}

func (d *HedgingDetector) checkMarket(ctx context.Context, market *types.Market) (*Opportunity, bool, error) {
	prediction, ok := ParsePrediction(market, d.now())
	if !ok {
		d.logger.Debug("prediction-unparseable", zap.String("market-name", market.Name))
		OpportunitiesRejectedTotal.WithLabelValues(string(KindHedging), "unparseable").Inc()
		return nil, false, nil
	}

	yesPrice, ok := market.YesPrice()
	if !ok {
		return nil, false, nil
	}

	implied, ok, err := d.oracle.ImpliedProbability(ctx, prediction.Underlying, prediction.TargetPrice, prediction.Expiry)
	if err != nil {
		OracleLookupsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("implied probability: %w", err)
	}
	if !ok || implied.IsNegative() || implied.GreaterThan(one) {
		OracleLookupsTotal.WithLabelValues("no_data").Inc()
		d.logger.Debug("implied-probability-unavailable",
			zap.String("underlying", prediction.Underlying),
			zap.String("expiry", prediction.Expiry))
		return nil, false, nil
	}
	OracleLookupsTotal.WithLabelValues("ok").Inc()

	if prediction.Direction == Below {
		implied = one.Sub(implied)
	}

	discrepancy := implied.Sub(yesPrice)
	if discrepancy.IsZero() || discrepancy.Abs().LessThan(d.minDiscrepancy) {
		OpportunitiesRejectedTotal.WithLabelValues(string(KindHedging), "below_threshold").Inc()
		return nil, false, nil
	}

	side := DirectionYes
	betPrice := yesPrice
	if !discrepancy.IsPositive() {
		side = DirectionNo
		betPrice = one.Sub(yesPrice)
		if no, hasNo := market.NoPrice(); hasNo {
			betPrice = no
		}
	}

	profit := discrepancy.Abs()

	return &Opportunity{
		ID:               fmt.Sprintf("hedging:%s:%s:%s:%s", market.Venue, market.ID, prediction.Underlying, side),
		Kind:             KindHedging,
		DetectedAt:       d.now(),
		ProfitPercentage: profit,
		Markets:          []*types.Market{market},
		Venues:           []types.Venue{market.Venue},
		Description: fmt.Sprintf("Buy %s on '%s' - Prediction: %s, Options implied: %s",
			side, market.Name, FormatPercent(yesPrice, 1), FormatPercent(implied, 1)),
		Instructions: hedgingInstructions(market, prediction, side, yesPrice, implied, profit, betPrice),
		Confidence:   HedgingConfidence,
		Hedging: &HedgingDetail{
			PredictionPrice:        yesPrice,
			PredictionDirection:    side,
			HedgeVenue:             d.hedgeVenue,
			HedgeInstrument:        prediction.Underlying + " Options",
			ImpliedProbability:     implied,
			ProbabilityDiscrepancy: discrepancy,
			Underlying:             prediction.Underlying,
			TargetPrice:            prediction.TargetPrice,
			Expiry:                 prediction.Expiry,
		},
	}, true, nil
}

func hedgingInstructions(
	market *types.Market,
	prediction Prediction,
	side Direction,
	yesPrice, implied, discrepancy, betPrice decimal.Decimal,
) []string {
	option := "Put"
	if side == DirectionNo {
		option = "Call"
	}

	return []string{
		fmt.Sprintf("1. Prediction market says: %s", FormatPercent(yesPrice, 1)),
		fmt.Sprintf("2. Options market implies: %s", FormatPercent(implied, 1)),
		fmt.Sprintf("3. Discrepancy: %s", FormatPercent(discrepancy, 1)),
		"",
		fmt.Sprintf("4. Trade: Buy %s at $%s", side, betPrice.StringFixed(4)),
		fmt.Sprintf("   URL: %s", market.URL),
		"",
		"5. Optional hedge: Use options to lock in profit",
		fmt.Sprintf("   - Buy %s at strike $%s", option, prediction.TargetPrice.String()),
	}
}
