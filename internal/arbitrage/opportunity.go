package arbitrage

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/pkg/types"
)

// Kind identifies the strategy that produced an opportunity.
type Kind string

// Opportunity kinds.
const (
	KindInternal      Kind = "internal"
	KindCrossPlatform Kind = "cross_platform"
	KindHedging       Kind = "hedging"
)

// Direction is the side of a binary market to buy.
type Direction string

// Directions.
const (
	DirectionYes Direction = "YES"
	DirectionNo  Direction = "NO"
)

// DefaultConfidence is the confidence assigned when a strategy has no scoring policy.
var DefaultConfidence = decimal.RequireFromString("0.8")

// Opportunity is a detection result. Exactly one of Internal, CrossPlatform or
// Hedging is set, matching Kind.
type Opportunity struct {
	// ID is deterministic for a given mispricing and is the dedup key.
	ID                 string              `json:"id"`
	Kind               Kind                `json:"kind"`
	DetectedAt         time.Time           `json:"detected_at"`
	ProfitPercentage   decimal.Decimal     `json:"profit_percentage"`
	ProfitAbsolute     decimal.NullDecimal `json:"profit_absolute"`
	Markets            []*types.Market     `json:"markets"`
	Venues             []types.Venue       `json:"venues"`
	Description        string              `json:"description"`
	Instructions       []string            `json:"instructions"`
	LiquidityAvailable decimal.NullDecimal `json:"liquidity_available"`
	Confidence         decimal.Decimal     `json:"confidence"`

	Internal      *InternalDetail      `json:"internal,omitempty"`
	CrossPlatform *CrossPlatformDetail `json:"cross_platform,omitempty"`
	Hedging       *HedgingDetail       `json:"hedging,omitempty"`
}

// InternalDetail is the payload of a same-market opportunity.
type InternalDetail struct {
	YesPrice  decimal.Decimal `json:"yes_price"`
	NoPrice   decimal.Decimal `json:"no_price"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// CrossPlatformDetail is the payload of a two-venue opportunity. YES is bought
// on VenueA and NO on VenueB.
type CrossPlatformDetail struct {
	VenueA types.Venue     `json:"venue_a"`
	VenueB types.Venue     `json:"venue_b"`
	PriceA decimal.Decimal `json:"price_a"`
	PriceB decimal.Decimal `json:"price_b"`
}

// HedgingDetail is the payload of a prediction-vs-derivatives opportunity.
type HedgingDetail struct {
	PredictionPrice        decimal.Decimal `json:"prediction_price"`
	PredictionDirection    Direction       `json:"prediction_direction"`
	HedgeVenue             types.Venue     `json:"hedge_venue"`
	HedgeInstrument        string          `json:"hedge_instrument"`
	ImpliedProbability     decimal.Decimal `json:"implied_probability"`
	ProbabilityDiscrepancy decimal.Decimal `json:"probability_discrepancy"`
	Underlying             string          `json:"underlying"`
	TargetPrice            decimal.Decimal `json:"target_price"`
	Expiry                 string          `json:"expiry"`
}

// String returns a one-line summary, e.g. "[INTERNAL] 5.00% profit - ...".
func (o *Opportunity) String() string {
	return fmt.Sprintf("[%s] %s profit - %s", upperKind(o.Kind), FormatPercent(o.ProfitPercentage, 2), o.Description)
}

// ProfitBPS returns the profit percentage in basis points.
func (o *Opportunity) ProfitBPS() int64 {
	return o.ProfitPercentage.Mul(decimal.NewFromInt(10000)).IntPart()
}

// FormatPercent renders a fraction as a percentage with the given decimals.
func FormatPercent(d decimal.Decimal, places int32) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(places) + "%"
}

func upperKind(k Kind) string {
	switch k {
	case KindInternal:
		return "INTERNAL"
	case KindCrossPlatform:
		return "CROSS_PLATFORM"
	case KindHedging:
		return "HEDGING"
	default:
		return string(k)
	}
}

// SortByProfit orders opportunities by profit percentage, highest first. Ties
// keep their input order.
func SortByProfit(opps []*Opportunity) {
	slices.SortStableFunc(opps, func(a, b *Opportunity) int {
		return b.ProfitPercentage.Cmp(a.ProfitPercentage)
	})
}
