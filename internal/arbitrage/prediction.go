package arbitrage

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/pkg/types"
)

// Price directions of a prediction.
const (
	Above = "above"
	Below = "below"
)

// Prediction is the tradeable claim parsed from a market name, e.g.
// "BTC above $100k by Jan 31".
type Prediction struct {
	Underlying  string
	TargetPrice decimal.Decimal
	Direction   string
	// Expiry is YYMMDD, the format options venues use in symbols.
	Expiry string
}

//nolint:gochecknoglobals // vocabularies
var (
	btcKeywords        = newWordSet([]string{"btc", "bitcoin"})
	ethKeywords        = newWordSet([]string{"eth", "ethereum"})
	hedgePriceKeywords = newWordSet([]string{"price", "above", "below", "reach", "hit", "$"})
	belowKeywords      = newWordSet([]string{"below", "under", "less than"})

	thousand = decimal.NewFromInt(1000)
)

// pricePattern is tried in order; the first that yields a number wins.
type pricePattern struct {
	re        *regexp.Regexp
	thousands bool
}

//nolint:gochecknoglobals // compiled once
var pricePatterns = []pricePattern{
	{re: regexp.MustCompile(`\$([0-9,]+(?:\.[0-9]+)?)k`), thousands: true},
	{re: regexp.MustCompile(`\$([0-9,]+)`)},
	{re: regexp.MustCompile(`([0-9,]+(?:\.[0-9]+)?)k`), thousands: true},
	{re: regexp.MustCompile(`([0-9]+),?([0-9]{3})`)},
}

// IsHedgeable reports whether a market name mentions a supported crypto asset
// and a price reference.
func IsHedgeable(market *types.Market) bool {
	name := strings.ToLower(market.Name)
	return (btcKeywords.Any(name) || ethKeywords.Any(name)) && hedgePriceKeywords.Any(name)
}

// ParsePrediction extracts the underlying, target price, direction and expiry
// from a market name. It returns false when the underlying or target price
// cannot be determined.
func ParsePrediction(market *types.Market, now time.Time) (Prediction, bool) {
	name := strings.ToLower(market.Name)

	var underlying string
	switch {
	case btcKeywords.Any(name):
		underlying = "BTC"
	case ethKeywords.Any(name):
		underlying = "ETH"
	default:
		return Prediction{}, false
	}

	target, ok := parseTargetPrice(name)
	if !ok {
		return Prediction{}, false
	}

	direction := Above
	if belowKeywords.Any(name) {
		direction = Below
	}

	return Prediction{
		Underlying:  underlying,
		TargetPrice: target,
		Direction:   direction,
		Expiry:      expiryFor(market, now),
	}, true
}

func parseTargetPrice(name string) (decimal.Decimal, bool) {
	for _, p := range pricePatterns {
		loc := p.re.FindStringSubmatchIndex(name)
		if loc == nil {
			continue
		}

		digits := name[loc[2]:loc[3]]
		if len(loc) > 4 && loc[4] >= 0 {
			digits += name[loc[4]:loc[5]]
		}

		value, err := decimal.NewFromString(strings.ReplaceAll(digits, ",", ""))
		if err != nil {
			continue
		}

		trailingK := loc[1] < len(name) && name[loc[1]] == 'k'
		if p.thousands || trailingK || value.LessThan(thousand) {
			value = value.Mul(thousand)
		}

		return value, true
	}

	return decimal.Zero, false
}

// expiryFor formats the market end date, or the last day of the current
// month when the market has none.
func expiryFor(market *types.Market, now time.Time) string {
	if market.EndDate != nil {
		return market.EndDate.UTC().Format("060102")
	}

	now = now.UTC()
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC)

	return lastDay.Format("060102")
}
