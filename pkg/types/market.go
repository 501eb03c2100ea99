package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies a market-data source.
type Venue string

// Known venues.
const (
	VenuePolymarket Venue = "polymarket"
	VenueKalshi     Venue = "kalshi"
	VenueBinance    Venue = "binance"
	VenueDemo       Venue = "demo"
)

func (v Venue) String() string {
	return string(v)
}

// Outcome is one priced side of a market.
type Outcome struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Price     decimal.Decimal     `json:"price"`
	Volume24h decimal.Decimal     `json:"volume_24h"`
	Liquidity decimal.Decimal     `json:"liquidity"`
	BestBid   decimal.NullDecimal `json:"best_bid"`
	BestAsk   decimal.NullDecimal `json:"best_ask"`
}

// Market is a normalized binary market. Venue adapters build a fresh value on
// every fetch and nothing mutates it afterwards.
type Market struct {
	ID          string          `json:"id"`
	Venue       Venue           `json:"venue"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Outcomes    []Outcome       `json:"outcomes"`
	Liquidity   decimal.Decimal `json:"liquidity"`
	Volume24h   decimal.Decimal `json:"volume_24h"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Resolved    bool            `json:"resolved"`
	URL         string          `json:"url,omitempty"`
}

var (
	yesLabels = map[string]struct{}{"YES": {}, "TRUE": {}, "1": {}}
	noLabels  = map[string]struct{}{"NO": {}, "FALSE": {}, "0": {}}
)

// YesOutcome returns the outcome labelled YES, falling back to the first outcome.
func (m *Market) YesOutcome() (*Outcome, bool) {
	return m.outcomeByLabel(yesLabels, 0)
}

// NoOutcome returns the outcome labelled NO, falling back to the second outcome.
func (m *Market) NoOutcome() (*Outcome, bool) {
	return m.outcomeByLabel(noLabels, 1)
}

func (m *Market) outcomeByLabel(labels map[string]struct{}, fallback int) (*Outcome, bool) {
	for i := range m.Outcomes {
		if _, ok := labels[strings.ToUpper(strings.TrimSpace(m.Outcomes[i].Name))]; ok {
			return &m.Outcomes[i], true
		}
	}

	if fallback < len(m.Outcomes) {
		return &m.Outcomes[fallback], true
	}

	return nil, false
}

// YesPrice returns the YES price, or false if the market has no YES side.
func (m *Market) YesPrice() (decimal.Decimal, bool) {
	o, ok := m.YesOutcome()
	if !ok {
		return decimal.Zero, false
	}
	return o.Price, true
}

// NoPrice returns the NO price, or false if the market has no NO side.
func (m *Market) NoPrice() (decimal.Decimal, bool) {
	o, ok := m.NoOutcome()
	if !ok {
		return decimal.Zero, false
	}
	return o.Price, true
}

// Spread returns YES + NO, the cost of buying both sides. Values below 1 mean
// the pair costs less than the guaranteed payout.
func (m *Market) Spread() (decimal.Decimal, bool) {
	yes, okYes := m.YesPrice()
	no, okNo := m.NoPrice()
	if !okYes || !okNo {
		return decimal.Zero, false
	}
	return yes.Add(no), true
}

// IsArbitrageable reports whether buying both sides costs less than 1.
func (m *Market) IsArbitrageable() bool {
	spread, ok := m.Spread()
	return ok && spread.LessThan(decimal.NewFromInt(1))
}

// MarketFilter narrows a venue fetch.
type MarketFilter struct {
	// Keywords are matched case-insensitively against the market name. Empty
	// means no keyword filtering.
	Keywords        []string
	IncludeResolved bool
}

// Matches reports whether m passes the filter.
func (f MarketFilter) Matches(m *Market) bool {
	if m.Resolved && !f.IncludeResolved {
		return false
	}

	if len(f.Keywords) == 0 {
		return true
	}

	name := strings.ToLower(m.Name)
	for _, kw := range f.Keywords {
		if strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}

	return false
}
