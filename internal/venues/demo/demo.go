// Package demo provides an offline market source and oracle with fixed data.
package demo

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/pkg/types"
)

// Source serves a fixed market list.
type Source struct {
	mu        sync.Mutex
	venue     types.Venue
	markets   []*types.Market
	connected bool
}

// NewSource creates a source for venue. A nil market list serves Markets().
func NewSource(venue types.Venue, markets []*types.Market) *Source {
	if venue == "" {
		venue = types.VenueDemo
	}
	if markets == nil {
		markets = Markets()
	}
	return &Source{venue: venue, markets: markets}
}

// Venue implements scanner.MarketSource.
func (s *Source) Venue() types.Venue { return s.venue }

// Connect always succeeds.
func (s *Source) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

// Disconnect always succeeds.
func (s *Source) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// GetMarkets returns fresh copies of the fixed markets.
func (s *Source) GetMarkets(_ context.Context, limit int, filter types.MarketFilter) ([]*types.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Market
	for _, m := range s.markets {
		if limit > 0 && len(out) == limit {
			break
		}
		if !filter.Matches(m) {
			continue
		}

		c := *m
		c.Venue = s.venue
		c.Outcomes = append([]types.Outcome(nil), m.Outcomes...)
		out = append(out, &c)
	}
	return out, nil
}

// Markets returns the simulated markets: two crypto binaries priced below
// the guaranteed payout.
func Markets() []*types.Market {
	return []*types.Market{
		binary("demo_1", "Will BTC hit $100k by January 2025?", "0.45", "0.52", "https://polymarket.com/demo"),
		binary("demo_2", "Will ETH reach $5000 in Q1 2025?", "0.30", "0.68", "https://polymarket.com/demo2"),
	}
}

func binary(id, name, yes, no, url string) *types.Market {
	return &types.Market{
		ID:    id,
		Venue: types.VenueDemo,
		Name:  name,
		Outcomes: []types.Outcome{
			{ID: "yes", Name: "YES", Price: decimal.RequireFromString(yes)},
			{ID: "no", Name: "NO", Price: decimal.RequireFromString(no)},
		},
		Liquidity: decimal.NewFromInt(5000),
		Volume24h: decimal.NewFromInt(1000),
		URL:       url,
	}
}

// Oracle returns a fixed probability per underlying, ignoring target and
// expiry.
type Oracle struct {
	probabilities map[string]decimal.Decimal
}

// NewOracle creates an oracle. A nil map uses DefaultProbabilities.
func NewOracle(probabilities map[string]decimal.Decimal) *Oracle {
	if probabilities == nil {
		probabilities = DefaultProbabilities()
	}
	return &Oracle{probabilities: probabilities}
}

// DefaultProbabilities are the simulated derivatives-implied probabilities.
func DefaultProbabilities() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"BTC": decimal.RequireFromString("0.55"),
		"ETH": decimal.RequireFromString("0.25"),
	}
}

// ImpliedProbability implements arbitrage.ProbabilityOracle.
func (o *Oracle) ImpliedProbability(_ context.Context, underlying string, _ decimal.Decimal, _ string) (decimal.Decimal, bool, error) {
	p, ok := o.probabilities[strings.ToUpper(underlying)]
	return p, ok, nil
}
