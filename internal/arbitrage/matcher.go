package arbitrage

import (
	"slices"
	"strings"
	"time"

	"github.com/xbklairith/aubit-poly/pkg/types"
)

// Match strategies, in priority order.
const (
	MatchByMapping   = "mapping"
	MatchByName      = "name"
	MatchByHeuristic = "heuristic"
)

// EventMappings maps a logical event key to the market id on each venue.
type EventMappings map[string]map[types.Venue]string

// MatcherConfig holds the matching vocabulary. It is hand-curated and
// incomplete, so it is loaded from configuration rather than compiled in.
type MatcherConfig struct {
	EventMappings EventMappings
	// AssetKeywords and PriceLevels are matched as whole lowercase tokens.
	AssetKeywords     []string
	PriceLevels       []string
	MaxEndDateGapDays int
}

// DefaultMatcherConfig returns the built-in vocabulary.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		EventMappings: EventMappings{
			"btc_100k_jan": {
				types.VenuePolymarket: "btc-100000-jan",
				types.VenueKalshi:     "BTCUSD-100K-JAN",
			},
		},
		AssetKeywords:     []string{"btc", "bitcoin", "eth", "ethereum", "crypto"},
		PriceLevels:       []string{"100k", "100000", "50k", "50000", "200k", "200000"},
		MaxEndDateGapDays: 7,
	}
}

// MatchGroup is a set of markets on distinct venues believed to represent the
// same real-world event.
type MatchGroup struct {
	Strategy string
	Markets  []*types.Market
}

// Matcher pairs markets across venues. It never pairs two markets from the
// same venue and never matches on a partial signal: a mapping hit, an exact
// name or the full keyword + price level + date conjunction is required.
type Matcher struct {
	mappings      EventMappings
	assetKeywords wordSet
	priceLevels   wordSet
	maxGapDays    int
}

// NewMatcher creates a matcher from cfg. Vocabulary entries are lowercased.
func NewMatcher(cfg MatcherConfig) *Matcher {
	return &Matcher{
		mappings:      cfg.EventMappings,
		assetKeywords: newWordSet(cfg.AssetKeywords),
		priceLevels:   newWordSet(cfg.PriceLevels),
		maxGapDays:    cfg.MaxEndDateGapDays,
	}
}

// Match returns candidate groups. Mapping groups come first, then pairwise
// name and heuristic matches. The same pair can appear more than once.
func (m *Matcher) Match(marketsByVenue map[types.Venue][]*types.Market) []MatchGroup {
	venues := sortedVenues(marketsByVenue)
	groups := m.matchByMapping(venues, marketsByVenue)

	for i, venueA := range venues {
		for _, venueB := range venues[i+1:] {
			for _, a := range marketsByVenue[venueA] {
				for _, b := range marketsByVenue[venueB] {
					strategy, ok := m.SameEvent(a, b)
					if !ok {
						continue
					}
					MatchedPairsTotal.WithLabelValues(strategy).Inc()
					groups = append(groups, MatchGroup{
						Strategy: strategy,
						Markets:  []*types.Market{a, b},
					})
				}
			}
		}
	}

	return groups
}

func (m *Matcher) matchByMapping(venues []types.Venue, marketsByVenue map[types.Venue][]*types.Market) []MatchGroup {
	if len(m.mappings) == 0 {
		return nil
	}

	index := make(map[types.Venue]map[string]*types.Market, len(venues))
	for _, venue := range venues {
		byID := make(map[string]*types.Market, len(marketsByVenue[venue]))
		for _, market := range marketsByVenue[venue] {
			if market != nil {
				byID[market.ID] = market
			}
		}
		index[venue] = byID
	}

	keys := make([]string, 0, len(m.mappings))
	for key := range m.mappings {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var groups []MatchGroup
	for _, key := range keys {
		ids := m.mappings[key]
		group := make([]*types.Market, 0, len(ids))
		for _, venue := range venues {
			id, ok := ids[venue]
			if !ok {
				continue
			}
			if market, found := index[venue][id]; found {
				group = append(group, market)
			}
		}

		if len(group) >= 2 {
			MatchedPairsTotal.WithLabelValues(MatchByMapping).Inc()
			groups = append(groups, MatchGroup{Strategy: MatchByMapping, Markets: group})
		}
	}

	return groups
}

// SameEvent reports whether two markets on different venues look like the
// same event, and which strategy matched.
func (m *Matcher) SameEvent(a, b *types.Market) (string, bool) {
	if a == nil || b == nil || a.Venue == b.Venue {
		return "", false
	}

	nameA := strings.ToLower(a.Name)
	nameB := strings.ToLower(b.Name)

	if nameA == nameB {
		return MatchByName, true
	}

	if m.assetKeywords.Shared(nameA, nameB) &&
		m.priceLevels.Shared(nameA, nameB) &&
		m.endDatesClose(a, b) {
		return MatchByHeuristic, true
	}

	return "", false
}

// endDatesClose compares calendar dates only. Both markets need an end date.
func (m *Matcher) endDatesClose(a, b *types.Market) bool {
	if a.EndDate == nil || b.EndDate == nil {
		return false
	}

	gap := truncateToDay(*a.EndDate).Sub(truncateToDay(*b.EndDate))
	if gap < 0 {
		gap = -gap
	}

	return gap <= time.Duration(m.maxGapDays)*24*time.Hour
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sortedVenues(marketsByVenue map[types.Venue][]*types.Market) []types.Venue {
	venues := make([]types.Venue, 0, len(marketsByVenue))
	for venue := range marketsByVenue {
		venues = append(venues, venue)
	}
	slices.Sort(venues)
	return venues
}
