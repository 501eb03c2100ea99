package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Matching is the cross-venue matching vocabulary read from a TOML file.
// Zero-valued fields mean "use the built-in default".
//
//	asset_keywords = ["btc", "bitcoin"]
//	price_levels = ["100k", "100000"]
//	max_end_date_gap_days = 7
//
//	[events.btc_100k_jan]
//	polymarket = "btc-100000-jan"
//	kalshi = "BTCUSD-100K-JAN"
type Matching struct {
	AssetKeywords     []string                     `toml:"asset_keywords"`
	PriceLevels       []string                     `toml:"price_levels"`
	MaxEndDateGapDays int                          `toml:"max_end_date_gap_days"`
	Events            map[string]map[string]string `toml:"events"`
}

// LoadMatching decodes the vocabulary file at path. An empty path returns
// nil. Unknown keys are rejected so typos do not silently disable matching.
func LoadMatching(path string) (*Matching, error) {
	if path == "" {
		return nil, nil
	}

	var m Matching
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("decode matching config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("matching config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if m.MaxEndDateGapDays < 0 {
		return nil, fmt.Errorf("matching config %s: max_end_date_gap_days cannot be negative", path)
	}

	for event, venues := range m.Events {
		if len(venues) < 2 {
			return nil, fmt.Errorf("matching config %s: event %q needs ids on at least two venues", path, event)
		}
	}

	return &m, nil
}
