// Package binance derives implied probabilities from Binance European options.
// The call delta at the strike closest to a target price is used as the
// probability that the underlying settles above it.
package binance

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/internal/venues"
	"github.com/xbklairith/aubit-poly/pkg/cache"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public options API.
const DefaultBaseURL = "https://eapi.binance.com"

// DefaultListingTTL is how long option listings are cached.
const DefaultListingTTL = 5 * time.Minute

// Config holds oracle configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RateLimit  float64
	Cache      cache.Cache // optional listing cache
	ListingTTL time.Duration
	Logger     *zap.Logger
}

// Oracle implements arbitrage.ProbabilityOracle over Binance options.
type Oracle struct {
	client *venues.Client
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// OptionSymbol is one listed option contract.
type OptionSymbol struct {
	Symbol      string          `json:"symbol"`
	Underlying  string          `json:"underlying"`
	StrikePrice decimal.Decimal `json:"strikePrice"`
	Side        string          `json:"side"`
}

type exchangeInfo struct {
	OptionSymbols []OptionSymbol `json:"optionSymbols"`
}

type markEntry struct {
	Symbol    string              `json:"symbol"`
	MarkPrice decimal.Decimal     `json:"markPrice"`
	Delta     decimal.NullDecimal `json:"delta"`
}

// New creates a Binance options oracle.
func New(cfg Config) *Oracle {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ttl := cfg.ListingTTL
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var headers map[string]string
	if cfg.APIKey != "" {
		headers = map[string]string{"X-MBX-APIKEY": cfg.APIKey}
	}

	return &Oracle{
		client: venues.NewClient(venues.ClientConfig{
			Venue:     types.VenueBinance,
			BaseURL:   baseURL,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Headers:   headers,
			Logger:    logger,
		}),
		cache:  cfg.Cache,
		ttl:    ttl,
		logger: logger,
	}
}

// ImpliedProbability returns the call delta for the listed strike closest to
// target at the YYMMDD expiry. It returns false when no contract is listed
// for that expiry or the venue publishes no delta.
func (o *Oracle) ImpliedProbability(ctx context.Context, underlying string, target decimal.Decimal, expiry string) (decimal.Decimal, bool, error) {
	symbols, err := o.OptionSymbols(ctx, underlying)
	if err != nil {
		return decimal.Zero, false, err
	}

	contract, ok := closestCall(symbols, target, expiry)
	if !ok {
		o.logger.Debug("no-options-for-expiry",
			zap.String("underlying", underlying),
			zap.String("expiry", expiry))
		return decimal.Zero, false, nil
	}

	params := url.Values{}
	params.Add("symbol", contract.Symbol)

	var marks []markEntry
	err = o.client.GetJSON(ctx, "fetch-mark", "/eapi/v1/mark", params, &marks)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("fetch mark %s: %w", contract.Symbol, err)
	}

	for _, m := range marks {
		if m.Symbol != contract.Symbol || !m.Delta.Valid {
			continue
		}

		prob := m.Delta.Decimal.Abs()
		if prob.GreaterThan(decimal.NewFromInt(1)) {
			prob = decimal.NewFromInt(1)
		}

		o.logger.Debug("implied-probability",
			zap.String("symbol", contract.Symbol),
			zap.String("target", target.String()),
			zap.String("probability", prob.String()))
		return prob, true, nil
	}

	return decimal.Zero, false, nil
}

// OptionSymbols lists the option contracts for an underlying such as "BTC",
// served from the cache while fresh.
func (o *Oracle) OptionSymbols(ctx context.Context, underlying string) ([]OptionSymbol, error) {
	underlying = strings.ToUpper(underlying)
	cacheKey := fmt.Sprintf("binance:options:%s", underlying)

	if o.cache != nil {
		if cached, ok := o.cache.Get(cacheKey); ok {
			if symbols, ok := cached.([]OptionSymbol); ok {
				return symbols, nil
			}
		}
	}

	var info exchangeInfo
	err := o.client.GetJSON(ctx, "fetch-exchange-info", "/eapi/v1/exchangeInfo", nil, &info)
	if err != nil {
		return nil, fmt.Errorf("list options for %s: %w", underlying, err)
	}

	symbols := make([]OptionSymbol, 0, len(info.OptionSymbols))
	for _, s := range info.OptionSymbols {
		u := strings.ToUpper(s.Underlying)
		if u == underlying || u == underlying+"USDT" {
			symbols = append(symbols, s)
		}
	}

	if o.cache != nil {
		o.cache.Set(cacheKey, symbols, o.ttl)
	}

	o.logger.Debug("options-listed",
		zap.String("underlying", underlying),
		zap.Int("count", len(symbols)))

	return symbols, nil
}

// closestCall picks the call at expiry whose strike is nearest to target.
// Ties keep the first listed contract.
func closestCall(symbols []OptionSymbol, target decimal.Decimal, expiry string) (OptionSymbol, bool) {
	var (
		best     OptionSymbol
		bestDist decimal.Decimal
		found    bool
	)

	needle := "-" + expiry + "-"
	for _, s := range symbols {
		if !strings.Contains(s.Symbol, needle) || !isCall(s) || !s.StrikePrice.IsPositive() {
			continue
		}

		dist := s.StrikePrice.Sub(target).Abs()
		if !found || dist.LessThan(bestDist) {
			best, bestDist, found = s, dist, true
		}
	}

	return best, found
}

func isCall(s OptionSymbol) bool {
	if s.Side != "" {
		return strings.EqualFold(s.Side, "CALL")
	}
	return strings.HasSuffix(s.Symbol, "-C")
}
