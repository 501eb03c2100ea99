// Package kalshi reads markets from the Kalshi trade API. Kalshi quotes in
// cents; prices are converted to the [0,1] probability scale here.
package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/internal/venues"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public trade API.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

// MaxBatchSize is the page size used for cursor pagination.
const MaxBatchSize = 200

var hundred = decimal.NewFromInt(100)

// Config holds Kalshi source configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64
	Logger    *zap.Logger
}

// Source is a market source backed by the Kalshi REST API.
type Source struct {
	client    *venues.Client
	connected atomic.Bool
	logger    *zap.Logger
}

// New creates a Kalshi source.
func New(cfg Config) *Source {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var headers map[string]string
	if cfg.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}

	return &Source{
		client: venues.NewClient(venues.ClientConfig{
			Venue:     types.VenueKalshi,
			BaseURL:   baseURL,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Headers:   headers,
			Logger:    logger,
		}),
		logger: logger,
	}
}

// Venue implements scanner.MarketSource.
func (s *Source) Venue() types.Venue { return types.VenueKalshi }

type exchangeStatus struct {
	TradingActive  bool `json:"trading_active"`
	ExchangeActive bool `json:"exchange_active"`
}

// Connect checks the exchange status endpoint, which also validates
// credentials when an API key is configured.
func (s *Source) Connect(ctx context.Context) error {
	var status exchangeStatus
	err := s.client.GetJSON(ctx, "exchange-status", "/exchange/status", nil, &status)
	if err != nil {
		return fmt.Errorf("connect kalshi: %w", err)
	}

	s.connected.Store(true)
	s.logger.Info("kalshi-source-connected",
		zap.Bool("exchange-active", status.ExchangeActive),
		zap.Bool("trading-active", status.TradingActive))
	return nil
}

// Disconnect releases idle connections.
func (s *Source) Disconnect() error {
	s.connected.Store(false)
	s.client.CloseIdleConnections()
	s.logger.Info("kalshi-source-disconnected")
	return nil
}

type marketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

type kalshiMarket struct {
	Ticker       string          `json:"ticker"`
	EventTicker  string          `json:"event_ticker"`
	Title        string          `json:"title"`
	Subtitle     string          `json:"subtitle"`
	RulesPrimary string          `json:"rules_primary"`
	Category     string          `json:"category"`
	Status       string          `json:"status"`
	YesBid       decimal.Decimal `json:"yes_bid"`
	YesAsk       decimal.Decimal `json:"yes_ask"`
	NoBid        decimal.Decimal `json:"no_bid"`
	NoAsk        decimal.Decimal `json:"no_ask"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	Liquidity    decimal.Decimal `json:"liquidity"`
	CloseTime    string          `json:"close_time"`
}

// GetMarkets fetches up to limit open markets, following the cursor.
func (s *Source) GetMarkets(ctx context.Context, limit int, filter types.MarketFilter) ([]*types.Market, error) {
	if !s.connected.Load() {
		return nil, &types.VenueError{Venue: types.VenueKalshi, Op: "fetch-markets", Err: venues.ErrNotConnected}
	}
	if limit <= 0 {
		limit = MaxBatchSize
	}

	var (
		markets []*types.Market
		fetched = 0
		cursor  = ""
	)

	for fetched < limit {
		batch := min(limit-fetched, MaxBatchSize)

		params := url.Values{}
		params.Add("limit", strconv.Itoa(batch))
		params.Add("status", "open")
		if cursor != "" {
			params.Add("cursor", cursor)
		}

		var resp marketsResponse
		err := s.client.GetJSON(ctx, "fetch-markets", "/markets", params, &resp)
		if err != nil {
			return nil, fmt.Errorf("fetch markets page %d: %w", fetched/MaxBatchSize, err)
		}

		fetched += len(resp.Markets)
		for i := range resp.Markets {
			m := resp.Markets[i].normalize()
			if filter.Matches(m) {
				markets = append(markets, m)
			}
		}

		if resp.Cursor == "" || len(resp.Markets) == 0 {
			break
		}
		cursor = resp.Cursor
	}

	s.logger.Debug("fetched-markets",
		zap.Int("raw", fetched),
		zap.Int("normalized", len(markets)))

	return markets, nil
}

// normalize converts cents to probabilities. A side without an ask leaves the
// market without outcomes because there is nothing to buy.
func (k *kalshiMarket) normalize() *types.Market {
	name := k.Title
	if k.Subtitle != "" {
		name = k.Title + " " + k.Subtitle
	}

	m := &types.Market{
		ID:          k.Ticker,
		Venue:       types.VenueKalshi,
		Name:        name,
		Description: k.RulesPrimary,
		Category:    k.Category,
		Liquidity:   k.Liquidity.Div(hundred),
		Volume24h:   k.Volume24h,
		EndDate:     venues.ParseTime(k.CloseTime),
		Resolved:    k.Status == "settled" || k.Status == "finalized",
		URL:         "https://kalshi.com/markets/" + k.Ticker,
	}

	if !k.YesAsk.IsPositive() || !k.NoAsk.IsPositive() {
		return m
	}

	m.Outcomes = []types.Outcome{
		{
			ID:      k.Ticker + "_yes",
			Name:    "YES",
			Price:   k.YesAsk.Div(hundred),
			BestBid: centsToNull(k.YesBid),
			BestAsk: decimal.NewNullDecimal(k.YesAsk.Div(hundred)),
		},
		{
			ID:      k.Ticker + "_no",
			Name:    "NO",
			Price:   k.NoAsk.Div(hundred),
			BestBid: centsToNull(k.NoBid),
			BestAsk: decimal.NewNullDecimal(k.NoAsk.Div(hundred)),
		},
	}
	return m
}

func centsToNull(c decimal.Decimal) decimal.NullDecimal {
	if !c.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(c.Div(hundred))
}
