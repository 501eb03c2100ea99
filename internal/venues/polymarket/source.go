// Package polymarket reads markets from the Polymarket Gamma API.
package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/internal/venues"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Gamma API.
const DefaultBaseURL = "https://gamma-api.polymarket.com"

// MaxBatchSize is the maximum number of markets fetched per request.
const MaxBatchSize = 100

// Config holds Polymarket source configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Logger    *zap.Logger
}

// Source is a market source backed by the Gamma API.
type Source struct {
	client    *venues.Client
	connected atomic.Bool
	logger    *zap.Logger
}

// New creates a Polymarket source.
func New(cfg Config) *Source {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Source{
		client: venues.NewClient(venues.ClientConfig{
			Venue:     types.VenuePolymarket,
			BaseURL:   baseURL,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Logger:    logger,
		}),
		logger: logger,
	}
}

// Venue implements scanner.MarketSource.
func (s *Source) Venue() types.Venue { return types.VenuePolymarket }

// Connect marks the source ready. The Gamma API needs no session.
func (s *Source) Connect(_ context.Context) error {
	s.connected.Store(true)
	s.logger.Info("polymarket-source-connected")
	return nil
}

// Disconnect releases idle connections.
func (s *Source) Disconnect() error {
	s.connected.Store(false)
	s.client.CloseIdleConnections()
	s.logger.Info("polymarket-source-disconnected")
	return nil
}

// GetMarkets fetches up to limit active markets ordered by 24h volume,
// paging through the API when limit exceeds MaxBatchSize.
func (s *Source) GetMarkets(ctx context.Context, limit int, filter types.MarketFilter) ([]*types.Market, error) {
	if !s.connected.Load() {
		return nil, &types.VenueError{Venue: types.VenuePolymarket, Op: "fetch-markets", Err: venues.ErrNotConnected}
	}
	if limit <= 0 {
		limit = MaxBatchSize
	}

	var (
		markets []*types.Market
		fetched = 0
		offset  = 0
	)

	for fetched < limit {
		batch := min(limit-fetched, MaxBatchSize)

		page, err := s.fetchPage(ctx, batch, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}

		fetched += len(page)
		offset += len(page)

		for i := range page {
			m, ok := page[i].normalize()
			if !ok || !filter.Matches(m) {
				continue
			}
			markets = append(markets, m)
		}

		if len(page) < batch {
			s.logger.Debug("pagination-complete-no-more-data", zap.Int("total-fetched", fetched))
			break
		}
	}

	s.logger.Debug("fetched-markets",
		zap.Int("raw", fetched),
		zap.Int("normalized", len(markets)))

	return markets, nil
}

func (s *Source) fetchPage(ctx context.Context, limit int, offset int) ([]gammaMarket, error) {
	params := url.Values{}
	params.Add("closed", "false")
	params.Add("active", "true")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))
	params.Add("order", "volume24hr")
	params.Add("ascending", "false")

	// Gamma returns a bare array
	var page []gammaMarket
	err := s.client.GetJSON(ctx, "fetch-markets", "/markets", params, &page)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// gammaMarket mirrors the Gamma API market object. Outcomes and prices arrive
// as JSON-encoded string arrays.
type gammaMarket struct {
	ID            string              `json:"id"`
	ConditionID   string              `json:"conditionId"`
	Question      string              `json:"question"`
	Slug          string              `json:"slug"`
	Description   string              `json:"description"`
	Category      string              `json:"category"`
	Outcomes      string              `json:"outcomes"`
	OutcomePrices string              `json:"outcomePrices"`
	ClobTokenIDs  string              `json:"clobTokenIds"`
	Volume24hr    decimal.NullDecimal `json:"volume24hr"`
	Liquidity     decimal.NullDecimal `json:"liquidity"`
	BestBid       decimal.NullDecimal `json:"bestBid"`
	BestAsk       decimal.NullDecimal `json:"bestAsk"`
	EndDate       string              `json:"endDate"`
	Closed        bool                `json:"closed"`
}

// normalize converts the API object. Markets whose outcome names and prices
// do not line up keep no outcomes, so detectors skip them.
func (g *gammaMarket) normalize() (*types.Market, bool) {
	id := g.ConditionID
	if id == "" {
		id = g.ID
	}
	if id == "" {
		return nil, false
	}

	m := &types.Market{
		ID:          id,
		Venue:       types.VenuePolymarket,
		Name:        g.Question,
		Description: g.Description,
		Category:    g.Category,
		Liquidity:   g.Liquidity.Decimal,
		Volume24h:   g.Volume24hr.Decimal,
		EndDate:     venues.ParseTime(g.EndDate),
		Resolved:    g.Closed,
		URL:         "https://polymarket.com/event/" + g.Slug,
	}

	var names, prices, tokens []string
	if json.Unmarshal([]byte(g.Outcomes), &names) != nil || json.Unmarshal([]byte(g.OutcomePrices), &prices) != nil {
		return m, true
	}
	_ = json.Unmarshal([]byte(g.ClobTokenIDs), &tokens)

	if len(names) != len(prices) {
		return m, true
	}

	outcomes := make([]types.Outcome, 0, len(names))
	for i, name := range names {
		price, err := decimal.NewFromString(prices[i])
		if err != nil {
			return m, true
		}

		o := types.Outcome{ID: fmt.Sprintf("%s-%d", id, i), Name: name, Price: price}
		if i < len(tokens) {
			o.ID = tokens[i]
		}
		outcomes = append(outcomes, o)
	}

	// the market-level quote is for the first (YES) token
	if len(outcomes) > 0 {
		outcomes[0].BestBid = g.BestBid
		outcomes[0].BestAsk = g.BestAsk
	}

	m.Outcomes = outcomes
	return m, true
}
