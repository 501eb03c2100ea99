// Package pgsource reads markets and their latest order book snapshot from the
// collector's PostgreSQL tables.
package pgsource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/internal/venues"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

const marketsQuery = `
	SELECT
		m.condition_id,
		m.name,
		m.market_type,
		m.yes_token_id,
		m.no_token_id,
		m.end_time,
		s.yes_best_ask,
		s.yes_best_bid,
		s.no_best_ask,
		s.no_best_bid
	FROM markets m
	LEFT JOIN LATERAL (
		SELECT yes_best_ask, yes_best_bid, no_best_ask, no_best_bid
		FROM orderbook_snapshots
		WHERE market_id = m.id
		ORDER BY captured_at DESC
		LIMIT 1
	) s ON true
	WHERE m.is_active = true
	ORDER BY m.end_time ASC
	LIMIT $1
`

// Config holds PostgreSQL configuration.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	// Venue is the venue the collector tables describe.
	Venue  types.Venue
	Logger *zap.Logger
}

// Source is a market source backed by PostgreSQL.
type Source struct {
	cfg    Config
	db     *sql.DB
	venue  types.Venue
	logger *zap.Logger
}

// New creates a PostgreSQL source. The connection is opened by Connect.
func New(cfg Config) *Source {
	venue := cfg.Venue
	if venue == "" {
		venue = types.VenuePolymarket
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{cfg: cfg, venue: venue, logger: logger}
}

// NewWithDB wraps an existing handle, e.g. a sqlmock connection.
func NewWithDB(db *sql.DB, venue types.Venue, logger *zap.Logger) *Source {
	s := New(Config{Venue: venue, Logger: logger})
	s.db = db
	return s
}

// Venue implements scanner.MarketSource.
func (s *Source) Venue() types.Venue { return s.venue }

// Connect opens and pings the database.
func (s *Source) Connect(ctx context.Context) error {
	if s.db == nil {
		connStr := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password, s.cfg.Database, s.cfg.SSLMode,
		)

		db, err := sql.Open("postgres", connStr)
		if err != nil {
			return s.fail("connect", fmt.Errorf("open database: %w", err))
		}
		s.db = db
	}

	err := s.db.PingContext(ctx)
	if err != nil {
		return s.fail("connect", fmt.Errorf("ping database: %w", err))
	}

	s.logger.Info("postgres-source-connected",
		zap.String("host", s.cfg.Host),
		zap.String("database", s.cfg.Database),
		zap.String("venue", string(s.venue)))

	return nil
}

// Disconnect closes the database handle.
func (s *Source) Disconnect() error {
	if s.db == nil {
		return nil
	}
	s.logger.Info("closing-postgres-source")
	err := s.db.Close()
	s.db = nil
	return err
}

// GetMarkets returns active markets soonest-expiring first, priced from the
// latest snapshot's best asks.
func (s *Source) GetMarkets(ctx context.Context, limit int, filter types.MarketFilter) ([]*types.Market, error) {
	if s.db == nil {
		return nil, s.fail("fetch-markets", venues.ErrNotConnected)
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, marketsQuery, limit)
	if err != nil {
		return nil, s.fail("fetch-markets", fmt.Errorf("query markets: %w", err))
	}
	defer rows.Close()

	var markets []*types.Market
	for rows.Next() {
		var (
			r       row
			endTime sql.NullTime
		)
		err = rows.Scan(
			&r.conditionID, &r.name, &r.marketType, &r.yesTokenID, &r.noTokenID, &endTime,
			&r.yesAsk, &r.yesBid, &r.noAsk, &r.noBid,
		)
		if err != nil {
			return nil, s.fail("fetch-markets", fmt.Errorf("scan market: %w", err))
		}
		if endTime.Valid {
			t := endTime.Time.UTC()
			r.endTime = &t
		}

		m := r.normalize(s.venue)
		if filter.Matches(m) {
			markets = append(markets, m)
		}
	}

	err = rows.Err()
	if err != nil {
		return nil, s.fail("fetch-markets", fmt.Errorf("iterate markets: %w", err))
	}

	s.logger.Debug("fetched-markets", zap.Int("count", len(markets)))
	return markets, nil
}

func (s *Source) fail(op string, err error) error {
	return &types.VenueError{Venue: s.venue, Op: op, Err: err}
}

type row struct {
	conditionID string
	name        string
	marketType  sql.NullString
	yesTokenID  sql.NullString
	noTokenID   sql.NullString
	endTime     *time.Time
	yesAsk      decimal.NullDecimal
	yesBid      decimal.NullDecimal
	noAsk       decimal.NullDecimal
	noBid       decimal.NullDecimal
}

// normalize builds a market. Markets without both best asks get no outcomes.
func (r *row) normalize(venue types.Venue) *types.Market {
	m := &types.Market{
		ID:       r.conditionID,
		Venue:    venue,
		Name:     r.name,
		Category: r.marketType.String,
		EndDate:  r.endTime,
	}

	if !r.yesAsk.Valid || !r.noAsk.Valid {
		return m
	}

	m.Outcomes = []types.Outcome{
		{ID: r.yesTokenID.String, Name: "Yes", Price: r.yesAsk.Decimal, BestAsk: r.yesAsk, BestBid: r.yesBid},
		{ID: r.noTokenID.String, Name: "No", Price: r.noAsk.Decimal, BestAsk: r.noAsk, BestBid: r.noBid},
	}
	return m
}
