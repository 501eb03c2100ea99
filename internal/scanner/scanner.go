// Package scanner drives detection cycles over a set of market sources.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultErrorBackoff is the pause after a failed cycle.
const DefaultErrorBackoff = 10 * time.Second

// DefaultMarketLimit is the per-source fetch limit when none is configured.
const DefaultMarketLimit = 100

// ErrNoSources is returned when a scanner has nothing to fetch from.
var ErrNoSources = errors.New("no market sources configured")

// MarketSource is a venue that serves normalized markets.
type MarketSource interface {
	Venue() types.Venue
	Connect(ctx context.Context) error
	GetMarkets(ctx context.Context, limit int, filter types.MarketFilter) ([]*types.Market, error)
	Disconnect() error
}

// Notifier receives the opportunities of each continuous cycle.
type Notifier interface {
	NotifyBatch(ctx context.Context, opps []*arbitrage.Opportunity, maxAlerts int) int
}

// Config holds scanner configuration.
type Config struct {
	Sources       []MarketSource
	Internal      *arbitrage.InternalDetector
	CrossPlatform *arbitrage.CrossPlatformDetector
	Hedging       *arbitrage.HedgingDetector // nil disables hedging
	Notifier      Notifier
	MarketLimit   int
	Filter        types.MarketFilter
	MaxAlerts     int
	ErrorBackoff  time.Duration
	OnCycle       func(start time.Time, err error) // optional, called after every continuous cycle
	Logger        *zap.Logger
}

// Result summarizes one completed cycle.
type Result struct {
	ScanID        string                   `json:"scan_id"`
	StartedAt     time.Time                `json:"started_at"`
	Duration      time.Duration            `json:"duration"`
	Markets       map[types.Venue]int      `json:"markets"`
	Opportunities []*arbitrage.Opportunity `json:"opportunities"`
}

// Scanner owns source connections and runs the detectors over their markets.
type Scanner struct {
	sources       []MarketSource
	internal      *arbitrage.InternalDetector
	crossPlatform *arbitrage.CrossPlatformDetector
	hedging       *arbitrage.HedgingDetector
	notifier      Notifier
	marketLimit   int
	filter        types.MarketFilter
	maxAlerts     int
	errorBackoff  time.Duration
	onCycle       func(time.Time, error)
	logger        *zap.Logger

	mu     sync.RWMutex
	latest *Result
}

// New creates a scanner. Missing internal and cross-platform detectors are
// built with zero thresholds.
func New(cfg *Config) (*Scanner, error) {
	if len(cfg.Sources) == 0 {
		return nil, ErrNoSources
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	internal := cfg.Internal
	if internal == nil {
		internal = arbitrage.NewInternalDetector(arbitrage.InternalConfig{Logger: logger})
	}
	crossPlatform := cfg.CrossPlatform
	if crossPlatform == nil {
		crossPlatform = arbitrage.NewCrossPlatformDetector(arbitrage.CrossPlatformConfig{Logger: logger})
	}

	limit := cfg.MarketLimit
	if limit <= 0 {
		limit = DefaultMarketLimit
	}
	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = DefaultErrorBackoff
	}

	return &Scanner{
		sources:       cfg.Sources,
		internal:      internal,
		crossPlatform: crossPlatform,
		hedging:       cfg.Hedging,
		notifier:      cfg.Notifier,
		marketLimit:   limit,
		filter:        cfg.Filter,
		maxAlerts:     cfg.MaxAlerts,
		errorBackoff:  backoff,
		onCycle:       cfg.OnCycle,
		logger:        logger,
	}, nil
}

// Connect connects every source. On failure the sources connected so far are
// disconnected again.
func (s *Scanner) Connect(ctx context.Context) error {
	for i, src := range s.sources {
		err := src.Connect(ctx)
		if err != nil {
			for _, prev := range s.sources[:i] {
				_ = prev.Disconnect()
			}
			return fmt.Errorf("connect %s: %w", src.Venue(), err)
		}

		s.logger.Info("market-source-connected", zap.String("venue", src.Venue().String()))
	}
	return nil
}

// Close disconnects every source.
func (s *Scanner) Close() error {
	var errs []error
	for _, src := range s.sources {
		err := src.Disconnect()
		if err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", src.Venue(), err))
		}
	}
	return errors.Join(errs...)
}

// Latest returns the result of the last successful cycle, or nil.
func (s *Scanner) Latest() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// ScanOnce fetches markets from every source and runs all detectors. Any
// source or oracle failure fails the whole cycle. The returned list holds
// internal results per venue, then cross-platform, then hedging, each
// sorted by its own detector.
func (s *Scanner) ScanOnce(ctx context.Context) ([]*arbitrage.Opportunity, error) {
	start := time.Now()
	scanID := uuid.NewString()
	logger := s.logger.With(zap.String("scan-id", scanID))

	marketsByVenue, err := s.fetchAll(ctx)
	if err != nil {
		CyclesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	var internalOpps, crossOpps, hedgingOpps []*arbitrage.Opportunity
	venues := sortedVenues(marketsByVenue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, v := range venues {
			internalOpps = append(internalOpps, s.internal.Scan(marketsByVenue[v])...)
		}
		return nil
	})
	g.Go(func() error {
		crossOpps = s.crossPlatform.Scan(marketsByVenue)
		return nil
	})
	if s.hedging != nil {
		g.Go(func() error {
			var all []*types.Market
			for _, v := range venues {
				all = append(all, marketsByVenue[v]...)
			}

			opps, err := s.hedging.Scan(gctx, all)
			if err != nil {
				return fmt.Errorf("hedging scan: %w", err)
			}
			hedgingOpps = opps
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		CyclesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	opps := make([]*arbitrage.Opportunity, 0, len(internalOpps)+len(crossOpps)+len(hedgingOpps))
	opps = append(opps, internalOpps...)
	opps = append(opps, crossOpps...)
	opps = append(opps, hedgingOpps...)

	counts := make(map[types.Venue]int, len(marketsByVenue))
	for v, markets := range marketsByVenue {
		counts[v] = len(markets)
	}

	duration := time.Since(start)
	CyclesTotal.WithLabelValues("ok").Inc()
	CycleDurationSeconds.Observe(duration.Seconds())

	s.mu.Lock()
	s.latest = &Result{
		ScanID:        scanID,
		StartedAt:     start,
		Duration:      duration,
		Markets:       counts,
		Opportunities: opps,
	}
	s.mu.Unlock()

	logger.Info("scan-cycle-complete",
		zap.Any("markets", counts),
		zap.Int("internal", len(internalOpps)),
		zap.Int("cross-platform", len(crossOpps)),
		zap.Int("hedging", len(hedgingOpps)),
		zap.Duration("duration", duration))

	return opps, nil
}

func (s *Scanner) fetchAll(ctx context.Context) (map[types.Venue][]*types.Market, error) {
	results := make([][]*types.Market, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			markets, err := src.GetMarkets(gctx, s.marketLimit, s.filter)
			if err != nil {
				FetchFailuresTotal.WithLabelValues(src.Venue().String()).Inc()
				return fmt.Errorf("fetch markets from %s: %w", src.Venue(), err)
			}
			MarketsFetched.WithLabelValues(src.Venue().String()).Set(float64(len(markets)))
			results[i] = markets
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	// Two sources for the same venue share one bucket.
	marketsByVenue := make(map[types.Venue][]*types.Market, len(s.sources))
	for i, src := range s.sources {
		marketsByVenue[src.Venue()] = append(marketsByVenue[src.Venue()], results[i]...)
	}
	return marketsByVenue, nil
}

// RunContinuous scans, dispatches and sleeps for interval until ctx is done.
// A failed cycle is logged and followed by the error backoff. Cancellation
// is observed only between cycles; a running cycle always completes.
func (s *Scanner) RunContinuous(ctx context.Context, interval time.Duration) error {
	s.logger.Info("continuous-scan-starting",
		zap.Duration("interval", interval),
		zap.Duration("error-backoff", s.errorBackoff),
		zap.Int("sources", len(s.sources)))

	for {
		if ctx.Err() != nil {
			s.logger.Info("continuous-scan-stopping")
			return nil
		}

		wait := interval
		cycleCtx := context.WithoutCancel(ctx)
		start := time.Now()

		opps, err := s.ScanOnce(cycleCtx)
		if err != nil {
			s.logger.Error("scan-cycle-failed",
				zap.Error(err),
				zap.Duration("backoff", s.errorBackoff))
			wait = s.errorBackoff
		} else if s.notifier != nil {
			s.notifier.NotifyBatch(cycleCtx, opps, s.maxAlerts)
		}
		if s.onCycle != nil {
			s.onCycle(start, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("continuous-scan-stopping")
			return nil
		case <-timer.C:
		}
	}
}

func sortedVenues(marketsByVenue map[types.Venue][]*types.Market) []types.Venue {
	venues := make([]types.Venue, 0, len(marketsByVenue))
	for v := range marketsByVenue {
		venues = append(venues, v)
	}
	slices.Sort(venues)
	return venues
}
