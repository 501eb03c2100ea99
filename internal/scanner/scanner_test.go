package scanner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

type fakeSource struct {
	venue      types.Venue
	markets    []*types.Market
	connectErr error

	mu           sync.Mutex
	fetchErrs    []error // consumed one per fetch
	fetches      int
	connected    bool
	disconnected bool
	lastLimit    int
}

func (f *fakeSource) Venue() types.Venue { return f.venue }

func (f *fakeSource) Connect(_ context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeSource) GetMarkets(_ context.Context, limit int, _ types.MarketFilter) ([]*types.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	f.lastLimit = limit
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.markets, nil
}

func (f *fakeSource) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	return nil
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type fakeOracle struct {
	prob decimal.Decimal
	err  error
}

func (o *fakeOracle) ImpliedProbability(_ context.Context, _ string, _ decimal.Decimal, _ string) (decimal.Decimal, bool, error) {
	if o.err != nil {
		return decimal.Zero, false, o.err
	}
	return o.prob, true, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	batches [][]*arbitrage.Opportunity
	max     int
}

func (n *fakeNotifier) NotifyBatch(_ context.Context, opps []*arbitrage.Opportunity, maxAlerts int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, opps)
	n.max = maxAlerts
	return len(opps)
}

func (n *fakeNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.batches)
}

func twoVenueSources() (*fakeSource, *fakeSource) {
	poly := &fakeSource{
		venue:   types.VenuePolymarket,
		markets: []*types.Market{arbitrage.CreateTestMarket(types.VenuePolymarket, "pm-1", "Will BTC hit $100k?", "0.45", "0.50")},
	}
	kalshi := &fakeSource{
		venue:   types.VenueKalshi,
		markets: []*types.Market{arbitrage.CreateTestMarket(types.VenueKalshi, "KX-1", "Will BTC hit $100k?", "0.50", "0.52")},
	}
	return poly, kalshi
}

func newTestScanner(t *testing.T, cfg *Config) *Scanner {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	cfg.Logger = logger
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func countKinds(opps []*arbitrage.Opportunity) map[arbitrage.Kind]int {
	counts := make(map[arbitrage.Kind]int)
	for _, o := range opps {
		counts[o.Kind]++
	}
	return counts
}

func TestNew_NoSources(t *testing.T) {
	_, err := New(&Config{})
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestScanner_ScanOnce(t *testing.T) {
	poly, kalshi := twoVenueSources()
	s := newTestScanner(t, &Config{
		Sources: []MarketSource{poly, kalshi},
		Hedging: arbitrage.NewHedgingDetector(arbitrage.HedgingConfig{
			Oracle: &fakeOracle{prob: decimal.RequireFromString("0.60")},
		}),
	})

	require.NoError(t, s.Connect(context.Background()))

	opps, err := s.ScanOnce(context.Background())
	require.NoError(t, err)

	kinds := countKinds(opps)
	assert.Equal(t, 2, kinds[arbitrage.KindInternal])
	assert.Equal(t, 1, kinds[arbitrage.KindCrossPlatform])
	assert.Equal(t, 2, kinds[arbitrage.KindHedging])

	// internal first, then cross-platform, then hedging
	assert.Equal(t, arbitrage.KindInternal, opps[0].Kind)
	assert.Equal(t, arbitrage.KindCrossPlatform, opps[2].Kind)
	assert.Equal(t, arbitrage.KindHedging, opps[4].Kind)
	assert.Equal(t, "cross_platform:yes=polymarket:pm-1:no=kalshi:KX-1", opps[2].ID)

	latest := s.Latest()
	require.NotNil(t, latest)
	assert.NotEmpty(t, latest.ScanID)
	assert.Equal(t, 1, latest.Markets[types.VenuePolymarket])
	assert.Equal(t, 1, latest.Markets[types.VenueKalshi])
	assert.Len(t, latest.Opportunities, 5)
	assert.Equal(t, DefaultMarketLimit, poly.lastLimit)

	require.NoError(t, s.Close())
	assert.True(t, poly.disconnected)
	assert.True(t, kalshi.disconnected)
}

func TestScanner_ScanOnceThresholds(t *testing.T) {
	poly, kalshi := twoVenueSources()
	s := newTestScanner(t, &Config{
		Sources:     []MarketSource{poly, kalshi},
		MarketLimit: 25,
		Internal: arbitrage.NewInternalDetector(arbitrage.InternalConfig{
			MinProfit: decimal.RequireFromString("0.03"),
		}),
		CrossPlatform: arbitrage.NewCrossPlatformDetector(arbitrage.CrossPlatformConfig{
			MinProfit: decimal.RequireFromString("0.05"),
		}),
	})

	opps, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, "internal:polymarket:pm-1", opps[0].ID)
	assert.Equal(t, 25, kalshi.lastLimit)
}

func TestScanner_ScanOnceFetchFailure(t *testing.T) {
	poly, kalshi := twoVenueSources()
	boom := errors.New("gateway timeout")
	kalshi.fetchErrs = []error{boom}

	s := newTestScanner(t, &Config{Sources: []MarketSource{poly, kalshi}})

	_, err := s.ScanOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, s.Latest())
}

func TestScanner_ScanOnceOracleFailure(t *testing.T) {
	poly, kalshi := twoVenueSources()
	boom := errors.New("oracle down")

	s := newTestScanner(t, &Config{
		Sources: []MarketSource{poly, kalshi},
		Hedging: arbitrage.NewHedgingDetector(arbitrage.HedgingConfig{Oracle: &fakeOracle{err: boom}}),
	})

	_, err := s.ScanOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestScanner_SameVenueSourcesShareBucket(t *testing.T) {
	a := &fakeSource{
		venue:   types.VenuePolymarket,
		markets: []*types.Market{arbitrage.CreateTestMarket(types.VenuePolymarket, "a", "A", "0.45", "0.50")},
	}
	b := &fakeSource{
		venue:   types.VenuePolymarket,
		markets: []*types.Market{arbitrage.CreateTestMarket(types.VenuePolymarket, "b", "B", "0.40", "0.50")},
	}

	s := newTestScanner(t, &Config{Sources: []MarketSource{a, b}})
	opps, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, "internal:polymarket:b", opps[0].ID)
	assert.Equal(t, 2, s.Latest().Markets[types.VenuePolymarket])
}

func TestScanner_ConnectFailureDisconnectsPrevious(t *testing.T) {
	poly, kalshi := twoVenueSources()
	kalshi.connectErr = errors.New("unauthorized")

	s := newTestScanner(t, &Config{Sources: []MarketSource{poly, kalshi}})

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, kalshi.connectErr)
	assert.True(t, poly.disconnected)
}

func TestScanner_RunContinuous(t *testing.T) {
	poly, kalshi := twoVenueSources()
	notifier := &fakeNotifier{}

	s := newTestScanner(t, &Config{
		Sources:   []MarketSource{poly, kalshi},
		Notifier:  notifier,
		MaxAlerts: 3,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunContinuous(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return notifier.calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, 3, notifier.max)
	assert.Len(t, notifier.batches[0], 3)
}

func TestScanner_RunContinuousBacksOffOnFailure(t *testing.T) {
	poly, kalshi := twoVenueSources()
	kalshi.fetchErrs = []error{errors.New("flaky"), errors.New("flaky")}
	notifier := &fakeNotifier{}

	s := newTestScanner(t, &Config{
		Sources:      []MarketSource{poly, kalshi},
		Notifier:     notifier,
		ErrorBackoff: 20 * time.Millisecond,
	})

	var failures, successes atomic.Int32
	s.onCycle = func(_ time.Time, err error) {
		if err != nil {
			failures.Add(1)
			return
		}
		successes.Add(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stopped atomic.Bool
	go func() {
		_ = s.RunContinuous(ctx, time.Hour)
		stopped.Store(true)
	}()

	// two failed cycles, then a good one that dispatches
	require.Eventually(t, func() bool { return successes.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, notifier.calls())
	assert.Equal(t, 3, kalshi.fetchCount())
	assert.Equal(t, int32(2), failures.Load())
	assert.Equal(t, int32(1), successes.Load())
	assert.False(t, stopped.Load())

	cancel()
	require.Eventually(t, stopped.Load, 2*time.Second, 5*time.Millisecond)
}

func TestScanner_RunContinuousAlreadyCancelled(t *testing.T) {
	poly, kalshi := twoVenueSources()
	s := newTestScanner(t, &Config{Sources: []MarketSource{poly, kalshi}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.RunContinuous(ctx, time.Millisecond))
	assert.Zero(t, poly.fetchCount())
}
