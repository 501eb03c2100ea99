package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"go.uber.org/zap"
)

type fakeChannel struct {
	mu      sync.Mutex
	name    string
	panics  bool
	fail    bool
	batches [][]string
	singles []string
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, opp *arbitrage.Opportunity) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	f.singles = append(f.singles, opp.ID)
	return !f.fail
}

func (f *fakeChannel) SendBatch(_ context.Context, opps []*arbitrage.Opportunity) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	ids := make([]string, len(opps))
	for i, opp := range opps {
		ids[i] = opp.ID
	}
	f.batches = append(f.batches, ids)
	if f.fail {
		return 0
	}
	return len(opps)
}

func (f *fakeChannel) dispatched() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.singles)
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

type memorySeenStore struct {
	mu      sync.Mutex
	ids     map[string]bool
	seenErr error
	closed  bool
}

func newMemorySeenStore() *memorySeenStore {
	return &memorySeenStore{ids: make(map[string]bool)}
}

func (m *memorySeenStore) Seen(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seenErr != nil {
		return false, m.seenErr
	}
	return m.ids[id], nil
}

func (m *memorySeenStore) MarkSeen(_ context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.ids[id] = true
	}
	return nil
}

func (m *memorySeenStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = make(map[string]bool)
	return nil
}

func (m *memorySeenStore) Close() error {
	m.closed = true
	return nil
}

func newTestDispatcher(t *testing.T, seen SeenStore, channels ...Channel) *Dispatcher {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	d, err := NewDispatcher(DispatcherConfig{
		Channels: channels,
		Seen:     seen,
		Logger:   logger,
	})
	require.NoError(t, err)
	return d
}

func TestNewDispatcher_RequiresSeenStore(t *testing.T) {
	_, err := NewDispatcher(DispatcherConfig{})
	require.Error(t, err)
}

func TestDispatcher_NotifyBatchDedup(t *testing.T) {
	ch := &fakeChannel{name: "fake"}
	d := newTestDispatcher(t, newMemorySeenStore(), ch)
	ctx := context.Background()

	opps := []*arbitrage.Opportunity{
		arbitrage.CreateTestOpportunity("a", "0.05"),
		arbitrage.CreateTestOpportunity("b", "0.03"),
	}

	assert.Equal(t, 2, d.NotifyBatch(ctx, opps, 5))
	assert.Equal(t, 0, d.NotifyBatch(ctx, opps, 5))

	require.Len(t, ch.batches, 1)
	assert.Equal(t, []string{"a", "b"}, ch.batches[0])
}

func TestDispatcher_NotifyBatchFilters(t *testing.T) {
	tests := []struct {
		name      string
		opps      []*arbitrage.Opportunity
		maxAlerts int
		wantIDs   []string
	}{
		{
			name: "below-floor",
			opps: []*arbitrage.Opportunity{
				arbitrage.CreateTestOpportunity("low", "0.0099"),
				arbitrage.CreateTestOpportunity("floor", "0.01"),
			},
			maxAlerts: 5,
			wantIDs:   []string{"floor"},
		},
		{
			name: "truncated",
			opps: []*arbitrage.Opportunity{
				arbitrage.CreateTestOpportunity("1", "0.05"),
				arbitrage.CreateTestOpportunity("2", "0.04"),
				arbitrage.CreateTestOpportunity("3", "0.03"),
			},
			maxAlerts: 2,
			wantIDs:   []string{"1", "2"},
		},
		{
			name: "default-max",
			opps: []*arbitrage.Opportunity{
				arbitrage.CreateTestOpportunity("1", "0.05"),
				arbitrage.CreateTestOpportunity("2", "0.05"),
				arbitrage.CreateTestOpportunity("3", "0.05"),
				arbitrage.CreateTestOpportunity("4", "0.05"),
				arbitrage.CreateTestOpportunity("5", "0.05"),
				arbitrage.CreateTestOpportunity("6", "0.05"),
			},
			maxAlerts: 0,
			wantIDs:   []string{"1", "2", "3", "4", "5"},
		},
		{
			name: "duplicate-within-batch",
			opps: []*arbitrage.Opportunity{
				arbitrage.CreateTestOpportunity("x", "0.05"),
				arbitrage.CreateTestOpportunity("x", "0.05"),
				nil,
			},
			maxAlerts: 5,
			wantIDs:   []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{name: "fake"}
			d := newTestDispatcher(t, newMemorySeenStore(), ch)

			n := d.NotifyBatch(context.Background(), tt.opps, tt.maxAlerts)
			assert.Equal(t, len(tt.wantIDs), n)
			require.Len(t, ch.batches, 1)
			assert.Equal(t, tt.wantIDs, ch.batches[0])
		})
	}
}

func TestDispatcher_EmptyBatchSkipsChannels(t *testing.T) {
	ch := &fakeChannel{name: "fake"}
	d := newTestDispatcher(t, newMemorySeenStore(), ch)

	n := d.NotifyBatch(context.Background(), []*arbitrage.Opportunity{
		arbitrage.CreateTestOpportunity("low", "0.001"),
	}, 5)

	assert.Equal(t, 0, n)
	assert.Empty(t, ch.batches)
}

func TestDispatcher_ChannelFailureIsolated(t *testing.T) {
	panicking := &fakeChannel{name: "panics", panics: true}
	failing := &fakeChannel{name: "fails", fail: true}
	healthy := &fakeChannel{name: "healthy"}
	seen := newMemorySeenStore()
	d := newTestDispatcher(t, seen, panicking, failing, healthy)
	ctx := context.Background()

	opp := arbitrage.CreateTestOpportunity("a", "0.05")

	assert.Equal(t, 1, d.NotifyBatch(ctx, []*arbitrage.Opportunity{opp}, 5))
	assert.Equal(t, 1, healthy.dispatched())
	assert.Equal(t, 1, failing.dispatched())

	// marked seen regardless of channel outcome
	ok, err := seen.Seen(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDispatcher_SeenLookupErrorSkips(t *testing.T) {
	ch := &fakeChannel{name: "fake"}
	seen := newMemorySeenStore()
	seen.seenErr = errors.New("redis down")
	d := newTestDispatcher(t, seen, ch)

	n := d.NotifyBatch(context.Background(), []*arbitrage.Opportunity{
		arbitrage.CreateTestOpportunity("a", "0.05"),
	}, 5)

	assert.Equal(t, 0, n)
	assert.Empty(t, ch.batches)
}

func TestDispatcher_Notify(t *testing.T) {
	ch := &fakeChannel{name: "fake"}
	d := newTestDispatcher(t, newMemorySeenStore(), ch)
	ctx := context.Background()

	assert.False(t, d.Notify(ctx, arbitrage.CreateTestOpportunity("low", "0.005")))
	assert.True(t, d.Notify(ctx, arbitrage.CreateTestOpportunity("a", "0.02")))
	assert.False(t, d.Notify(ctx, arbitrage.CreateTestOpportunity("a", "0.02")))

	assert.Equal(t, []string{"a"}, ch.singles)

	// batch sees ids dispatched by Notify
	assert.Equal(t, 0, d.NotifyBatch(ctx, []*arbitrage.Opportunity{
		arbitrage.CreateTestOpportunity("a", "0.02"),
	}, 5))
}

func TestDispatcher_Clear(t *testing.T) {
	ch := &fakeChannel{name: "fake"}
	d := newTestDispatcher(t, newMemorySeenStore(), ch)
	ctx := context.Background()
	opps := []*arbitrage.Opportunity{arbitrage.CreateTestOpportunity("a", "0.05")}

	assert.Equal(t, 1, d.NotifyBatch(ctx, opps, 5))
	require.NoError(t, d.Clear(ctx))
	assert.Equal(t, 1, d.NotifyBatch(ctx, opps, 5))
	assert.Len(t, ch.batches, 2)
}

func TestDispatcher_ConcurrentBatchesDispatchOnce(t *testing.T) {
	ch := &fakeChannel{name: "fake"}
	d := newTestDispatcher(t, newMemorySeenStore(), ch)

	opps := []*arbitrage.Opportunity{
		arbitrage.CreateTestOpportunity("a", "0.05"),
		arbitrage.CreateTestOpportunity("b", "0.05"),
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.NotifyBatch(context.Background(), opps, 5)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, ch.dispatched())
}

func TestDispatcher_WithCacheSeenStore(t *testing.T) {
	ch := &fakeChannel{name: "fake"}
	d := newTestDispatcher(t, newTestCacheSeenStore(t), ch)
	ctx := context.Background()
	opps := []*arbitrage.Opportunity{arbitrage.CreateTestOpportunity("a", "0.05")}

	assert.Equal(t, 1, d.NotifyBatch(ctx, opps, 5))
	assert.Equal(t, 0, d.NotifyBatch(ctx, opps, 5))
}

func TestDispatcher_Close(t *testing.T) {
	seen := newMemorySeenStore()
	hub := NewBroadcastChannel(zap.NewNop())
	d := newTestDispatcher(t, seen, &fakeChannel{name: "fake"}, hub)

	require.NoError(t, d.Close())
	assert.True(t, seen.closed)
	assert.False(t, hub.Send(context.Background(), arbitrage.CreateTestOpportunity("a", "0.05")))
}
