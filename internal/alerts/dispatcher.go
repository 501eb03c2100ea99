package alerts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"go.uber.org/zap"
)

// DefaultMaxAlerts bounds how many opportunities one batch dispatches.
const DefaultMaxAlerts = 5

// DefaultMinProfit is the global alert floor (1%).
var DefaultMinProfit = decimal.RequireFromString("0.01")

// DispatcherConfig holds dispatcher configuration.
type DispatcherConfig struct {
	Channels  []Channel
	Seen      SeenStore
	MaxAlerts int
	Logger    *zap.Logger
}

// Dispatcher fans opportunities out to channels at most once per id. All
// calls are serialized so overlapping batches never double-dispatch.
type Dispatcher struct {
	mu        sync.Mutex
	channels  []Channel
	seen      SeenStore
	maxAlerts int
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher. A SeenStore is required.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Seen == nil {
		return nil, errors.New("seen store is required")
	}

	maxAlerts := cfg.MaxAlerts
	if maxAlerts <= 0 {
		maxAlerts = DefaultMaxAlerts
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		channels:  cfg.Channels,
		seen:      cfg.Seen,
		maxAlerts: maxAlerts,
		logger:    logger,
	}, nil
}

// NotifyBatch dispatches the unseen opportunities at or above the alert
// floor, truncated to maxAlerts (the configured default when <= 0). It
// returns how many opportunities were dispatched.
func (d *Dispatcher) NotifyBatch(ctx context.Context, opps []*arbitrage.Opportunity, maxAlerts int) int {
	if maxAlerts <= 0 {
		maxAlerts = d.maxAlerts
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	batch := d.filter(ctx, opps, maxAlerts)
	if len(batch) == 0 {
		return 0
	}

	for _, ch := range d.channels {
		sent := d.sendBatch(ctx, ch, batch)
		d.logger.Debug("alert-batch-sent",
			zap.String("channel", ch.Name()),
			zap.Int("sent", sent),
			zap.Int("batch-size", len(batch)))
	}

	d.markSeen(ctx, batch)
	AlertsDispatchedTotal.Add(float64(len(batch)))

	return len(batch)
}

// Notify dispatches a single opportunity through Send on every channel. It
// reports whether the opportunity passed the floor and dedup checks.
func (d *Dispatcher) Notify(ctx context.Context, opp *arbitrage.Opportunity) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.filter(ctx, []*arbitrage.Opportunity{opp}, 1)) == 0 {
		return false
	}

	for _, ch := range d.channels {
		d.send(ctx, ch, opp)
	}

	d.markSeen(ctx, []*arbitrage.Opportunity{opp})
	AlertsDispatchedTotal.Inc()

	return true
}

// Clear forgets every dispatched id.
func (d *Dispatcher) Clear(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.seen.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clear seen store: %w", err)
	}

	d.logger.Info("alert-dedup-cleared")
	return nil
}

// Close releases the seen store and any channel that holds resources.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, ch := range d.channels {
		if c, ok := ch.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	errs = append(errs, d.seen.Close())
	return errors.Join(errs...)
}

func (d *Dispatcher) filter(ctx context.Context, opps []*arbitrage.Opportunity, maxAlerts int) []*arbitrage.Opportunity {
	batch := make([]*arbitrage.Opportunity, 0, maxAlerts)
	inBatch := make(map[string]struct{}, maxAlerts)

	for _, opp := range opps {
		if len(batch) == maxAlerts {
			break
		}
		if opp == nil || opp.ProfitPercentage.LessThan(DefaultMinProfit) {
			continue
		}
		if _, dup := inBatch[opp.ID]; dup {
			continue
		}

		seen, err := d.seen.Seen(ctx, opp.ID)
		if err != nil {
			d.logger.Error("alert-dedup-lookup-failed",
				zap.String("opportunity-id", opp.ID),
				zap.Error(err))
			continue
		}
		if seen {
			AlertsSuppressedTotal.Inc()
			continue
		}

		inBatch[opp.ID] = struct{}{}
		batch = append(batch, opp)
	}

	return batch
}

func (d *Dispatcher) markSeen(ctx context.Context, batch []*arbitrage.Opportunity) {
	ids := make([]string, len(batch))
	for i, opp := range batch {
		ids[i] = opp.ID
	}

	err := d.seen.MarkSeen(ctx, ids...)
	if err != nil {
		d.logger.Error("alert-dedup-mark-failed",
			zap.Strings("opportunity-ids", ids),
			zap.Error(err))
	}
}

func (d *Dispatcher) sendBatch(ctx context.Context, ch Channel, batch []*arbitrage.Opportunity) (sent int) {
	defer func() {
		if r := recover(); r != nil {
			d.channelFailed(ch, fmt.Errorf("panic: %v", r))
			sent = 0
		}
	}()

	sent = ch.SendBatch(ctx, batch)
	if sent < len(batch) {
		ChannelFailuresTotal.WithLabelValues(ch.Name()).Add(float64(len(batch) - sent))
	}
	ChannelSentTotal.WithLabelValues(ch.Name()).Add(float64(sent))
	return sent
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, opp *arbitrage.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			d.channelFailed(ch, fmt.Errorf("panic: %v", r))
		}
	}()

	if ch.Send(ctx, opp) {
		ChannelSentTotal.WithLabelValues(ch.Name()).Inc()
		return
	}
	ChannelFailuresTotal.WithLabelValues(ch.Name()).Inc()
}

func (d *Dispatcher) channelFailed(ch Channel, err error) {
	ChannelFailuresTotal.WithLabelValues(ch.Name()).Inc()
	d.logger.Error("alert-channel-failed",
		zap.String("channel", ch.Name()),
		zap.Error(err))
}
