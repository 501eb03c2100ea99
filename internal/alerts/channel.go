// Package alerts delivers arbitrage opportunities to notification channels
// with at-most-once semantics per opportunity id.
package alerts

import (
	"context"

	"github.com/xbklairith/aubit-poly/internal/arbitrage"
)

// Channel is a notification sink. Implementations report transport failures
// through their return values and logs, never by panicking.
type Channel interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// Send delivers a single opportunity and reports whether it was accepted.
	Send(ctx context.Context, opp *arbitrage.Opportunity) bool

	// SendBatch delivers a batch and returns how many opportunities were sent.
	SendBatch(ctx context.Context, opps []*arbitrage.Opportunity) int
}

// instructionPreview returns at most n instructions.
func instructionPreview(opp *arbitrage.Opportunity, n int) []string {
	if len(opp.Instructions) <= n {
		return opp.Instructions
	}
	return opp.Instructions[:n]
}

// kindTitle renders a kind as "Cross Platform".
func kindTitle(k arbitrage.Kind) string {
	switch k {
	case arbitrage.KindInternal:
		return "Internal"
	case arbitrage.KindCrossPlatform:
		return "Cross Platform"
	case arbitrage.KindHedging:
		return "Hedging"
	default:
		return string(k)
	}
}
