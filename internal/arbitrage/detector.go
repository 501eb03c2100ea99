// Package arbitrage detects mispricings across normalized binary markets.
//
// Three strategies run independently over the same fetched market set:
// internal (YES + NO < 1 on one market), cross-platform (YES on one venue plus
// NO on another for the same event) and hedging (prediction price vs. an
// options-implied probability). None of them holds state between scans.
package arbitrage

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // decimal constants
var (
	one           = decimal.NewFromInt(1)
	minConfidence = decimal.RequireFromString("0.1")
)

func clampConfidence(c decimal.Decimal) decimal.Decimal {
	if c.LessThan(minConfidence) {
		return minConfidence
	}
	if c.GreaterThan(one) {
		return one
	}
	return c
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func observeDuration(kind Kind, start time.Time) {
	DetectionDurationSeconds.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}
