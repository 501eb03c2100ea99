package alerts

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"go.uber.org/zap"
)

const consoleRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleChannel pretty-prints opportunities to a writer.
type ConsoleChannel struct {
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleChannel creates a console channel. A nil writer means stdout.
func NewConsoleChannel(out io.Writer, logger *zap.Logger) *ConsoleChannel {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleChannel{out: out, logger: logger}
}

// Name implements Channel.
func (c *ConsoleChannel) Name() string { return "console" }

// Send prints one opportunity block.
func (c *ConsoleChannel) Send(_ context.Context, opp *arbitrage.Opportunity) bool {
	var b strings.Builder
	b.WriteString("\n" + consoleRule + "\n")
	b.WriteString("🎯 ARBITRAGE OPPORTUNITY DETECTED\n")
	b.WriteString(consoleRule + "\n")
	fmt.Fprintf(&b, "Type:       %s\n", strings.ToUpper(string(opp.Kind)))
	fmt.Fprintf(&b, "Profit:     %s\n", arbitrage.FormatPercent(opp.ProfitPercentage, 2))
	fmt.Fprintf(&b, "Confidence: %s\n", arbitrage.FormatPercent(opp.Confidence, 0))
	fmt.Fprintf(&b, "Detected:   %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "%s\n", opp.Description)
	b.WriteString(consoleRule + "\n")
	b.WriteString("📋 INSTRUCTIONS\n")
	for _, line := range opp.Instructions {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	b.WriteString(consoleRule + "\n")

	_, err := io.WriteString(c.out, b.String())
	if err != nil {
		c.logger.Error("console-write-failed",
			zap.String("opportunity-id", opp.ID),
			zap.Error(err))
		return false
	}
	return true
}

// SendBatch prints every opportunity.
func (c *ConsoleChannel) SendBatch(ctx context.Context, opps []*arbitrage.Opportunity) int {
	sent := 0
	for _, opp := range opps {
		if c.Send(ctx, opp) {
			sent++
		}
	}
	return sent
}
