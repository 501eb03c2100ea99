package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/xbklairith/aubit-poly/internal/app"
	"github.com/xbklairith/aubit-poly/pkg/config"
	"go.uber.org/zap"
)

const banner = `
╔═══════════════════════════════════════════════════════╗
║                                                       ║
║                      AUBIT-POLY                       ║
║         Prediction Market Arbitrage Detection         ║
║                                                       ║
╚═══════════════════════════════════════════════════════╝
`

// loadEnvironment reads .env if present, then the config and logger.
func loadEnvironment() (*config.Config, *zap.Logger, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}

func printThresholds(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Minimum profit thresholds:")
	fmt.Fprintf(w, "  - Internal:       %s%%\n", cfg.MinInternalProfit.Mul(hundred).StringFixed(2))
	fmt.Fprintf(w, "  - Cross-platform: %s%%\n", cfg.MinCrossPlatformProfit.Mul(hundred).StringFixed(2))
	fmt.Fprintf(w, "  - Hedging:        %s%%\n", cfg.MinHedgingProfit.Mul(hundred).StringFixed(2))
	fmt.Fprintln(w)
}

func printReport(w io.Writer, report *app.Report) {
	if len(report.Opportunities) == 0 {
		fmt.Fprintln(w, "\nNo arbitrage opportunities found at this time.")
		fmt.Fprintln(w, "This is normal - opportunities are rare and short-lived.")
		return
	}

	rule := "============================================================"
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "Found %d arbitrage opportunities!\n", len(report.Opportunities))
	fmt.Fprintf(w, "%s\n\n", rule)

	for _, o := range report.Opportunities {
		fmt.Fprintln(w, o.String())
	}
	fmt.Fprintf(w, "\nAlerts sent: %d\n", report.Alerted)
}
