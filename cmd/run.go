package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xbklairith/aubit-poly/internal/app"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan continuously and send alerts",
	Long: `Starts the scanner, which will:
1. Fetch markets from every source in MARKET_SOURCES
2. Run the internal, cross-platform and hedging detectors
3. Alert once per opportunity on the configured channels
4. Sleep SCAN_INTERVAL and repeat (SCAN_ERROR_BACKOFF after a failed scan)

Metrics, health checks, the latest results and a live alert feed are served
over HTTP unless HTTP_ENABLED=false.`,
	RunE: runScanner,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runScanner(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	fmt.Fprint(os.Stdout, banner)
	fmt.Fprintln(os.Stdout, "Starting continuous scanning...")
	fmt.Fprintf(os.Stdout, "Scan interval: %s\n", cfg.ScanInterval)
	fmt.Fprintf(os.Stdout, "Press Ctrl+C to stop\n\n")

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
