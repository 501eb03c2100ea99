package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/xbklairith/aubit-poly/internal/app"
)

//nolint:gochecknoglobals // percent conversion
var hundred = decimal.NewFromInt(100)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan",
	Long: `Connects to every configured source, runs one scan, alerts on new
opportunities and exits. Use --json for machine-readable output.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("json", false, "Print the scan report as JSON")
	scanCmd.Flags().Bool("no-alerts", false, "Do not send alerts")
	scanCmd.Flags().Duration("timeout", 2*time.Minute, "Maximum scan duration")
}

func runScan(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	noAlerts, _ := cmd.Flags().GetBool("no-alerts")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// JSON output owns stdout, so console alerts are off.
	if asJSON {
		cfg.ConsoleAlerts = false
	}
	cfg.HTTPEnabled = false

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	application, err := app.New(cfg, logger, &app.Options{NoAlerts: noAlerts})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	if !asJSON {
		fmt.Fprint(os.Stdout, banner)
		fmt.Fprintf(os.Stdout, "Starting single scan at %s\n", time.Now().UTC().Format(time.RFC3339))
		printThresholds(os.Stdout, cfg)
	}

	report, err := application.ScanOnce(ctx, true)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(os.Stdout, report)
	return nil
}
