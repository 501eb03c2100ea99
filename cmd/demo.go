package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xbklairith/aubit-poly/internal/app"
)

//nolint:gochecknoglobals // Cobra boilerplate
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run one scan over simulated markets",
	Long: `Runs the full detection and alert pipeline against two simulated
crypto markets and a static options oracle. Alerts go to the console only
and no network access is needed.`,
	RunE: runDemo,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	fmt.Fprint(os.Stdout, banner)
	fmt.Fprintf(os.Stdout, "Running in DEMO MODE (simulated data)\n\n")

	application, err := app.New(cfg, logger, &app.Options{Demo: true, Out: os.Stdout})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := application.ScanOnce(ctx, true)
	if err != nil {
		return fmt.Errorf("demo scan: %w", err)
	}

	if len(report.Opportunities) == 0 {
		fmt.Fprintln(os.Stdout, "Demo: No opportunities in simulated data")
		return nil
	}

	fmt.Fprintf(os.Stdout, "Demo: Found %d simulated opportunities\n", len(report.Opportunities))
	return nil
}
