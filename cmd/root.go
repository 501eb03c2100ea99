package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "aubit-poly",
	Short: "Prediction market arbitrage scanner",
	Long: `Scans prediction markets for arbitrage and alerts on what it finds.

Three strategies run over every scan:
  internal        YES + NO on one market costs less than $1
  cross-platform  YES on one venue plus NO on another for the same event
  hedging         prediction price vs. the probability implied by options

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
