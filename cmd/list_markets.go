package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xbklairith/aubit-poly/internal/app"
	"github.com/xbklairith/aubit-poly/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listMarketsCmd = &cobra.Command{
	Use:   "list-markets",
	Short: "List normalized markets from one source",
	Long: `Fetches and displays normalized markets from one source. Useful for
finding the market ids to put in the event mapping file.`,
	RunE: runListMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listMarketsCmd)
	listMarketsCmd.Flags().StringP("source", "s", "polymarket", "Source: polymarket, kalshi, postgres, demo")
	listMarketsCmd.Flags().IntP("limit", "l", 20, "Maximum number of markets to fetch")
	listMarketsCmd.Flags().StringSliceP("keyword", "k", nil, "Only show markets whose name contains a keyword")
	listMarketsCmd.Flags().BoolP("verbose", "v", false, "Show detailed market information")
}

func runListMarkets(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Get flags
	source, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("limit")
	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	verbose, _ := cmd.Flags().GetBool("verbose")

	fmt.Printf("Fetching up to %d markets from %s...\n\n", limit, source)

	markets, err := app.ListMarkets(ctx, cfg, logger, strings.ToLower(source), limit, types.MarketFilter{Keywords: keywords})
	if err != nil {
		return err
	}

	if len(markets) == 0 {
		fmt.Println("No markets found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tYES\tNO\tSPREAD\n")
	fmt.Fprintf(w, "--\t----\t---\t--\t------\n")

	for _, m := range markets {
		writeMarketRow(w, m, verbose)
	}

	w.Flush()

	fmt.Printf("\nTotal: %d markets\n", len(markets))

	return nil
}

func writeMarketRow(w *tabwriter.Writer, m *types.Market, verbose bool) {
	name := m.Name
	if len(name) > 60 {
		name = name[:57] + "..."
	}

	yes, spread := "-", "-"
	if p, ok := m.YesPrice(); ok {
		yes = p.StringFixed(3)
	}
	no := "-"
	if p, ok := m.NoPrice(); ok {
		no = p.StringFixed(3)
	}
	if s, ok := m.Spread(); ok {
		spread = s.StringFixed(3)
	}

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.ID, name, yes, no, spread)

	if verbose {
		fmt.Fprintf(w, "\tVenue: %s, Category: %s, Resolved: %v\n", m.Venue, m.Category, m.Resolved)
		if m.EndDate != nil {
			fmt.Fprintf(w, "\tEnds: %s\n", m.EndDate.Format(time.RFC3339))
		}
		fmt.Fprintf(w, "\tLiquidity: %s, Volume 24h: %s\n", m.Liquidity.StringFixed(2), m.Volume24h.StringFixed(2))
		if m.URL != "" {
			fmt.Fprintf(w, "\tURL: %s\n", m.URL)
		}
		fmt.Fprintf(w, "\n")
	}
}
