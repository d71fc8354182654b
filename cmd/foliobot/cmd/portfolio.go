package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Show current holdings, cash, and equity",
	RunE:  runPortfolio,
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.snapshots.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tQTY\tAVG PRICE\tMARKET PRICE\tVALUE")
	for _, h := range snap.Holdings {
		fmt.Fprintf(w, "%s\t%.4f\t%.2f\t%.2f\t%.2f\n",
			h.Symbol, h.Quantity, h.AvgPrice, h.MarketPrice, h.MarketValue)
	}
	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\nCash: $%.2f | Equity: $%.2f | Invested: %.1f%%\n",
		snap.Cash, snap.Equity, snap.PercentInvested)
	return nil
}
