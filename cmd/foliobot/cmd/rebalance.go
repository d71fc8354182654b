package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foliobot/foliobot/tools"
)

var (
	rebalSymbols     string
	rebalAllocations string
	rebalCashBuffer  float64
	rebalDryRun      bool
)

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Rebalance the portfolio toward target allocations",
	Long: `Compute and execute the trades that move the portfolio toward the
given target allocations, selling before buying and keeping the cash
buffer uninvested.

Example:
  foliobot rebalance --symbols AAPL,MSFT,GOOG --allocations 40,30,30 --cash-buffer 2`,
	RunE: runRebalance,
}

func init() {
	rootCmd.AddCommand(rebalanceCmd)

	rebalanceCmd.Flags().StringVar(&rebalSymbols, "symbols", "", "comma-separated symbols, e.g. AAPL,MSFT (required)")
	rebalanceCmd.Flags().StringVar(&rebalAllocations, "allocations", "", "comma-separated weights in %, e.g. 40,30,30 (required)")
	rebalanceCmd.Flags().Float64Var(&rebalCashBuffer, "cash-buffer", 2.0, "% of portfolio value to keep in cash")
	rebalanceCmd.Flags().BoolVar(&rebalDryRun, "dry-run", false, "print the plan without executing it")
	rebalanceCmd.MarkFlagRequired("symbols")
	rebalanceCmd.MarkFlagRequired("allocations")
}

func runRebalance(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	symbols := splitList(rebalSymbols)
	var allocations []float64
	for _, s := range splitList(rebalAllocations) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("bad allocation %q: %w", s, err)
		}
		allocations = append(allocations, v/100)
	}
	if len(symbols) != len(allocations) {
		return fmt.Errorf("symbols and allocations length mismatch: %d vs %d", len(symbols), len(allocations))
	}

	params, _ := json.Marshal(tools.RebalanceRequest{
		Symbols:     symbols,
		Allocations: allocations,
		CashBuffer:  rebalCashBuffer / 100,
		DryRun:      rebalDryRun,
	})

	env := a.handler.Dispatch(cmd.Context(), tools.RebalancePortfolio, params)
	return printEnvelope(cmd, env)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printEnvelope(cmd *cobra.Command, env tools.Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	if !env.Success {
		return fmt.Errorf("%s", *env.Error)
	}
	return nil
}
