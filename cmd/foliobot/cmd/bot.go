package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Position monitoring bot",
}

var (
	botSymbol     string
	botQuantity   float64
	botStopLoss   float64
	botTakeProfit float64
	botInterval   int
)

var botAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a position to monitoring",
	Long: `Add a position to bot monitoring. The entry reference price is the
quote at add time. At least one of --stop-loss and --take-profit must be
set; re-adding a symbol replaces its entry and re-arms it.`,
	RunE: runBotAdd,
}

var botRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a position from monitoring",
	RunE:  runBotRemove,
}

var botStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the monitoring loop in the foreground",
	RunE:  runBotStart,
}

var botStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run state and monitored positions",
	RunE:  runBotStatus,
}

var botCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check all monitored positions once",
	RunE:  runBotCheck,
}

func init() {
	rootCmd.AddCommand(botCmd)

	botAddCmd.Flags().StringVar(&botSymbol, "symbol", "", "stock symbol (required)")
	botAddCmd.Flags().Float64Var(&botQuantity, "quantity", 0, "number of shares (required)")
	botAddCmd.Flags().Float64Var(&botStopLoss, "stop-loss", 0, "stop loss %, e.g. -5.0 (negative)")
	botAddCmd.Flags().Float64Var(&botTakeProfit, "take-profit", 0, "take profit %, e.g. 10.0 (positive)")
	botAddCmd.MarkFlagRequired("symbol")
	botAddCmd.MarkFlagRequired("quantity")

	botRemoveCmd.Flags().StringVar(&botSymbol, "symbol", "", "stock symbol (required)")
	botRemoveCmd.MarkFlagRequired("symbol")

	botStartCmd.Flags().IntVar(&botInterval, "interval", 5, "check interval in minutes")

	botCmd.AddCommand(botAddCmd, botRemoveCmd, botStartCmd, botStatusCmd, botCheckCmd)
}

func runBotAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	var sl, tp *float64
	if cmd.Flags().Changed("stop-loss") {
		sl = &botStopLoss
	}
	if cmd.Flags().Changed("take-profit") {
		tp = &botTakeProfit
	}

	pos, err := a.engine.Add(cmd.Context(), botSymbol, botQuantity, sl, tp)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Monitoring %s: qty %.4f, entry $%.2f", pos.Symbol, pos.Quantity, pos.EntryPrice)
	if pos.StopLossPct != nil {
		fmt.Fprintf(cmd.OutOrStdout(), ", stop %.1f%%", *pos.StopLossPct)
	}
	if pos.TakeProfitPct != nil {
		fmt.Fprintf(cmd.OutOrStdout(), ", target %.1f%%", *pos.TakeProfitPct)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func runBotRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.engine.Remove(botSymbol); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from monitoring\n", botSymbol)
	return nil
}

func runBotStart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.engine.Start(time.Duration(botInterval) * time.Minute); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Bot running, checking every %d minute(s). Ctrl-C to stop.\n", botInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	a.engine.Stop()
	a.engine.Wait()
	fmt.Fprintln(cmd.OutOrStdout(), "Bot stopped")
	return nil
}

func runBotStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	state, positions := a.engine.Status(cmd.Context())

	running := "stopped"
	if state.Running {
		running = "running"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Bot %s | positions: %d", running, len(positions))
	if state.LastError != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " | last error: %s", state.LastError)
	}
	fmt.Fprintln(cmd.OutOrStdout())

	if len(positions) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tQTY\tENTRY\tCURRENT\tCHANGE\tSTOP\tTARGET")
	for _, p := range positions {
		stop, target := "-", "-"
		if p.StopLossPct != nil {
			stop = fmt.Sprintf("%.1f%%", *p.StopLossPct)
		}
		if p.TakeProfitPct != nil {
			target = fmt.Sprintf("%.1f%%", *p.TakeProfitPct)
		}
		if p.QuoteErr != "" {
			fmt.Fprintf(w, "%s\t%.4f\t%.2f\t-\t%s\t%s\t%s\n",
				p.Symbol, p.Quantity, p.EntryPrice, p.QuoteErr, stop, target)
			continue
		}
		fmt.Fprintf(w, "%s\t%.4f\t%.2f\t%.2f\t%+.2f%%\t%s\t%s\n",
			p.Symbol, p.Quantity, p.EntryPrice, p.CurrentPrice, p.PctChange, stop, target)
	}
	return w.Flush()
}

func runBotCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	results, err := a.engine.CheckOnce(cmd.Context())
	if err != nil {
		return err
	}

	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: error: %v\n", r.Symbol, r.Err)
		case r.Fill != nil:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, sold %.4f @ $%.2f (%+.2f%%)\n",
				r.Symbol, r.Decision, r.Fill.Quantity, r.Fill.Price, r.PctChange)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %+.2f%% (hold)\n", r.Symbol, r.PctChange)
		}
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No positions monitored")
	}
	return nil
}
