package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliobot/foliobot/broker"
	"github.com/foliobot/foliobot/tools"
)

var (
	tradeSymbol   string
	tradeQuantity float64
)

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy shares at market",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(cmd, tools.BuyStock)
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell",
	Short: "Sell shares at market",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(cmd, tools.SellStock)
	},
}

func init() {
	for _, c := range []*cobra.Command{buyCmd, sellCmd} {
		c.Flags().StringVar(&tradeSymbol, "symbol", "", "stock symbol (required)")
		c.Flags().Float64Var(&tradeQuantity, "quantity", 0, "number of shares (required)")
		c.MarkFlagRequired("symbol")
		c.MarkFlagRequired("quantity")
		rootCmd.AddCommand(c)
	}
}

// runTrade goes through the tool handler rather than the executor
// directly so CLI trades hit the same risk policy an agent would.
func runTrade(cmd *cobra.Command, tool tools.Tool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	params, err := json.Marshal(tools.TradeRequest{Symbol: tradeSymbol, Quantity: tradeQuantity})
	if err != nil {
		return err
	}

	env := a.handler.Dispatch(cmd.Context(), tool, params)
	if !env.Success {
		return errors.New(*env.Error)
	}

	fill, ok := env.Data.(broker.Fill)
	if !ok {
		return printEnvelope(cmd, env)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %.4f %s @ $%.2f (order %s)\n",
		fill.Side, fill.Quantity, fill.Symbol, fill.Price, fill.OrderID)
	return nil
}
