package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliobot/foliobot/tools"
)

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Invoke the AI tool surface directly",
}

var toolParams string

var toolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(tools.Definitions(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var toolCallCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Call one tool and print its envelope",
	Long: `Call one tool by name with JSON parameters and print the uniform
result envelope.

Example:
  foliobot tool call add_bot_position --params '{"symbol":"AAPL","quantity":10,"stop_loss":-5}'`,
	Args: cobra.ExactArgs(1),
	RunE: runToolCall,
}

func init() {
	rootCmd.AddCommand(toolCmd)

	toolCallCmd.Flags().StringVar(&toolParams, "params", "", "JSON parameters for the tool")
	toolCmd.AddCommand(toolListCmd, toolCallCmd)
}

func runToolCall(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	env := a.handler.Dispatch(cmd.Context(), tools.Tool(args[0]), json.RawMessage(toolParams))
	return printEnvelope(cmd, env)
}
