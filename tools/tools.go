// Package tools exposes the engine to AI agents as a fixed set of
// callable tools. Dispatch is a closed enumeration with one typed,
// boundary-validated request struct per operation; the wire framing
// (JSON-RPC, MCP, HTTP) lives outside this package.
package tools

import (
	"encoding/json"
	"time"
)

// Tool names form a closed set; Dispatch is exhaustive over them.
type Tool string

const (
	GetPortfolio       Tool = "get_portfolio"
	BuyStock           Tool = "buy_stock"
	SellStock          Tool = "sell_stock"
	RebalancePortfolio Tool = "rebalance_portfolio"
	GetBotStatus       Tool = "get_bot_status"
	AddBotPosition     Tool = "add_bot_position"
	RemoveBotPosition  Tool = "remove_bot_position"
	StartBot           Tool = "start_bot"
	StopBot            Tool = "stop_bot"
	CheckBotPositions  Tool = "check_bot_positions"
)

// Definition describes one tool to the calling agent.
type Definition struct {
	Name        Tool   `json:"name"`
	Description string `json:"description"`
}

// Definitions lists every dispatchable tool.
func Definitions() []Definition {
	return []Definition{
		{GetPortfolio, "Get current portfolio summary including positions, cash, and total value"},
		{BuyStock, "Buy shares of a stock at market"},
		{SellStock, "Sell shares of a stock at market"},
		{RebalancePortfolio, "Rebalance portfolio toward target allocations and execute the plan"},
		{GetBotStatus, "Get trading bot status and monitored positions with unrealized P&L"},
		{AddBotPosition, "Add a position to bot monitoring with stop-loss and/or take-profit thresholds"},
		{RemoveBotPosition, "Remove a position from bot monitoring"},
		{StartBot, "Start periodic position checking"},
		{StopBot, "Stop periodic position checking"},
		{CheckBotPositions, "Check all monitored positions once, executing any triggers"},
	}
}

// Envelope is the uniform tool result.
type Envelope struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
}

func ok(data any) Envelope {
	return Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func fail(err error) Envelope {
	msg := err.Error()
	return Envelope{
		Error:     &msg,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Request payloads, one per parameterized tool.

type TradeRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

type RebalanceRequest struct {
	Symbols     []string  `json:"symbols"`
	Allocations []float64 `json:"allocations"`
	CashBuffer  float64   `json:"cash_buffer"`
	DryRun      bool      `json:"dry_run"`
}

type AddPositionRequest struct {
	Symbol     string   `json:"symbol"`
	Quantity   float64  `json:"quantity"`
	StopLoss   *float64 `json:"stop_loss"`
	TakeProfit *float64 `json:"take_profit"`
}

type RemovePositionRequest struct {
	Symbol string `json:"symbol"`
}

type StartBotRequest struct {
	IntervalMinutes int `json:"interval_minutes"`
}

func decode[T any](params json.RawMessage) (T, error) {
	var req T
	if len(params) == 0 {
		return req, nil
	}
	err := json.Unmarshal(params, &req)
	return req, err
}
