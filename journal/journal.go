// Package journal records every executed trade, whatever initiated it:
// a bot trigger, a rebalance leg, or a manual buy/sell.
package journal

import (
	"time"

	"github.com/foliobot/foliobot/broker"
)

// TradeRecord is one executed trade.
type TradeRecord struct {
	TradeID  string
	Symbol   string
	Side     broker.Side
	Quantity float64
	Price    float64
	Reason   string // "stop_loss", "take_profit", "rebalance", "manual"
	Time     time.Time
}

type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}

// Nop discards all records. Used when journaling is disabled.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) Close() error                  { return nil }
