// Package bot implements the position monitor: a set of watched
// positions, a pure trigger evaluator, and the periodic engine that
// turns triggers into sell orders exactly once.
package bot

import "time"

// Status of a monitored position.
const (
	StatusActive    = "active"
	StatusTriggered = "triggered"
)

// Position is one symbol under watch. Thresholds are percentages
// relative to the entry reference price; either may be nil for a
// one-sided config, but never both.
type Position struct {
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	StopLossPct   *float64  `json:"stop_loss_pct,omitempty"`
	TakeProfitPct *float64  `json:"take_profit_pct,omitempty"`
	EntryPrice    float64   `json:"entry_price"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Decision is the outcome of evaluating a position against a price.
type Decision int

const (
	None Decision = iota
	StopLoss
	TakeProfit
)

func (d Decision) String() string {
	switch d {
	case StopLoss:
		return "stop_loss"
	case TakeProfit:
		return "take_profit"
	default:
		return "none"
	}
}

// PctChange is the percentage move from entry to current.
func PctChange(entry, current float64) float64 {
	return (current - entry) / entry * 100
}

// Evaluate maps a position and a current price to a trigger decision.
// Both thresholds are boundary-inclusive. When a crossed config
// satisfies both at once, StopLoss wins. Pure: no clock, no I/O.
func Evaluate(p Position, price float64) Decision {
	pct := PctChange(p.EntryPrice, price)

	if p.StopLossPct != nil && pct <= *p.StopLossPct {
		return StopLoss
	}
	if p.TakeProfitPct != nil && pct >= *p.TakeProfitPct {
		return TakeProfit
	}
	return None
}
