// Package rebalance computes the minimal set of market orders that move
// a portfolio toward target allocations while keeping a cash buffer.
// It only plans; execution belongs to the caller, so a dry run is free.
package rebalance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/foliobot/foliobot/broker"
)

const epsilon = 1e-9

// Inputs is the portfolio view the planner works from.
type Inputs struct {
	Holdings map[string]float64 // symbol -> held quantity
	Prices   map[string]float64 // symbol -> current price
	Cash     float64
}

// Options tune planning behavior.
type Options struct {
	// FractionalShares permits non-integer quantities. Off by default;
	// deltas round toward zero to whole shares.
	FractionalShares bool

	// MinNotional drops legs whose dollar value is below this threshold.
	MinNotional float64
}

// TradeIntent is one leg of a plan.
type TradeIntent struct {
	Symbol   string      `json:"symbol"`
	Side     broker.Side `json:"side"`
	Quantity float64     `json:"quantity"`
}

// Plan is an immutable ordered trade list: sells first, so cash is
// realized before it is spent, then buys. Each symbol appears at most
// once.
type Plan struct {
	Intents    []TradeIntent      `json:"intents"`
	Targets    map[string]float64 `json:"targets"`
	CashBuffer float64            `json:"cash_buffer"`
	TotalValue float64            `json:"total_value"`
	CreatedAt  time.Time          `json:"created_at"`
}

// New computes a plan. targets maps symbol to allocation fraction;
// fractions plus cashBuffer must not exceed 1.
func New(in Inputs, targets map[string]float64, cashBuffer float64, opts Options) (*Plan, error) {
	if cashBuffer < 0 || cashBuffer >= 1 {
		return nil, fmt.Errorf("cash buffer %v out of range [0,1): %w", cashBuffer, broker.ErrConfig)
	}

	var sum float64
	for symbol, frac := range targets {
		if frac < 0 {
			return nil, fmt.Errorf("allocation for %s is negative (%v): %w", symbol, frac, broker.ErrConfig)
		}
		sum += frac
	}
	if sum+cashBuffer > 1+epsilon {
		return nil, fmt.Errorf("allocations (%v) plus cash buffer (%v) exceed 1: %w", sum, cashBuffer, broker.ErrConfig)
	}

	total := in.Cash
	for symbol, qty := range in.Holdings {
		total += qty * in.Prices[symbol]
	}
	investable := total * (1 - cashBuffer)

	var sells, buys []TradeIntent
	for _, symbol := range sortedKeys(targets) {
		price := in.Prices[symbol]
		if price <= 0 {
			// No usable price; leave this symbol untouched.
			continue
		}

		targetValue := investable * targets[symbol]
		currentValue := in.Holdings[symbol] * price

		delta := (targetValue - currentValue) / price
		if !opts.FractionalShares {
			delta = math.Trunc(delta)
		}
		if delta == 0 {
			continue
		}
		if math.Abs(delta)*price < opts.MinNotional {
			continue
		}

		if delta < 0 {
			sells = append(sells, TradeIntent{Symbol: symbol, Side: broker.Sell, Quantity: -delta})
		} else {
			buys = append(buys, TradeIntent{Symbol: symbol, Side: broker.Buy, Quantity: delta})
		}
	}

	return &Plan{
		Intents:    append(sells, buys...),
		Targets:    targets,
		CashBuffer: cashBuffer,
		TotalValue: total,
		CreatedAt:  time.Now(),
	}, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
