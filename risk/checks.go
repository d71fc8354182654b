package risk

import (
	"fmt"

	"github.com/foliobot/foliobot/broker"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the outcome of evaluating one order against a policy.
type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Account is the slice of portfolio state the checks need.
type Account struct {
	Equity       float64
	Cash         float64
	OpenHoldings int
	HeldSymbols  map[string]bool
}

// Check evaluates a priced order. Sells always pass: they only reduce
// exposure. notional is quantity times the current price.
func Check(p Policy, side broker.Side, symbol string, notional float64, acct Account) Decision {
	d := Decision{Allowed: true}

	if side == broker.Sell {
		return d
	}

	if p.MaxOrderPct > 0 && acct.Equity > 0 {
		if pct := notional / acct.Equity; pct > p.MaxOrderPct {
			d.add("ORDER_TOO_LARGE",
				fmt.Sprintf("order is %.1f%% of equity, max %.1f%%", 100*pct, 100*p.MaxOrderPct))
		}
	}

	if p.MaxPositions > 0 && !acct.HeldSymbols[symbol] && acct.OpenHoldings >= p.MaxPositions {
		d.add("TOO_MANY_POSITIONS",
			fmt.Sprintf("%d holdings open, max %d", acct.OpenHoldings, p.MaxPositions))
	}

	if p.MinCash > 0 && acct.Cash-notional < p.MinCash {
		d.add("CASH_FLOOR",
			fmt.Sprintf("order would leave %.2f cash, floor is %.2f", acct.Cash-notional, p.MinCash))
	}

	return d
}

// Err flattens a blocked decision into one error. Nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	msg := ""
	for i, v := range d.Violations {
		if i > 0 {
			msg += "; "
		}
		msg += v.Msg
	}
	return fmt.Errorf("blocked by risk policy: %s: %w", msg, broker.ErrOrderRejected)
}
