// Package risk gates orders against account-level exposure limits
// before they reach a broker.
package risk

// Policy is the set of pre-trade limits. Zero values disable the
// corresponding check.
type Policy struct {
	// MaxOrderPct caps a single buy's notional as a fraction of equity.
	MaxOrderPct float64

	// MaxPositions caps the number of distinct holdings a buy may open.
	MaxPositions int

	// MinCash is the cash floor a buy must not breach.
	MinCash float64
}

// Enabled reports whether any check is configured.
func (p Policy) Enabled() bool {
	return p.MaxOrderPct > 0 || p.MaxPositions > 0 || p.MinCash > 0
}
