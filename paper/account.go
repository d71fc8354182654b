// Package paper implements the simulated trading account: a durable
// record of cash, holdings, and an append-only ledger of executed
// trades. The live-trading path never touches this package.
package paper

import (
	"time"

	"github.com/foliobot/foliobot/broker"
)

// LedgerEntry is one executed trade intent in the paper account.
type LedgerEntry struct {
	ID       string      `json:"id"`
	Symbol   string      `json:"symbol"`
	Side     broker.Side `json:"side"`
	Quantity float64     `json:"quantity"`
	Price    float64     `json:"price"`
	Time     time.Time   `json:"time"`
}

// Account is the full simulated account state. It serializes losslessly:
// write→read produces an identical account.
type Account struct {
	Cash     float64            `json:"cash"`
	Holdings map[string]float64 `json:"holdings"`
	Ledger   []LedgerEntry      `json:"ledger"`
}

// NewAccount returns an empty account funded with startingCash.
func NewAccount(startingCash float64) Account {
	return Account{
		Cash:     startingCash,
		Holdings: make(map[string]float64),
	}
}

// Clone returns a deep copy so callers can't mutate store state.
func (a Account) Clone() Account {
	out := Account{
		Cash:     a.Cash,
		Holdings: make(map[string]float64, len(a.Holdings)),
		Ledger:   make([]LedgerEntry, len(a.Ledger)),
	}
	for s, q := range a.Holdings {
		out.Holdings[s] = q
	}
	copy(out.Ledger, a.Ledger)
	return out
}
