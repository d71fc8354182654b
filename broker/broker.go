package broker

import (
	"context"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Quote is the latest known price for a symbol.
type Quote struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// Order is an unexecuted instruction to buy or sell a quantity of a symbol.
// Market orders only; limit/stop routing happens at the broker, not here.
type Order struct {
	Symbol   string
	Side     Side
	Quantity float64
}

// Fill is the result of an executed order.
type Fill struct {
	OrderID  string
	Symbol   string
	Side     Side
	Quantity float64
	Price    float64
	Time     time.Time
}

// Position is a holding as reported by the broker.
type Position struct {
	Symbol   string
	Quantity float64
	AvgPrice float64
}

// Quoter supplies the current price for a symbol. Implementations may be
// live or simulated; callers must treat failures as per-symbol and
// transient.
type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

// Broker is the full collaborator surface the engine depends on: prices,
// account state, and order execution against a valid session.
type Broker interface {
	Quoter
	GetCash(ctx context.Context) (float64, error)
	GetPositions(ctx context.Context) ([]Position, error)
	Execute(ctx context.Context, o Order) (Fill, error)
}
