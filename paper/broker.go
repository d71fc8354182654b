package paper

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/foliobot/foliobot/broker"
)

// Broker adapts the paper store into the broker.Broker surface. Orders
// fill immediately at the quoted price and land in the account ledger.
type Broker struct {
	store  *Store
	quotes broker.Quoter
	logger *zap.Logger
}

var _ broker.Broker = (*Broker)(nil)

func NewBroker(store *Store, quotes broker.Quoter, logger *zap.Logger) *Broker {
	return &Broker{
		store:  store,
		quotes: quotes,
		logger: logger.Named("paper_broker"),
	}
}

func (b *Broker) GetQuote(ctx context.Context, symbol string) (broker.Quote, error) {
	return b.quotes.GetQuote(ctx, symbol)
}

func (b *Broker) GetCash(ctx context.Context) (float64, error) {
	return b.store.Account().Cash, nil
}

func (b *Broker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	acct := b.store.Account()

	out := make([]broker.Position, 0, len(acct.Holdings))
	for symbol, qty := range acct.Holdings {
		out = append(out, broker.Position{
			Symbol:   symbol,
			Quantity: qty,
			AvgPrice: avgBuyPrice(acct.Ledger, symbol),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (b *Broker) Execute(ctx context.Context, o broker.Order) (broker.Fill, error) {
	q, err := b.quotes.GetQuote(ctx, o.Symbol)
	if err != nil {
		return broker.Fill{}, err
	}

	entry, err := b.store.Apply(o, q.Price, q.Time)
	if err != nil {
		return broker.Fill{}, err
	}

	b.logger.Info("paper fill",
		zap.String("symbol", entry.Symbol),
		zap.String("side", string(entry.Side)),
		zap.Float64("quantity", entry.Quantity),
		zap.Float64("price", entry.Price))

	return broker.Fill{
		OrderID:  entry.ID,
		Symbol:   entry.Symbol,
		Side:     entry.Side,
		Quantity: entry.Quantity,
		Price:    entry.Price,
		Time:     entry.Time,
	}, nil
}

// avgBuyPrice derives a display-only average entry price from the buy
// side of the ledger.
func avgBuyPrice(ledger []LedgerEntry, symbol string) float64 {
	var qty, cost float64
	for _, e := range ledger {
		if e.Symbol != symbol || e.Side != broker.Buy {
			continue
		}
		qty += e.Quantity
		cost += e.Quantity * e.Price
	}
	if qty == 0 {
		return 0
	}
	return cost / qty
}
