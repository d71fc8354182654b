// Package alpaca adapts the Alpaca trading API to the broker interface.
// Credentials come from the standard APCA_* environment variables.
package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/foliobot/foliobot/broker"
)

type Broker struct {
	trade *alpaca.Client
	md    *marketdata.Client

	// Free-tier market data allows 200 requests/minute; stay under it.
	limiter *rate.Limiter
}

var _ broker.Broker = (*Broker)(nil)

func New() *Broker {
	return &Broker{
		trade:   alpaca.NewClient(alpaca.ClientOpts{}),
		md:      marketdata.NewClient(marketdata.ClientOpts{}),
		limiter: rate.NewLimiter(rate.Limit(200.0/60), 2),
	}
}

func (b *Broker) GetQuote(ctx context.Context, symbol string) (broker.Quote, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return broker.Quote{}, err
	}

	trade, err := b.md.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil || trade == nil {
		return broker.Quote{}, fmt.Errorf("latest trade for %s: %w", symbol, broker.ErrPriceUnavailable)
	}

	return broker.Quote{
		Symbol: strings.ToUpper(symbol),
		Price:  trade.Price,
		Time:   trade.Timestamp,
	}, nil
}

func (b *Broker) GetCash(ctx context.Context) (float64, error) {
	acct, err := b.trade.GetAccount()
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	return acct.Cash.InexactFloat64(), nil
}

func (b *Broker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	positions, err := b.trade.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	out := make([]broker.Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, broker.Position{
			Symbol:   p.Symbol,
			Quantity: p.Qty.InexactFloat64(),
			AvgPrice: p.AvgEntryPrice.InexactFloat64(),
		})
	}
	return out, nil
}

func (b *Broker) Execute(ctx context.Context, o broker.Order) (broker.Fill, error) {
	qty := decimal.NewFromFloat(o.Quantity)

	order, err := b.trade.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      o.Symbol,
		Qty:         &qty,
		Side:        alpaca.Side(o.Side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return broker.Fill{}, fmt.Errorf("%v: %w", err, broker.ErrOrderRejected)
	}

	fill := broker.Fill{
		OrderID:  order.ID,
		Symbol:   order.Symbol,
		Side:     o.Side,
		Quantity: order.FilledQty.InexactFloat64(),
		Time:     time.Now(),
	}
	if order.FilledAvgPrice != nil {
		fill.Price = order.FilledAvgPrice.InexactFloat64()
	} else if q, err := b.GetQuote(ctx, o.Symbol); err == nil {
		// Market order not yet reported filled; quote is the best estimate.
		fill.Quantity = o.Quantity
		fill.Price = q.Price
	}
	if order.FilledAt != nil {
		fill.Time = *order.FilledAt
	}
	return fill, nil
}
