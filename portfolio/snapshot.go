// Package portfolio builds a priced view of current holdings.
package portfolio

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foliobot/foliobot/broker"
)

// Holding is one position priced at the current market.
type Holding struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AvgPrice    float64 `json:"avg_price"`
	MarketPrice float64 `json:"market_price"`
	MarketValue float64 `json:"market_value"`
}

// Snapshot is the portfolio at a point in time.
type Snapshot struct {
	Holdings        []Holding `json:"holdings"`
	Cash            float64   `json:"cash"`
	Equity          float64   `json:"equity"` // cash + market value of holdings
	PercentInvested float64   `json:"percent_invested"`
	Time            time.Time `json:"time"`
}

// HoldingsMap returns symbol -> quantity, the shape the rebalancer wants.
func (s Snapshot) HoldingsMap() map[string]float64 {
	out := make(map[string]float64, len(s.Holdings))
	for _, h := range s.Holdings {
		out[h.Symbol] = h.Quantity
	}
	return out
}

// PricesMap returns symbol -> market price.
func (s Snapshot) PricesMap() map[string]float64 {
	out := make(map[string]float64, len(s.Holdings))
	for _, h := range s.Holdings {
		out[h.Symbol] = h.MarketPrice
	}
	return out
}

// Service assembles snapshots from a broker.
type Service struct {
	broker broker.Broker
	logger *zap.Logger

	// quote fan-out width
	concurrency int
}

func NewService(b broker.Broker, logger *zap.Logger) *Service {
	return &Service{broker: b, logger: logger.Named("portfolio"), concurrency: 4}
}

// Snapshot prices every held position concurrently. A symbol whose quote
// fails is skipped with a warning; a bad symbol must not hide the rest
// of the portfolio.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	positions, err := s.broker.GetPositions(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	cash, err := s.broker.GetCash(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var (
		mu       sync.Mutex
		holdings []Holding
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, p := range positions {
		g.Go(func() error {
			q, err := s.broker.GetQuote(gctx, p.Symbol)
			if err != nil {
				s.logger.Warn("quote failed, skipping holding",
					zap.String("symbol", p.Symbol), zap.Error(err))
				return nil
			}

			mu.Lock()
			holdings = append(holdings, Holding{
				Symbol:      p.Symbol,
				Quantity:    p.Quantity,
				AvgPrice:    p.AvgPrice,
				MarketPrice: q.Price,
				MarketValue: q.Price * p.Quantity,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })

	var invested float64
	for _, h := range holdings {
		invested += h.MarketValue
	}

	snap := Snapshot{
		Holdings: holdings,
		Cash:     cash,
		Equity:   invested + cash,
		Time:     time.Now(),
	}
	if snap.Equity > 0 {
		snap.PercentInvested = invested / snap.Equity * 100
	}
	return snap, nil
}

// QuoteMany fetches prices for an arbitrary symbol list, concurrently.
// Used by the rebalancer for target symbols not currently held. Unlike
// Snapshot, any quote failure is fatal: planning against partial prices
// would skew every allocation.
func (s *Service) QuoteMany(ctx context.Context, symbols []string) (map[string]float64, error) {
	var mu sync.Mutex
	prices := make(map[string]float64, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, symbol := range symbols {
		g.Go(func() error {
			q, err := s.broker.GetQuote(gctx, symbol)
			if err != nil {
				return err
			}
			mu.Lock()
			prices[symbol] = q.Price
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prices, nil
}
