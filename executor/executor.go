// Package executor wraps order execution with the retry contract: a
// per-call timeout so one hung broker call can't stall a check cycle,
// exponential backoff on transient failures, and no retry at all on
// rejections or bad input.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/foliobot/foliobot/broker"
	"github.com/foliobot/foliobot/journal"
	"github.com/foliobot/foliobot/paper"
)

type Executor struct {
	broker      broker.Broker
	journal     journal.Journal
	logger      *zap.Logger
	callTimeout time.Duration
	retryBudget time.Duration
}

func New(b broker.Broker, j journal.Journal, logger *zap.Logger, callTimeout, retryBudget time.Duration) *Executor {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	if retryBudget <= 0 {
		retryBudget = 30 * time.Second
	}
	return &Executor{
		broker:      b,
		journal:     j,
		logger:      logger.Named("executor"),
		callTimeout: callTimeout,
		retryBudget: retryBudget,
	}
}

// Execute submits a market order and journals the fill. reason is the
// cause of the trade ("stop_loss", "take_profit", "rebalance", "manual")
// and ends up in the journal, not at the broker.
func (e *Executor) Execute(ctx context.Context, o broker.Order, reason string) (broker.Fill, error) {
	op := func() (broker.Fill, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()

		fill, err := e.broker.Execute(callCtx, o)
		if err != nil && permanent(err) {
			return broker.Fill{}, backoff.Permanent(err)
		}
		return fill, err
	}

	fill, err := backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(e.retryBudget),
	)
	if err != nil {
		e.logger.Warn("order failed",
			zap.String("symbol", o.Symbol),
			zap.String("side", string(o.Side)),
			zap.Float64("quantity", o.Quantity),
			zap.Error(err))
		return broker.Fill{}, err
	}

	if jerr := e.journal.RecordTrade(journal.TradeRecord{
		TradeID:  fill.OrderID,
		Symbol:   fill.Symbol,
		Side:     fill.Side,
		Quantity: fill.Quantity,
		Price:    fill.Price,
		Reason:   reason,
		Time:     fill.Time,
	}); jerr != nil {
		// The order already filled; a journal failure must not look like a
		// failed trade.
		e.logger.Warn("journal record failed", zap.String("trade_id", fill.OrderID), zap.Error(jerr))
	}

	e.logger.Info("order filled",
		zap.String("symbol", fill.Symbol),
		zap.String("side", string(fill.Side)),
		zap.Float64("quantity", fill.Quantity),
		zap.Float64("price", fill.Price),
		zap.String("reason", reason))

	return fill, nil
}

// permanent reports whether err should never be retried.
func permanent(err error) bool {
	return errors.Is(err, broker.ErrOrderRejected) ||
		errors.Is(err, broker.ErrConfig) ||
		errors.Is(err, paper.ErrInsufficientFunds) ||
		errors.Is(err, paper.ErrInsufficientShares)
}
