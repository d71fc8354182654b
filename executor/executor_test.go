package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foliobot/foliobot/broker"
	"github.com/foliobot/foliobot/journal"
	"github.com/foliobot/foliobot/paper"
)

type scriptedBroker struct {
	mu       sync.Mutex
	failures int // errors to return before succeeding
	err      error
	calls    int
}

func (b *scriptedBroker) GetQuote(context.Context, string) (broker.Quote, error) {
	return broker.Quote{}, nil
}
func (b *scriptedBroker) GetCash(context.Context) (float64, error) { return 0, nil }
func (b *scriptedBroker) GetPositions(context.Context) ([]broker.Position, error) {
	return nil, nil
}

func (b *scriptedBroker) Execute(_ context.Context, o broker.Order) (broker.Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls++
	if b.failures > 0 {
		b.failures--
		return broker.Fill{}, b.err
	}
	return broker.Fill{
		OrderID:  fmt.Sprintf("fill-%d", b.calls),
		Symbol:   o.Symbol,
		Side:     o.Side,
		Quantity: o.Quantity,
		Price:    100,
		Time:     time.Now(),
	}, nil
}

type memJournal struct {
	mu      sync.Mutex
	records []journal.TradeRecord
}

func (j *memJournal) RecordTrade(t journal.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, t)
	return nil
}
func (j *memJournal) Close() error { return nil }

func TestExecuteRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	b := &scriptedBroker{failures: 1, err: fmt.Errorf("connection reset")}
	j := &memJournal{}
	e := New(b, j, zap.NewNop(), time.Second, 5*time.Second)

	fill, err := e.Execute(context.Background(), broker.Order{Symbol: "AAPL", Side: broker.Buy, Quantity: 10}, "manual")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", fill.Symbol)
	assert.Equal(t, 2, b.calls)

	require.Len(t, j.records, 1)
	assert.Equal(t, fill.OrderID, j.records[0].TradeID)
	assert.Equal(t, "manual", j.records[0].Reason)
}

func TestExecuteDoesNotRetryRejection(t *testing.T) {
	t.Parallel()

	b := &scriptedBroker{failures: 100, err: fmt.Errorf("order rejected: %w", broker.ErrOrderRejected)}
	e := New(b, journal.Nop{}, zap.NewNop(), time.Second, 5*time.Second)

	_, err := e.Execute(context.Background(), broker.Order{Symbol: "AAPL", Side: broker.Buy, Quantity: 1}, "manual")
	require.ErrorIs(t, err, broker.ErrOrderRejected)
	assert.Equal(t, 1, b.calls)
}

func TestExecuteDoesNotRetryInsufficientFunds(t *testing.T) {
	t.Parallel()

	b := &scriptedBroker{failures: 100, err: fmt.Errorf("buy: %w", paper.ErrInsufficientFunds)}
	e := New(b, journal.Nop{}, zap.NewNop(), time.Second, 5*time.Second)

	_, err := e.Execute(context.Background(), broker.Order{Symbol: "AAPL", Side: broker.Buy, Quantity: 1}, "manual")
	require.ErrorIs(t, err, paper.ErrInsufficientFunds)
	assert.Equal(t, 1, b.calls)
}

func TestExecuteGivesUpAfterBudget(t *testing.T) {
	t.Parallel()

	b := &scriptedBroker{failures: 1000, err: fmt.Errorf("connection reset")}
	e := New(b, journal.Nop{}, zap.NewNop(), time.Second, 50*time.Millisecond)

	_, err := e.Execute(context.Background(), broker.Order{Symbol: "AAPL", Side: broker.Buy, Quantity: 1}, "manual")
	require.Error(t, err)
	assert.GreaterOrEqual(t, b.calls, 1)
}

func TestExecuteJournalsReason(t *testing.T) {
	t.Parallel()

	b := &scriptedBroker{}
	j := &memJournal{}
	e := New(b, j, zap.NewNop(), time.Second, time.Second)

	for _, reason := range []string{"stop_loss", "take_profit", "rebalance", "manual"} {
		_, err := e.Execute(context.Background(), broker.Order{Symbol: "AAPL", Side: broker.Sell, Quantity: 1}, reason)
		require.NoError(t, err)
	}

	require.Len(t, j.records, 4)
	assert.Equal(t, "stop_loss", j.records[0].Reason)
	assert.Equal(t, "rebalance", j.records[2].Reason)
}

func TestExecuteNoJournalOnFailure(t *testing.T) {
	t.Parallel()

	b := &scriptedBroker{failures: 1, err: fmt.Errorf("rejected: %w", broker.ErrOrderRejected)}
	j := &memJournal{}
	e := New(b, j, zap.NewNop(), time.Second, time.Second)

	_, err := e.Execute(context.Background(), broker.Order{Symbol: "AAPL", Side: broker.Buy, Quantity: 1}, "manual")
	require.Error(t, err)
	assert.Empty(t, j.records)
}
