package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliobot/foliobot/broker"
	"github.com/foliobot/foliobot/internal/id"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func record(symbol string, side broker.Side, qty, price float64, reason string) TradeRecord {
	return TradeRecord{
		TradeID:  id.New(),
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		Price:    price,
		Reason:   reason,
		Time:     time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteRecordAndList(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	want := []TradeRecord{
		record("AAPL", broker.Buy, 10, 150.25, "manual"),
		record("AAPL", broker.Sell, 10, 142.50, "stop_loss"),
		record("MSFT", broker.Buy, 3, 300, "rebalance"),
	}
	for _, r := range want {
		require.NoError(t, j.RecordTrade(r))
	}

	got, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i := range want {
		assert.Equal(t, want[i].TradeID, got[i].TradeID)
		assert.Equal(t, want[i].Symbol, got[i].Symbol)
		assert.Equal(t, want[i].Side, got[i].Side)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].Price, got[i].Price)
		assert.Equal(t, want[i].Reason, got[i].Reason)
		assert.True(t, want[i].Time.Equal(got[i].Time))
	}
}

func TestSQLiteListOrderedByTradeID(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	// ULIDs sort by creation time, so insertion order survives the round trip.
	var ids []string
	for i := 0; i < 5; i++ {
		r := record("AAPL", broker.Buy, 1, 100, "manual")
		ids = append(ids, r.TradeID)
		require.NoError(t, j.RecordTrade(r))
	}

	got, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, r := range got {
		assert.Equal(t, ids[i], r.TradeID)
	}
}

func TestSQLiteEmptyList(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)

	got, err := j.ListTrades()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNopJournal(t *testing.T) {
	t.Parallel()

	var j Journal = Nop{}
	assert.NoError(t, j.RecordTrade(record("AAPL", broker.Buy, 1, 100, "manual")))
	assert.NoError(t, j.Close())
}
