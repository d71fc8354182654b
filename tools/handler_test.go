package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foliobot/foliobot/bot"
	"github.com/foliobot/foliobot/broker"
	"github.com/foliobot/foliobot/executor"
	"github.com/foliobot/foliobot/journal"
	"github.com/foliobot/foliobot/paper"
	"github.com/foliobot/foliobot/portfolio"
	"github.com/foliobot/foliobot/rebalance"
	"github.com/foliobot/foliobot/risk"
)

// newTestHandler wires a handler over the paper stack, same shape as the
// CLI does it but with throwaway state.
func newTestHandler(t *testing.T, policy risk.Policy) *Handler {
	t.Helper()

	logger := zap.NewNop()
	store := paper.Open(filepath.Join(t.TempDir(), "state.json"), 100000, logger)
	b := paper.NewBroker(store, paper.SimQuoter{}, logger)
	exec := executor.New(b, journal.Nop{}, logger, time.Second, time.Second)
	engine := bot.NewEngine(b, exec, bot.NewPositionStore("", logger), logger, time.Second)
	t.Cleanup(engine.Stop)

	return NewHandler(engine, portfolio.NewService(b, logger), exec, rebalance.Options{}, policy, logger)
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestDispatchUnknownTool(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})

	env := h.Dispatch(context.Background(), Tool("fetch_options_chain"), nil)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "unknown tool")
}

func TestDispatchEnvelopeShape(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})

	env := h.Dispatch(context.Background(), GetPortfolio, nil)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)

	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)

	// the envelope must survive JSON marshaling for any transport
	_, err = json.Marshal(env)
	require.NoError(t, err)
}

func TestDispatchBuyThenPortfolio(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})
	ctx := context.Background()

	env := h.Dispatch(ctx, BuyStock, raw(t, TradeRequest{Symbol: "AAPL", Quantity: 10}))
	require.True(t, env.Success, "buy failed: %v", env.Error)

	fill, ok := env.Data.(broker.Fill)
	require.True(t, ok)
	assert.Equal(t, "AAPL", fill.Symbol)
	assert.Equal(t, broker.Buy, fill.Side)
	assert.Equal(t, 10.0, fill.Quantity)

	env = h.Dispatch(ctx, GetPortfolio, nil)
	require.True(t, env.Success)

	snap, ok := env.Data.(portfolio.Snapshot)
	require.True(t, ok)
	require.Len(t, snap.Holdings, 1)
	assert.Equal(t, "AAPL", snap.Holdings[0].Symbol)
	assert.Equal(t, 10.0, snap.Holdings[0].Quantity)
	assert.Less(t, snap.Cash, 100000.0)
}

func TestDispatchTradeValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})
	ctx := context.Background()

	cases := []struct {
		name   string
		params json.RawMessage
	}{
		{"missing symbol", raw(t, TradeRequest{Quantity: 10})},
		{"zero quantity", raw(t, TradeRequest{Symbol: "AAPL"})},
		{"negative quantity", raw(t, TradeRequest{Symbol: "AAPL", Quantity: -1})},
		{"malformed json", json.RawMessage(`{"symbol":`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := h.Dispatch(ctx, BuyStock, tc.params)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
		})
	}
}

func TestDispatchSellWithoutShares(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})

	env := h.Dispatch(context.Background(), SellStock, raw(t, TradeRequest{Symbol: "AAPL", Quantity: 5}))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
}

func TestDispatchBotLifecycle(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})
	ctx := context.Background()

	sl := -5.0
	env := h.Dispatch(ctx, AddBotPosition, raw(t, AddPositionRequest{
		Symbol:   "aapl",
		Quantity: 10,
		StopLoss: &sl,
	}))
	require.True(t, env.Success, "add failed: %v", env.Error)

	pos, ok := env.Data.(bot.Position)
	require.True(t, ok)
	assert.Equal(t, "AAPL", pos.Symbol)
	assert.Greater(t, pos.EntryPrice, 0.0)

	// thresholds are required
	env = h.Dispatch(ctx, AddBotPosition, raw(t, AddPositionRequest{Symbol: "MSFT", Quantity: 1}))
	assert.False(t, env.Success)

	env = h.Dispatch(ctx, StartBot, raw(t, StartBotRequest{IntervalMinutes: 5}))
	require.True(t, env.Success)

	env = h.Dispatch(ctx, GetBotStatus, nil)
	require.True(t, env.Success)
	status, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, status["running"])
	assert.Equal(t, "5m0s", status["interval"])

	env = h.Dispatch(ctx, StopBot, nil)
	require.True(t, env.Success)
}

func TestDispatchStartBotRejectsBadInterval(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})

	env := h.Dispatch(context.Background(), StartBot, raw(t, StartBotRequest{IntervalMinutes: 0}))
	assert.False(t, env.Success)
}

func TestDispatchRemoveUnknownPosition(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})

	env := h.Dispatch(context.Background(), RemoveBotPosition, raw(t, RemovePositionRequest{Symbol: "NVDA"}))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "not monitored")
}

func TestDispatchCheckPositionsNoTrigger(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})
	ctx := context.Background()

	// quotes never move in the sim, so a wide stop can't fire
	sl := -50.0
	env := h.Dispatch(ctx, AddBotPosition, raw(t, AddPositionRequest{Symbol: "AAPL", Quantity: 10, StopLoss: &sl}))
	require.True(t, env.Success)

	env = h.Dispatch(ctx, CheckBotPositions, nil)
	require.True(t, env.Success)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)

	var views []struct {
		Symbol   string `json:"symbol"`
		Decision string `json:"decision"`
	}
	require.NoError(t, json.Unmarshal(data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "AAPL", views[0].Symbol)
	assert.Equal(t, "none", views[0].Decision)
}

func TestDispatchBuyBlockedByRiskPolicy(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{MaxOrderPct: 0.1})
	ctx := context.Background()

	// any sim price makes 500 shares far more than 10% of 100k equity
	env := h.Dispatch(ctx, BuyStock, raw(t, TradeRequest{Symbol: "AAPL", Quantity: 500}))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "risk policy")

	// small orders still pass
	env = h.Dispatch(ctx, BuyStock, raw(t, TradeRequest{Symbol: "AAPL", Quantity: 1}))
	assert.True(t, env.Success, "buy failed: %v", env.Error)
}

func TestDispatchRebalanceDryRun(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})

	env := h.Dispatch(context.Background(), RebalancePortfolio, raw(t, RebalanceRequest{
		Symbols:     []string{"AAPL", "MSFT"},
		Allocations: []float64{0.5, 0.4},
		CashBuffer:  0.1,
		DryRun:      true,
	}))
	require.True(t, env.Success, "rebalance failed: %v", env.Error)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["dry_run"])

	plan, ok := data["plan"].(*rebalance.Plan)
	require.True(t, ok)
	require.Len(t, plan.Intents, 2)
	for _, intent := range plan.Intents {
		assert.Equal(t, broker.Buy, intent.Side)
	}

	// dry run executes nothing
	assert.Empty(t, data["results"])
}

func TestDispatchRebalanceValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})
	ctx := context.Background()

	env := h.Dispatch(ctx, RebalancePortfolio, raw(t, RebalanceRequest{
		Symbols:     []string{"AAPL"},
		Allocations: []float64{0.5, 0.5},
	}))
	assert.False(t, env.Success)

	env = h.Dispatch(ctx, RebalancePortfolio, raw(t, RebalanceRequest{
		Symbols:     []string{"AAPL", "MSFT"},
		Allocations: []float64{0.7, 0.7},
	}))
	assert.False(t, env.Success)
}

func TestDefinitionsCoverDispatch(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, risk.Policy{})

	// every advertised tool must dispatch to a real handler, never the
	// unknown-tool branch
	for _, def := range Definitions() {
		env := h.Dispatch(context.Background(), def.Name, nil)
		if env.Error != nil {
			assert.NotContains(t, *env.Error, "unknown tool", "tool %s", def.Name)
		}
	}
}
