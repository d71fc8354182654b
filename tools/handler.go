package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foliobot/foliobot/bot"
	"github.com/foliobot/foliobot/broker"
	"github.com/foliobot/foliobot/executor"
	"github.com/foliobot/foliobot/portfolio"
	"github.com/foliobot/foliobot/rebalance"
	"github.com/foliobot/foliobot/risk"
)

// Handler binds tools to one engine instance. No globals: the CLI and
// any agent transport share the same handle.
type Handler struct {
	engine    *bot.Engine
	snapshots *portfolio.Service
	exec      *executor.Executor
	rebalOpts rebalance.Options
	policy    risk.Policy
	logger    *zap.Logger
}

func NewHandler(engine *bot.Engine, snapshots *portfolio.Service, exec *executor.Executor, rebalOpts rebalance.Options, policy risk.Policy, logger *zap.Logger) *Handler {
	return &Handler{
		engine:    engine,
		snapshots: snapshots,
		exec:      exec,
		rebalOpts: rebalOpts,
		policy:    policy,
		logger:    logger.Named("tools"),
	}
}

// Dispatch routes one tool call. Validation failures, engine errors, and
// unknown tools all come back as error envelopes; Dispatch never panics
// on caller input.
func (h *Handler) Dispatch(ctx context.Context, tool Tool, params json.RawMessage) Envelope {
	h.logger.Debug("tool call", zap.String("tool", string(tool)))

	switch tool {
	case GetPortfolio:
		return h.getPortfolio(ctx)
	case BuyStock:
		return h.trade(ctx, broker.Buy, params)
	case SellStock:
		return h.trade(ctx, broker.Sell, params)
	case RebalancePortfolio:
		return h.rebalance(ctx, params)
	case GetBotStatus:
		return h.botStatus(ctx)
	case AddBotPosition:
		return h.addPosition(ctx, params)
	case RemoveBotPosition:
		return h.removePosition(params)
	case StartBot:
		return h.startBot(params)
	case StopBot:
		h.engine.Stop()
		return ok(map[string]any{"running": false})
	case CheckBotPositions:
		return h.checkPositions(ctx)
	default:
		return fail(fmt.Errorf("unknown tool %q: %w", tool, broker.ErrNotFound))
	}
}

func (h *Handler) getPortfolio(ctx context.Context) Envelope {
	snap, err := h.snapshots.Snapshot(ctx)
	if err != nil {
		return fail(err)
	}
	return ok(snap)
}

func (h *Handler) trade(ctx context.Context, side broker.Side, params json.RawMessage) Envelope {
	req, err := decode[TradeRequest](params)
	if err != nil {
		return fail(fmt.Errorf("%v: %w", err, broker.ErrConfig))
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" || req.Quantity <= 0 {
		return fail(fmt.Errorf("symbol and positive quantity are required: %w", broker.ErrConfig))
	}

	if err := h.checkRisk(ctx, side, req.Symbol, req.Quantity); err != nil {
		return fail(err)
	}

	fill, err := h.exec.Execute(ctx, broker.Order{
		Symbol:   req.Symbol,
		Side:     side,
		Quantity: req.Quantity,
	}, "manual")
	if err != nil {
		return fail(err)
	}
	return ok(fill)
}

// checkRisk prices the order and runs it past the policy. Sells and a
// zero policy skip the snapshot entirely.
func (h *Handler) checkRisk(ctx context.Context, side broker.Side, symbol string, quantity float64) error {
	if side != broker.Buy || !h.policy.Enabled() {
		return nil
	}

	snap, err := h.snapshots.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("risk check snapshot: %w", err)
	}

	price, known := snap.PricesMap()[symbol]
	if !known {
		prices, err := h.snapshots.QuoteMany(ctx, []string{symbol})
		if err != nil {
			return fmt.Errorf("risk check quote: %w", err)
		}
		price = prices[symbol]
	}

	held := make(map[string]bool, len(snap.Holdings))
	for _, hd := range snap.Holdings {
		held[hd.Symbol] = true
	}

	return risk.Check(h.policy, side, symbol, quantity*price, risk.Account{
		Equity:       snap.Equity,
		Cash:         snap.Cash,
		OpenHoldings: len(snap.Holdings),
		HeldSymbols:  held,
	}).Err()
}

func (h *Handler) rebalance(ctx context.Context, params json.RawMessage) Envelope {
	req, err := decode[RebalanceRequest](params)
	if err != nil {
		return fail(fmt.Errorf("%v: %w", err, broker.ErrConfig))
	}
	if len(req.Symbols) == 0 || len(req.Symbols) != len(req.Allocations) {
		return fail(fmt.Errorf("symbols and allocations must be non-empty and the same length: %w", broker.ErrConfig))
	}

	targets := make(map[string]float64, len(req.Symbols))
	for i, s := range req.Symbols {
		targets[s] = req.Allocations[i]
	}

	snap, err := h.snapshots.Snapshot(ctx)
	if err != nil {
		return fail(err)
	}

	// Target symbols we don't hold still need prices.
	prices := snap.PricesMap()
	var missing []string
	for s := range targets {
		if _, known := prices[s]; !known {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		extra, err := h.snapshots.QuoteMany(ctx, missing)
		if err != nil {
			return fail(err)
		}
		for s, p := range extra {
			prices[s] = p
		}
	}

	plan, err := rebalance.New(rebalance.Inputs{
		Holdings: snap.HoldingsMap(),
		Prices:   prices,
		Cash:     snap.Cash,
	}, targets, req.CashBuffer, h.rebalOpts)
	if err != nil {
		return fail(err)
	}

	type legResult struct {
		Intent rebalance.TradeIntent `json:"intent"`
		Fill   *broker.Fill          `json:"fill,omitempty"`
		Error  string                `json:"error,omitempty"`
	}

	results := make([]legResult, 0, len(plan.Intents))
	if !req.DryRun {
		for _, intent := range plan.Intents {
			res := legResult{Intent: intent}
			fill, err := h.exec.Execute(ctx, broker.Order{
				Symbol:   intent.Symbol,
				Side:     intent.Side,
				Quantity: intent.Quantity,
			}, "rebalance")
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Fill = &fill
			}
			results = append(results, res)
		}
	}

	return ok(map[string]any{
		"plan":    plan,
		"results": results,
		"dry_run": req.DryRun,
	})
}

func (h *Handler) botStatus(ctx context.Context) Envelope {
	state, positions := h.engine.Status(ctx)
	return ok(map[string]any{
		"running":    state.Running,
		"interval":   state.Interval.String(),
		"last_check": state.LastCheck,
		"last_error": state.LastError,
		"positions":  positions,
	})
}

func (h *Handler) addPosition(ctx context.Context, params json.RawMessage) Envelope {
	req, err := decode[AddPositionRequest](params)
	if err != nil {
		return fail(fmt.Errorf("%v: %w", err, broker.ErrConfig))
	}

	pos, err := h.engine.Add(ctx, req.Symbol, req.Quantity, req.StopLoss, req.TakeProfit)
	if err != nil {
		return fail(err)
	}
	return ok(pos)
}

func (h *Handler) removePosition(params json.RawMessage) Envelope {
	req, err := decode[RemovePositionRequest](params)
	if err != nil {
		return fail(fmt.Errorf("%v: %w", err, broker.ErrConfig))
	}
	if err := h.engine.Remove(req.Symbol); err != nil {
		return fail(err)
	}
	return ok(map[string]any{"symbol": req.Symbol, "removed": true})
}

func (h *Handler) startBot(params json.RawMessage) Envelope {
	req, err := decode[StartBotRequest](params)
	if err != nil {
		return fail(fmt.Errorf("%v: %w", err, broker.ErrConfig))
	}
	if err := h.engine.Start(time.Duration(req.IntervalMinutes) * time.Minute); err != nil {
		return fail(err)
	}
	return ok(map[string]any{"running": true, "interval_minutes": req.IntervalMinutes})
}

func (h *Handler) checkPositions(ctx context.Context) Envelope {
	results, err := h.engine.CheckOnce(ctx)
	if err != nil {
		return fail(err)
	}

	type checkView struct {
		Symbol    string       `json:"symbol"`
		Decision  string       `json:"decision"`
		Price     float64      `json:"price"`
		PctChange float64      `json:"pct_change"`
		Fill      *broker.Fill `json:"fill,omitempty"`
		Error     string       `json:"error,omitempty"`
	}

	views := make([]checkView, 0, len(results))
	for _, r := range results {
		v := checkView{
			Symbol:    r.Symbol,
			Decision:  r.Decision.String(),
			Price:     r.Price,
			PctChange: r.PctChange,
			Fill:      r.Fill,
		}
		if r.Err != nil {
			v.Error = r.Err.Error()
		}
		views = append(views, v)
	}
	return ok(views)
}
