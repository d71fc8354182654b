package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/foliobot/foliobot/broker"
	"github.com/foliobot/foliobot/executor"
)

// RunState is the engine lifecycle. It lives and dies with the engine
// instance; only the monitored-position set persists across restarts.
type RunState struct {
	Running   bool
	Interval  time.Duration
	LastCheck time.Time
	LastError string
}

// CheckResult is the outcome of one symbol's evaluation in a cycle.
type CheckResult struct {
	Symbol    string
	Decision  Decision
	Price     float64
	PctChange float64
	Fill      *broker.Fill
	Err       error
}

// PositionStatus is a read-only view of one monitored position with its
// unrealized move.
type PositionStatus struct {
	Position
	CurrentPrice float64
	PctChange    float64
	QuoteErr     string
}

// Engine owns the monitored-position set and the single run state.
// One logical owner per instance; manual and periodic checks are
// serialized so a trigger can fire at most once.
type Engine struct {
	mu        sync.Mutex // guards positions and state
	checkMu   sync.Mutex // serializes CheckOnce callers
	positions map[string]*Position
	state     RunState

	quotes       broker.Quoter
	exec         *executor.Executor
	store        *PositionStore
	logger       *zap.Logger
	quoteTimeout time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewEngine(quotes broker.Quoter, exec *executor.Executor, store *PositionStore, logger *zap.Logger, quoteTimeout time.Duration) *Engine {
	if quoteTimeout <= 0 {
		quoteTimeout = 10 * time.Second
	}
	return &Engine{
		positions:    store.Load(),
		quotes:       quotes,
		exec:         exec,
		store:        store,
		logger:       logger.Named("bot"),
		quoteTimeout: quoteTimeout,
	}
}

// Add starts monitoring a symbol, replacing any existing entry for it
// (upsert). The entry reference price is the quote at add time, so a
// re-added symbol re-arms from scratch.
func (e *Engine) Add(ctx context.Context, symbol string, quantity float64, stopLossPct, takeProfitPct *float64) (Position, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Position{}, fmt.Errorf("symbol is required: %w", broker.ErrConfig)
	}
	if quantity <= 0 {
		return Position{}, fmt.Errorf("quantity must be positive, got %v: %w", quantity, broker.ErrConfig)
	}
	if stopLossPct == nil && takeProfitPct == nil {
		return Position{}, fmt.Errorf("at least one of stop_loss_pct and take_profit_pct is required: %w", broker.ErrConfig)
	}

	q, err := e.getQuote(ctx, symbol)
	if err != nil {
		return Position{}, fmt.Errorf("entry price for %s: %w", symbol, err)
	}

	pos := Position{
		Symbol:        symbol,
		Quantity:      quantity,
		StopLossPct:   stopLossPct,
		TakeProfitPct: takeProfitPct,
		EntryPrice:    q.Price,
		Status:        StatusActive,
		CreatedAt:     time.Now(),
	}

	e.mu.Lock()
	e.positions[symbol] = &pos
	err = e.store.Save(e.positions)
	e.mu.Unlock()
	if err != nil {
		return Position{}, fmt.Errorf("persist positions: %w", err)
	}

	e.logger.Info("position added",
		zap.String("symbol", symbol),
		zap.Float64("quantity", quantity),
		zap.Float64("entry_price", q.Price))
	return pos, nil
}

// Remove stops monitoring a symbol immediately, even mid-check.
func (e *Engine) Remove(symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.positions[symbol]; !ok {
		return fmt.Errorf("%s is not monitored: %w", symbol, broker.ErrNotFound)
	}
	delete(e.positions, symbol)
	if err := e.store.Save(e.positions); err != nil {
		return fmt.Errorf("persist positions: %w", err)
	}

	e.logger.Info("position removed", zap.String("symbol", symbol))
	return nil
}

// Start begins periodic checking every interval.
func (e *Engine) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v: %w", interval, broker.ErrConfig)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Running {
		return fmt.Errorf("already running: %w", broker.ErrConfig)
	}
	e.state.Running = true
	e.state.Interval = interval
	e.stop = make(chan struct{})

	e.wg.Add(1)
	go e.loop(e.stop, interval)

	e.logger.Info("monitoring started", zap.Duration("interval", interval))
	return nil
}

// Stop halts periodic checking. An in-flight check completes; no new
// check is scheduled. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.state.Running {
		e.mu.Unlock()
		return
	}
	e.state.Running = false
	close(e.stop)
	e.stop = nil
	e.mu.Unlock()

	e.logger.Info("monitoring stopped")
}

// Wait blocks until the periodic loop has exited. Useful for clean
// shutdown after Stop.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// loop is cooperative: it wakes every interval and re-checks the running
// flag before proceeding, so Stop takes effect within one interval.
func (e *Engine) loop(stop chan struct{}, interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !e.running() {
				return
			}
			if _, err := e.CheckOnce(context.Background()); err != nil {
				e.logger.Error("scheduled check failed", zap.Error(err))
			}
		}
	}
}

func (e *Engine) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Running
}

// CheckOnce evaluates every active position exactly once against a fresh
// quote per symbol, in ascending symbol order. Triggered positions are
// sold in full, marked triggered, and dropped from future checks.
// Per-symbol failures are recorded and do not abort the cycle. Manual
// and scheduled callers are mutually exclusive: a concurrent call waits
// for the in-flight cycle to finish.
func (e *Engine) CheckOnce(ctx context.Context) ([]CheckResult, error) {
	e.checkMu.Lock()
	defer e.checkMu.Unlock()

	// Stable snapshot of the monitored set at cycle start. Removals that
	// land before a symbol's turn suppress its evaluation below.
	e.mu.Lock()
	symbols := make([]string, 0, len(e.positions))
	for s, p := range e.positions {
		if p.Status == StatusActive {
			symbols = append(symbols, s)
		}
	}
	e.mu.Unlock()
	sort.Strings(symbols)

	results := make([]CheckResult, 0, len(symbols))

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		e.mu.Lock()
		p, ok := e.positions[symbol]
		var pos Position
		if ok {
			pos = *p
		}
		e.mu.Unlock()
		if !ok {
			continue // removed mid-cycle
		}

		q, err := e.getQuote(ctx, symbol)
		if err != nil {
			e.recordError(symbol, err)
			results = append(results, CheckResult{Symbol: symbol, Err: err})
			continue
		}

		res := CheckResult{
			Symbol:    symbol,
			Decision:  Evaluate(pos, q.Price),
			Price:     q.Price,
			PctChange: PctChange(pos.EntryPrice, q.Price),
		}

		if res.Decision == None {
			results = append(results, res)
			continue
		}

		fill, err := e.exec.Execute(ctx, broker.Order{
			Symbol:   symbol,
			Side:     broker.Sell,
			Quantity: pos.Quantity,
		}, res.Decision.String())
		if err != nil {
			// Position stays active; the trigger can fire again next cycle.
			e.recordError(symbol, err)
			res.Err = err
			results = append(results, res)
			continue
		}
		res.Fill = &fill

		e.mu.Lock()
		if cur, ok := e.positions[symbol]; ok {
			cur.Status = StatusTriggered
			delete(e.positions, symbol)
			if err := e.store.Save(e.positions); err != nil {
				e.logger.Error("persist positions after trigger", zap.Error(err))
			}
		}
		e.mu.Unlock()

		e.logger.Info("trigger executed",
			zap.String("symbol", symbol),
			zap.String("decision", res.Decision.String()),
			zap.Float64("price", q.Price),
			zap.Float64("pct_change", res.PctChange))

		results = append(results, res)
	}

	e.mu.Lock()
	e.state.LastCheck = time.Now()
	e.mu.Unlock()

	return results, nil
}

// Status returns the run state and every monitored position with its
// unrealized move. Read-only: quote failures are reported per symbol and
// nothing else changes.
func (e *Engine) Status(ctx context.Context) (RunState, []PositionStatus) {
	e.mu.Lock()
	state := e.state
	positions := make([]Position, 0, len(e.positions))
	for _, p := range e.positions {
		positions = append(positions, *p)
	}
	e.mu.Unlock()

	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	out := make([]PositionStatus, 0, len(positions))
	for _, p := range positions {
		st := PositionStatus{Position: p}
		if q, err := e.getQuote(ctx, p.Symbol); err != nil {
			st.QuoteErr = err.Error()
		} else {
			st.CurrentPrice = q.Price
			st.PctChange = PctChange(p.EntryPrice, q.Price)
		}
		out = append(out, st)
	}
	return state, out
}

func (e *Engine) getQuote(ctx context.Context, symbol string) (broker.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, e.quoteTimeout)
	defer cancel()
	return e.quotes.GetQuote(ctx, symbol)
}

func (e *Engine) recordError(symbol string, err error) {
	e.mu.Lock()
	e.state.LastError = fmt.Sprintf("%s: %v", symbol, err)
	e.mu.Unlock()

	e.logger.Warn("symbol check failed", zap.String("symbol", symbol), zap.Error(err))
}
