package paper

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/foliobot/foliobot/broker"
	"github.com/foliobot/foliobot/internal/id"
)

var (
	// ErrInsufficientFunds means a buy exceeds available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares means a sell exceeds the held quantity.
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Store owns the paper account. All reads and writes go through it;
// Apply is atomic with respect to concurrent calls (single-writer lock),
// so cash and holdings always change together or not at all.
type Store struct {
	mu     sync.Mutex
	path   string
	acct   Account
	logger *zap.Logger
}

// Open loads the account from path. A missing or malformed state file
// yields a fresh account funded with startingCash rather than a startup
// failure.
func Open(path string, startingCash float64, logger *zap.Logger) *Store {
	s := &Store{
		path:   path,
		acct:   NewAccount(startingCash),
		logger: logger.Named("paper"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("unreadable paper state, starting fresh", zap.Error(err))
		}
		return s
	}

	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		s.logger.Warn("malformed paper state, starting fresh",
			zap.String("path", path), zap.Error(err))
		return s
	}
	if acct.Holdings == nil {
		acct.Holdings = make(map[string]float64)
	}
	s.acct = acct
	return s
}

// Account returns a deep copy of the current account state.
func (s *Store) Account() Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acct.Clone()
}

// Apply executes a trade intent against the account at fillPrice. On
// success cash and holdings mutate together and a ledger entry is
// appended; on failure nothing changes.
func (s *Store) Apply(o broker.Order, fillPrice float64, at time.Time) (LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notional := fillPrice * o.Quantity
	prev := s.acct.Clone()

	switch o.Side {
	case broker.Buy:
		if notional > s.acct.Cash {
			return LedgerEntry{}, fmt.Errorf("buy %s %.4f @ %.2f needs %.2f, have %.2f: %w",
				o.Symbol, o.Quantity, fillPrice, notional, s.acct.Cash, ErrInsufficientFunds)
		}
		s.acct.Cash -= notional
		s.acct.Holdings[o.Symbol] += o.Quantity

	case broker.Sell:
		held := s.acct.Holdings[o.Symbol]
		if held < o.Quantity {
			return LedgerEntry{}, fmt.Errorf("sell %s %.4f, hold %.4f: %w",
				o.Symbol, o.Quantity, held, ErrInsufficientShares)
		}
		s.acct.Cash += notional
		if held == o.Quantity {
			delete(s.acct.Holdings, o.Symbol)
		} else {
			s.acct.Holdings[o.Symbol] = held - o.Quantity
		}

	default:
		return LedgerEntry{}, fmt.Errorf("unknown side %q: %w", o.Side, broker.ErrConfig)
	}

	entry := LedgerEntry{
		ID:       id.New(),
		Symbol:   o.Symbol,
		Side:     o.Side,
		Quantity: o.Quantity,
		Price:    fillPrice,
		Time:     at,
	}
	s.acct.Ledger = append(s.acct.Ledger, entry)

	if err := s.saveLocked(); err != nil {
		s.acct = prev // the trade is not applied unless it is durable
		return LedgerEntry{}, fmt.Errorf("persist paper state: %w", err)
	}
	return entry, nil
}

// saveLocked writes the account atomically: temp file then rename.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.acct, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
