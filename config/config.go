package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Mode      string          `json:"mode" yaml:"mode"` // "paper" or "live"
	Paper     PaperConfig     `json:"paper" yaml:"paper"`
	Bot       BotConfig       `json:"bot" yaml:"bot"`
	Rebalance RebalanceConfig `json:"rebalance" yaml:"rebalance"`
	Risk      RiskConfig      `json:"risk" yaml:"risk"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

type PaperConfig struct {
	StatePath    string  `json:"state_path" yaml:"state_path"`
	StartingCash float64 `json:"starting_cash" yaml:"starting_cash"`
}

type BotConfig struct {
	PositionsPath string `json:"positions_path" yaml:"positions_path"`
	OrderTimeout  string `json:"order_timeout" yaml:"order_timeout"` // e.g. "10s"
	RetryBudget   string `json:"retry_budget" yaml:"retry_budget"`   // e.g. "30s"
}

type RebalanceConfig struct {
	CashBuffer       float64 `json:"cash_buffer" yaml:"cash_buffer"`
	FractionalShares bool    `json:"fractional_shares" yaml:"fractional_shares"`
	MinNotional      float64 `json:"min_notional" yaml:"min_notional"`
}

// RiskConfig sets pre-trade limits on buys. Zero values disable the
// corresponding check.
type RiskConfig struct {
	MaxOrderPct  float64 `json:"max_order_pct" yaml:"max_order_pct"`
	MaxPositions int     `json:"max_positions" yaml:"max_positions"`
	MinCash      float64 `json:"min_cash" yaml:"min_cash"`
}

type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite", or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	File        string `json:"file,omitempty" yaml:"file,omitempty"`
	Development bool   `json:"development" yaml:"development"`
}

// OrderTimeout parses the configured order timeout.
func (b BotConfig) OrderTimeoutDuration() (time.Duration, error) {
	if b.OrderTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(b.OrderTimeout)
}

// RetryBudgetDuration parses the configured retry budget.
func (b BotConfig) RetryBudgetDuration() (time.Duration, error) {
	if b.RetryBudget == "" {
		return 0, nil
	}
	return time.ParseDuration(b.RetryBudget)
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Mode {
	case "paper", "live":
	default:
		return fmt.Errorf("mode must be 'paper' or 'live', got %q", c.Mode)
	}
	if c.Mode == "paper" {
		if c.Paper.StatePath == "" {
			return fmt.Errorf("paper.state_path is required in paper mode")
		}
		if c.Paper.StartingCash <= 0 {
			return fmt.Errorf("paper.starting_cash must be positive")
		}
	}
	if _, err := c.Bot.OrderTimeoutDuration(); err != nil {
		return fmt.Errorf("bot.order_timeout: %w", err)
	}
	if _, err := c.Bot.RetryBudgetDuration(); err != nil {
		return fmt.Errorf("bot.retry_budget: %w", err)
	}
	if c.Rebalance.CashBuffer < 0 || c.Rebalance.CashBuffer >= 1 {
		return fmt.Errorf("rebalance.cash_buffer must be in [0,1)")
	}
	if c.Rebalance.MinNotional < 0 {
		return fmt.Errorf("rebalance.min_notional must not be negative")
	}
	if c.Risk.MaxOrderPct < 0 || c.Risk.MaxOrderPct > 1 {
		return fmt.Errorf("risk.max_order_pct must be in [0,1]")
	}
	if c.Risk.MaxPositions < 0 {
		return fmt.Errorf("risk.max_positions must not be negative")
	}
	if c.Risk.MinCash < 0 {
		return fmt.Errorf("risk.min_cash must not be negative")
	}
	switch strings.ToLower(c.Journal.Type) {
	case "csv":
		if c.Journal.TradesFile == "" {
			return fmt.Errorf("journal.trades_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite', or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults: paper mode,
// state files in the working directory, SQLite journal.
func Default() *Config {
	return &Config{
		Mode: "paper",
		Paper: PaperConfig{
			StatePath:    ".paper_state.json",
			StartingCash: 100000,
		},
		Bot: BotConfig{
			PositionsPath: ".bot_positions.json",
			OrderTimeout:  "10s",
			RetryBudget:   "30s",
		},
		Rebalance: RebalanceConfig{
			CashBuffer:  0.02,
			MinNotional: 10,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: ".trades.db",
		},
	}
}
