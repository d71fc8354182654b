package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "paper", cfg.Mode)
	assert.Equal(t, 100000.0, cfg.Paper.StartingCash)
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
mode: paper
paper:
  state_path: /tmp/state.json
  starting_cash: 50000
bot:
  positions_path: /tmp/positions.json
  order_timeout: 5s
  retry_budget: 20s
rebalance:
  cash_buffer: 0.05
  fractional_shares: true
journal:
  type: csv
  trades_file: /tmp/trades.csv
log:
  development: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 50000.0, cfg.Paper.StartingCash)
	assert.True(t, cfg.Rebalance.FractionalShares)
	assert.Equal(t, "csv", cfg.Journal.Type)
	assert.True(t, cfg.Log.Development)

	timeout, err := cfg.Bot.OrderTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)

	budget, err := cfg.Bot.RetryBudgetDuration()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, budget)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{
  "mode": "paper",
  "paper": {"state_path": "/tmp/state.json", "starting_cash": 1000},
  "journal": {"type": "none"}
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cfg.Paper.StartingCash)
}

func TestLoadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "backtest" }},
		{"paper without state path", func(c *Config) { c.Paper.StatePath = "" }},
		{"non-positive starting cash", func(c *Config) { c.Paper.StartingCash = 0 }},
		{"unparseable order timeout", func(c *Config) { c.Bot.OrderTimeout = "soon" }},
		{"unparseable retry budget", func(c *Config) { c.Bot.RetryBudget = "whenever" }},
		{"cash buffer of 1", func(c *Config) { c.Rebalance.CashBuffer = 1 }},
		{"negative cash buffer", func(c *Config) { c.Rebalance.CashBuffer = -0.1 }},
		{"negative min notional", func(c *Config) { c.Rebalance.MinNotional = -5 }},
		{"max order pct over 1", func(c *Config) { c.Risk.MaxOrderPct = 1.5 }},
		{"negative max positions", func(c *Config) { c.Risk.MaxPositions = -1 }},
		{"negative min cash", func(c *Config) { c.Risk.MinCash = -100 }},
		{"csv journal without file", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }},
		{"sqlite journal without path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }},
		{"unknown journal type", func(c *Config) { c.Journal = JournalConfig{Type: "kafka"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLiveModeSkipsPaperValidation(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Mode = "live"
	cfg.Paper = PaperConfig{}

	assert.NoError(t, cfg.Validate())
}
