package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliobot/foliobot/bot"
	"github.com/foliobot/foliobot/broker"
	alpacabroker "github.com/foliobot/foliobot/broker/alpaca"
	"github.com/foliobot/foliobot/config"
	"github.com/foliobot/foliobot/executor"
	"github.com/foliobot/foliobot/journal"
	"github.com/foliobot/foliobot/logging"
	"github.com/foliobot/foliobot/paper"
	"github.com/foliobot/foliobot/portfolio"
	"github.com/foliobot/foliobot/rebalance"
	"github.com/foliobot/foliobot/risk"
	"github.com/foliobot/foliobot/tools"
)

var rootCmd = &cobra.Command{
	Use:   "foliobot",
	Short: "Automated position monitoring and portfolio rebalancing",
	Long: `Foliobot watches a brokerage portfolio and acts on it.

It provides tools for:
  - Monitoring positions against stop-loss / take-profit thresholds
  - Rebalancing a portfolio toward target allocations with a cash buffer
  - Paper trading against a local, durable simulated account
  - Exposing every operation as a callable tool for AI agents`,
}

var cfgPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON)")
}

// app is everything a command needs, wired once per invocation. One
// engine instance owns the state store and run state; commands get a
// handle, never a global.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	broker    broker.Broker
	journal   journal.Journal
	exec      *executor.Executor
	engine    *bot.Engine
	snapshots *portfolio.Service
	handler   *tools.Handler
}

func newApp() (*app, error) {
	// Live credentials (APCA_*) typically live in .env.
	_ = godotenv.Load()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, err
		}
	}

	logger := logging.New(cfg.Log.File, cfg.Log.Development)

	var b broker.Broker
	if cfg.Mode == "live" {
		b = alpacabroker.New()
	} else {
		store := paper.Open(cfg.Paper.StatePath, cfg.Paper.StartingCash, logger)
		b = paper.NewBroker(store, paper.SimQuoter{}, logger)
	}

	var j journal.Journal = journal.Nop{}
	switch cfg.Journal.Type {
	case "csv":
		var err error
		j, err = journal.NewCSV(cfg.Journal.TradesFile)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	case "sqlite":
		var err error
		j, err = journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	orderTimeout, _ := cfg.Bot.OrderTimeoutDuration()
	retryBudget, _ := cfg.Bot.RetryBudgetDuration()

	exec := executor.New(b, j, logger, orderTimeout, retryBudget)
	engine := bot.NewEngine(b, exec, bot.NewPositionStore(cfg.Bot.PositionsPath, logger), logger, orderTimeout)
	snapshots := portfolio.NewService(b, logger)

	rebalOpts := rebalance.Options{
		FractionalShares: cfg.Rebalance.FractionalShares,
		MinNotional:      cfg.Rebalance.MinNotional,
	}
	policy := risk.Policy{
		MaxOrderPct:  cfg.Risk.MaxOrderPct,
		MaxPositions: cfg.Risk.MaxPositions,
		MinCash:      cfg.Risk.MinCash,
	}
	handler := tools.NewHandler(engine, snapshots, exec, rebalOpts, policy, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		broker:    b,
		journal:   j,
		exec:      exec,
		engine:    engine,
		snapshots: snapshots,
		handler:   handler,
	}, nil
}

func (a *app) close() {
	if err := a.journal.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close journal: %v\n", err)
	}
	_ = a.logger.Sync()
}
