/*
main.go - Application entry point

PURPOSE:
  The capacity command line: serves the HTTP API and runs the engine
  against CSV tables from the shell.

STARTUP SEQUENCE (every command):
  1. Initialize logger (console + JSON file under logs/)
  2. Load configuration (capacity_config[.<env>].yaml or defaults)
  3. Open the history store (memory, sqlite or postgres)
  4. Build engine, period calendar and session

COMMANDS:
  serve         Start the HTTP API
  compute       Load tables, optionally apply overrides, print metrics
  unit          Compute one unit from a baseline (manual mode)
  snapshot      Compute from tables and append a snapshot to history
  history       Print or export the history ledger
  next-period   Propose the label of the next snapshot

GLOBAL FLAGS:
  -e, --env     Environment name, prefixes log files and selects
                capacity_config.<env>.yaml (default: dev)
  --config      Explicit config file path
  --logs        Log directory (default: logs)

EXAMPLES:
  capacity serve --port 3000
  capacity compute --outputs outputs.csv --arrivals arrivals.csv \
      --overrides weights.csv
  capacity snapshot --baselines baselines.csv --period "2025 Q4"

SEE ALSO:
  - serve.go: HTTP server with graceful shutdown
  - commands.go: Engine commands
  - internal/config/config.go: Configuration file
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/generic/store"
	"github.com/warp/capacity-engine/internal/config"
	"github.com/warp/capacity-engine/internal/logging"
	"github.com/warp/capacity-engine/store/postgres"
	"github.com/warp/capacity-engine/store/sqlite"
)

// App holds the application dependencies
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	engine     *capacity.Engine
	session    *capacity.Session
	closeStore func()
	ctx        context.Context
}

var (
	env        string
	configPath string
	logsDir    string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "capacity",
		Short:         "Workforce capacity and backlog engine",
		Long:          `Computes per-unit staffing metrics from arrivals and baselines, rolls them up statewide, and keeps a history of period snapshots.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "dev", "Environment (dev, test, prod, etc.)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: capacity_config[.<env>].yaml)")
	rootCmd.PersistentFlags().StringVar(&logsDir, "logs", logging.DefaultDir, "Log directory")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(computeCmd())
	rootCmd.AddCommand(unitCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(nextPeriodCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, store, engine and session
func initApp() error {
	var err error
	app = &App{
		ctx:        context.Background(),
		closeStore: func() {},
	}

	app.logger, err = logging.InitLogger(env, logsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.logger.Debug("Starting application", zap.String("environment", env))

	if configPath != "" {
		app.cfg, err = config.LoadFromPath(configPath)
	} else {
		app.cfg, err = config.Load(env)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded",
		zap.String("store", app.cfg.Store.Driver),
		zap.String("periods", app.cfg.Periods.RRule))

	historyStore, closeStore, err := openStore(app.ctx, app.cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	app.closeStore = closeStore

	app.engine, err = capacity.NewEngine(app.cfg.Settings(), app.logger.Named("engine"))
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	calendar, err := app.cfg.Calendar()
	if err != nil {
		return err
	}

	history := capacity.NewHistoryLedger(generic.NewLedger(historyStore))
	app.session = capacity.NewSession(app.engine, history, calendar, app.logger.Named("session"))
	return nil
}

func closeApp() {
	if app == nil {
		return
	}
	app.closeStore()
	if app.logger != nil {
		app.logger.Sync()
	}
}

// openStore selects the history store backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (generic.Store, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := sqlite.New(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
