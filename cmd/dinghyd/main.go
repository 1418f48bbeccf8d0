package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/escrow"
	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/ledger"
	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/server"
	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/store"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"dinghyd.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	DataDir  string `short:"d" long:"data-dir" help:"Snapshot directory (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	if CLI.Addr != "" {
		cfg.Server.Addr = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DataDir != "" {
		cfg.Server.DataDir = CLI.DataDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	st, err := store.New(cfg.Server.DataDir, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		ctx.Exit(1)
	}

	bank := ledger.New()
	balances, err := st.LoadLedger()
	if err != nil {
		logger.Error("failed to load ledger snapshot", "error", err)
		ctx.Exit(1)
	}
	if balances != nil {
		// A persisted ledger supersedes config seeding: re-crediting
		// accounts on restart would mint funds the records already spent.
		bank.Restore(balances)
		logger.Info("restored ledger", "accounts", len(balances))
	} else {
		for _, acct := range cfg.Accounts {
			if err := bank.Deposit(acct.Name, acct.Balance); err != nil {
				logger.Error("failed to seed account", "account", acct.Name, "error", err)
				ctx.Exit(1)
			}
			logger.Info("seeded account", "account", acct.Name, "balance", acct.Balance)
		}
	}

	machine := escrow.NewMachine(bank, quartz.NewReal(), logger, cfg.MachineConfig())

	service := server.NewService(machine, bank, st, logger)
	if cfg.Server.Faucet {
		logger.Warn("dev-mode faucet enabled")
		service.EnableFaucet()
	}

	records, err := st.LoadAll()
	if err != nil {
		logger.Error("failed to load snapshots", "error", err)
		ctx.Exit(1)
	}
	service.Restore(records)

	srv := server.NewServer(cfg.Server.Addr, service, cfg.Validator(), logger)

	logger.Info("starting Battle Dinghy escrow server",
		"addr", cfg.Server.Addr,
		"dataDir", cfg.Server.DataDir,
		"reserve", cfg.MachineConfig().Reserve,
		"games", len(records))

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server failed", "error", err)
		ctx.Exit(1)
	}
	logger.Info("server stopped")
}
