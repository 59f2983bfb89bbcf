// Command snapshot reloads the portfolio once, prints it and optionally stores a snapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/bootstrap"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/pkg/logger"

	jsoniter "github.com/json-iterator/go"
)

func main() {
	configPath := flag.String("config", "config/config.yml", "path to the YAML configuration")
	save := flag.Bool("save", false, "append a snapshot of the reloaded portfolio")
	show := flag.Int("show", entity.LiveSnapshotIndex, "print the stored snapshot at this index instead of reloading")
	flag.Parse()

	if err := run(*configPath, *save, *show); err != nil {
		fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, save bool, show int) error {
	cfg, err := configloader.Load(configPath)
	if err != nil {
		return err
	}
	zapLogger, err := logger.Init(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File})
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, zapLogger, logger.NewSlogAdapter())
	if err != nil {
		return err
	}
	defer app.Close()

	if show == entity.LiveSnapshotIndex {
		reloadCtx, cancel := context.WithTimeout(ctx, configloader.Seconds(cfg.Performance.ReloadTimeoutSeconds))
		defer cancel()
		report, err := app.Tracker.Reload(reloadCtx)
		if err != nil {
			return fmt.Errorf("reload failed: %w", err)
		}
		for _, e := range report.Errors {
			logger.Warn("Retrieval failure", "kind", e.Kind, "chainId", e.ChainID, "wallet", e.WalletAddress, "token", e.TokenAddress, "error", e.Message)
		}
	}

	view, err := app.Tracker.Portfolio(ctx, show)
	if err != nil {
		return err
	}
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	logger.Debug("Allocation summary", "slices", view.Allocation.Len(), "others", view.Allocation.HasOthers())

	if save && show == entity.LiveSnapshotIndex {
		snap, err := app.Tracker.SaveSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		logger.Info("Snapshot stored", "timestamp", snap.Timestamp, "totalUSD", snap.PortfolioValue)
	}
	return nil
}
