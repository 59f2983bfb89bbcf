// Package bootstrap wires configuration into the tracker and its adapters.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/app/provider"
	"portfolio_tracker/internal/app/service"
	dexclient "portfolio_tracker/internal/client"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/kvstore"
	"portfolio_tracker/internal/infrastructure/moralis"
	clientprovider "portfolio_tracker/internal/infrastructure/network/client"
	networkdefinition "portfolio_tracker/internal/infrastructure/network/definition"
	"portfolio_tracker/internal/infrastructure/tokenloader"
	"portfolio_tracker/internal/infrastructure/walletloader"

	"go.uber.org/zap"
)

// App is the wired application.
type App struct {
	Tracker  *service.Tracker
	Networks port.NetworkDefinitionProvider
	closers  []io.Closer
}

// New builds the tracker described by cfg. Logging must already be initialized.
func New(ctx context.Context, cfg *configloader.Config, zapLogger *zap.Logger, appLogger port.Logger) (*App, error) {
	app := &App{}
	networks := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.RPC.Endpoints)
	app.Networks = networks

	store, err := app.newStore(ctx, cfg.Storage, appLogger)
	if err != nil {
		return nil, err
	}

	var moralisClient *moralis.MoralisClient
	if cfg.UsesMoralis() {
		moralisClient = moralis.NewMoralisClient(moralis.Config{
			BaseURL:    cfg.Moralis.BaseURL,
			APIKey:     cfg.Moralis.APIKey,
			Timeout:    configloader.Seconds(cfg.Moralis.TimeoutSeconds),
			RateLimit:  cfg.Moralis.RateLimitPerMinute,
			MaxRetries: cfg.Moralis.MaxRetries,
		}, networks, zapLogger.Named("MoralisClient"))
		app.closers = append(app.closers, moralisClient)
	}

	var balances port.BalanceRetriever
	switch cfg.Sources.Balances {
	case configloader.SourceRPC:
		tokens := provider.NewTokenProvider(tokenloader.NewTokenLoader(cfg.RPC.TokensDir, appLogger), appLogger)
		clients := clientprovider.NewEVMClientProvider(configloader.Seconds(cfg.RPC.CallTimeoutSeconds), appLogger)
		balances = clientprovider.NewRPCBalanceRetriever(clients, networks, tokens, appLogger)
	default:
		balances = moralisClient
	}

	var prices port.PriceRetriever
	switch cfg.Sources.Prices {
	case configloader.SourceDEXScreener:
		dex := dexclient.NewDEXScreenerClient(
			cfg.DEXScreener.BaseURL,
			time.Duration(cfg.DEXScreener.RequestTimeoutMillis)*time.Millisecond,
			zapLogger,
			cfg.DEXScreener.MaxTokensPerRequest,
		)
		prices = dexclient.NewDEXScreenerPriceRetriever(dex, networks, zapLogger)
	default:
		prices = moralisClient
	}

	var seeds port.AccountSeedProvider
	if cfg.Tracker.WalletsFile != "" {
		seeds = provider.NewAccountSeedProvider(walletloader.NewWalletFileLoader(cfg.Tracker.WalletsFile, appLogger), appLogger)
	}

	tracker, err := service.NewTracker(ctx, service.TrackerDeps{
		Balances: balances,
		Prices:   prices,
		Networks: networks,
		Store:    store,
		Seeds:    seeds,
		Logger:   appLogger,
	}, service.TrackerOptions{
		TopAssets:            cfg.Tracker.TopAssets,
		DustThreshold:        cfg.Tracker.DustThreshold,
		MergeDuplicates:      cfg.Tracker.MergeDuplicates,
		HideDust:             cfg.Tracker.HideDustEnabled(),
		MaxConcurrentWallets: cfg.Performance.MaxConcurrentWallets,
		MaxConcurrentPrices:  cfg.Performance.MaxConcurrentPrices,
		ReloadOnChange:       true,
		ReloadTimeout:        configloader.Seconds(cfg.Performance.ReloadTimeoutSeconds),
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize tracker: %w", err)
	}
	app.Tracker = tracker

	appLogger.Info("Application wired",
		"balances", cfg.Sources.Balances,
		"prices", cfg.Sources.Prices,
		"storage", cfg.Storage.Driver)
	return app, nil
}

func (a *App) newStore(ctx context.Context, cfg configloader.StorageConfig, logger port.Logger) (port.KeyValueStore, error) {
	switch cfg.Driver {
	case configloader.StorageRedis:
		store, err := kvstore.NewRedisStore(ctx, kvstore.RedisConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			KeyPrefix:   cfg.Redis.KeyPrefix,
			DialTimeout: configloader.Seconds(cfg.Redis.DialTimeoutSeconds),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case configloader.StorageMemory:
		return kvstore.NewMemoryStore(), nil
	default:
		return kvstore.NewFileStore(cfg.FilePath, logger)
	}
}

// Close releases network clients and connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
