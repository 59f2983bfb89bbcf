package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio_tracker/internal/infrastructure/bootstrap"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/restapi"
	"portfolio_tracker/internal/pkg/logger"
	"portfolio_tracker/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const defaultConfigPath = "config/config.yml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := configloader.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.Init(logger.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	appLogger := logger.NewSlogAdapter()
	logger.Info("Portfolio tracker starting", "config", configPath)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	app, err := bootstrap.New(ctx, cfg, zapLogger, appLogger)
	if err != nil {
		logger.Fatal("Failed to initialize application", "error", err)
	}
	defer app.Close()

	reloadTimeout := configloader.Seconds(cfg.Performance.ReloadTimeoutSeconds)

	// Initial load in the background; the API serves an empty live portfolio until it lands.
	go func() {
		reloadCtx, reloadCancel := context.WithTimeout(ctx, reloadTimeout)
		defer reloadCancel()
		report, err := app.Tracker.Reload(reloadCtx)
		if err != nil {
			logger.Warn("Initial reload did not publish", "error", err)
			return
		}
		logger.Info("Initial reload completed", "generation", report.Generation, "totalUSD", report.TotalValueUSD, "errors", len(report.Errors))
	}()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewPortfolioHandler(app.Tracker, reloadTimeout, appLogger)
	router := restapi.SetupRouter(handler, restapi.RouterOptions{
		CORSAllowOrigins: cfg.Server.CORSAllowOrigins,
		EnableSwagger:    cfg.Server.EnableSwagger,
		SwaggerFile:      "./docs/swagger.yaml",
		EnablePprof:      cfg.Server.EnablePprof,
	}, zapLogger.Named("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  configloader.Seconds(cfg.Server.ReadTimeout),
		WriteTimeout: configloader.Seconds(cfg.Server.WriteTimeout),
		IdleTimeout:  configloader.Seconds(cfg.Server.IdleTimeout),
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting")
}
