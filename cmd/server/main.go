package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/api"
	"github.com/Harshitk-cp/practicedesk/internal/buildconfig"
	"github.com/Harshitk-cp/practicedesk/internal/config"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"go.uber.org/zap"
)

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	backend, err := store.Open(ctx, store.Options{
		Driver:         config.StoreDriver(),
		DatabaseURL:    config.DatabaseURL(),
		MigrationsPath: config.MigrationsPath(),
	}, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer backend.Close()

	if !config.MultiTenancyEnabled() {
		logger.Warn("multi-tenancy guard disabled; operations run unscoped")
	}

	app := api.NewApp(api.Deps{
		Executor:    backend.Executor,
		Pool:        backend.Pool,
		AuditWriter: backend.AuditWriter,
	}, logger)
	app.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("store", config.StoreDriver()),
			zap.String("version", buildconfig.Version()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	app.Stop()
	logger.Info("server stopped")
}
