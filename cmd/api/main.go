package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/faceguard/faceguard/internal/config"
	"github.com/faceguard/faceguard/internal/infra"
	"github.com/faceguard/faceguard/internal/logging"
	"github.com/faceguard/faceguard/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	db, err := infra.ConnectPostgres(ctx, cfg)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	cache, err := infra.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	logger.Info("starting faceguard",
		"env", cfg.AppEnv,
		"store", cfg.StoreBackend,
		"postgres", db != nil,
		"redis", cache != nil,
		"addr", cfg.Address(),
	)

	srv, err := server.New(cfg, db, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
