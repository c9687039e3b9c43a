package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/ftledger/internal/config"
	"github.com/congo-pay/ftledger/internal/infra"
	"github.com/congo-pay/ftledger/internal/logging"
	"github.com/congo-pay/ftledger/internal/routes"
	"github.com/congo-pay/ftledger/internal/server"
	"github.com/congo-pay/ftledger/internal/token"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	backend, err := infra.OpenLedger(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		logger.Error("open ledger store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("close ledger store", "error", err)
		}
	}()
	logger.Info("ledger store ready", "backend", backend.Kind)

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	var genesis *token.Genesis
	if cfg.GenesisFile != "" {
		g, err := config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			logger.Error("load genesis", "error", err)
			os.Exit(1)
		}
		genesis = &token.Genesis{Owner: g.Owner, TotalSupply: g.TotalSupply, Metadata: g.Metadata}
	}

	srv, err := server.New(routes.Deps{
		Cfg:     cfg,
		DB:      backend.DB,
		SQLite:  backend.SQLite,
		Cache:   cache,
		Store:   backend.Store,
		Logger:  logger,
		Genesis: genesis,
	})
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
