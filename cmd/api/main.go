package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/congo-pay/wallet_bff/internal/config"
	"github.com/congo-pay/wallet_bff/internal/funding"
	"github.com/congo-pay/wallet_bff/internal/infra"
	"github.com/congo-pay/wallet_bff/internal/logging"
	"github.com/congo-pay/wallet_bff/internal/metrics"
	"github.com/congo-pay/wallet_bff/internal/notification"
	"github.com/congo-pay/wallet_bff/internal/querycache"
	"github.com/congo-pay/wallet_bff/internal/routes"
	"github.com/congo-pay/wallet_bff/internal/server"
	"github.com/congo-pay/wallet_bff/internal/session"
	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache == nil && !cfg.IsDev() {
		logger.Error("REDIS_URL is required", "env", cfg.AppEnv)
		os.Exit(1)
	}
	defer func() {
		if cache == nil {
			return
		}
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}()

	var queries querycache.Store = querycache.NewMemory()
	if cache != nil {
		queries = querycache.NewRedis(cache)
	} else {
		logger.Warn("redis disabled, using in-process query cache")
	}

	m := metrics.New()
	wallet := walletapi.New(walletapi.Options{
		BaseURL:  cfg.WalletAPIURL,
		Timeout:  cfg.WalletAPITimeout,
		Logger:   logger,
		Observer: m,
	})
	sessions := session.NewStore(session.Options{
		Capacity: cfg.MaxSessions,
		IdleTTL:  cfg.SessionTTL,
		Logger:   logger,
		OnChange: m.SetSessions,
	})
	go sessions.Run(ctx, time.Minute)

	svc, err := funding.NewService(funding.ServiceOptions{
		Wallet:   wallet,
		Queries:  queries,
		QueryTTL: cfg.QueryCacheTTL,
		Sessions: sessions,
		Notifier: notification.NewLoggerNotifier(logger),
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("build funding service", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		Cache:    cache,
		Logger:   logger,
		Funding:  svc,
		Sessions: sessions,
		Metrics:  m,
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
	stop()

	logger.Info("server exited cleanly")
}
