package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attaboy/matchwager/internal/app"
	"github.com/attaboy/matchwager/internal/auth"
	"github.com/attaboy/matchwager/internal/guard"
	"github.com/attaboy/matchwager/internal/handler"
	"github.com/attaboy/matchwager/internal/infra"
	"github.com/attaboy/matchwager/internal/oracle"
	"github.com/attaboy/matchwager/internal/pause"
	"github.com/attaboy/matchwager/internal/registry"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/attaboy/matchwager/internal/wager"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	owner, oracleAddr, engineAddr, err := cfg.Principals()
	if err != nil {
		return fmt.Errorf("principals: %w", err)
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Pause switch
	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()
	pauseSwitch := pause.NewRedis(rdb, cfg.PauseKey)
	logger.Info("connected to redis", "pause_key", cfg.PauseKey)

	// Storage and the external asset registry
	store := repository.NewPgStore(pool, repository.NewOutboxRepository(), cfg.TxMaxRetries, logger)
	assets := guard.NewBreakerRegistry(
		registry.NewPostgres(pool),
		guard.NewCircuitBreaker(cfg.RegistryFailThreshold, cfg.RegistryResetTimeout),
	)

	// Services
	oracleSvc, err := oracle.NewService(ctx, owner, oracleAddr, store, pauseSwitch, logger)
	if err != nil {
		return fmt.Errorf("init match oracle: %w", err)
	}
	engine, err := wager.NewEngine(engineAddr, store, assets, pauseSwitch, logger)
	if err != nil {
		return fmt.Errorf("init wager engine: %w", err)
	}

	// Guards
	limiter := guard.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go limiter.Start(ctx)

	r := app.NewRouter(app.RouterDeps{
		Oracle:      oracleSvc,
		Engine:      engine,
		JWTMgr:      auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry),
		Logger:      logger,
		RateLimiter: limiter,
		Idempotency: guard.NewIdempotencyGuard(cfg.IdempotencyTTL),
		HealthChecks: []handler.HealthCheck{
			{Name: "postgres", Check: func(ctx context.Context) error { return infra.HealthCheck(ctx, pool) }},
			{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr,
			"owner", owner.Hex(), "engine", engineAddr.Hex())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
