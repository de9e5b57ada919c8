// Package main is the entry point for the retailcore background worker.
// It runs the periodic maintenance jobs: promotion expiry, balance
// reconciliation, refresh token cleanup and idempotency key cleanup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"retailcore/internal/domain/auth"
	"retailcore/internal/domain/promotion"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/storage/postgres"
	"retailcore/internal/infrastructure/storage/postgres/auth_repo"
	"retailcore/internal/infrastructure/storage/postgres/promo_repo"
	"retailcore/internal/infrastructure/storage/postgres/stock_repo"
	"retailcore/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting retailcore worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	ledger := stock.NewService(stock_repo.NewStockRepo(txManager), txManager)
	promotions := promotion.NewService(promo_repo.NewPromotionRepo(txManager), txManager)
	authService := auth.NewService(
		auth_repo.NewUserRepo(txManager),
		auth_repo.NewRoleRepo(txManager),
		auth_repo.NewTokenRepo(txManager),
		txManager,
		nil,
		auth.DefaultServiceConfig(),
	)
	idempotency := postgres.NewIdempotencyStore(txManager, getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute))

	var wg sync.WaitGroup

	runPeriodic(ctx, &wg, "promotion-expiry", getEnvDuration("PROMOTION_EXPIRY_INTERVAL", time.Minute), func(ctx context.Context) error {
		expired, err := promotions.ExpireOverdue(ctx)
		if err != nil {
			return err
		}
		if expired > 0 {
			log.Infow("expired promotions", "count", expired)
		}
		return nil
	}, log)

	runPeriodic(ctx, &wg, "stock-reconcile", getEnvDuration("RECONCILE_INTERVAL", time.Hour), func(ctx context.Context) error {
		drifts, err := ledger.Reconcile(ctx, nil)
		if err != nil {
			return err
		}
		if len(drifts) > 0 {
			log.Warnw("repaired stock balance drift", "count", len(drifts))
		}
		return nil
	}, log)

	runPeriodic(ctx, &wg, "token-cleanup", getEnvDuration("TOKEN_CLEANUP_INTERVAL", time.Hour), func(ctx context.Context) error {
		removed, err := authService.CleanupExpiredTokens(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Infow("removed expired refresh tokens", "count", removed)
		}
		return nil
	}, log)

	runPeriodic(ctx, &wg, "idempotency-cleanup", getEnvDuration("IDEMPOTENCY_CLEANUP_INTERVAL", time.Hour), func(ctx context.Context) error {
		removed, err := idempotency.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Infow("removed expired idempotency keys", "count", removed)
		}
		return nil
	}, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	wg.Wait()
	log.Info("worker stopped")
}

// runPeriodic runs fn every interval until the context is cancelled. The
// first run happens after one interval, not at startup, so a crash-looping
// worker does not hammer the database.
func runPeriodic(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, fn func(ctx context.Context) error, log *logger.Logger) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					log.Errorw("periodic job failed", "job", name, "error", err)
				}
			}
		}
	}()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
