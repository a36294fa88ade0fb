package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/akhilnathan/shopsite-backend/internal/cron"
	"github.com/akhilnathan/shopsite-backend/internal/inventory"
	"github.com/akhilnathan/shopsite-backend/pkg/config"
	"github.com/akhilnathan/shopsite-backend/pkg/db"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/akhilnathan/shopsite-backend/pkg/metrics"
	"github.com/akhilnathan/shopsite-backend/pkg/migrate"
	"github.com/akhilnathan/shopsite-backend/pkg/outbox"
	"github.com/akhilnathan/shopsite-backend/pkg/redis"
)

const (
	cronLockKey = "cron:worker:leader"
	cronLockTTL = 4 * time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var lock cron.Lock = cron.NoopLock{}
	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Warn(context.Background(), "redis unavailable, running without a leader lock")
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisLock, err := cron.NewRedisLock(redisClient, cronLockKey, cronLockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
	}

	gdb := dbClient.DB()
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	inventorySvc, err := inventory.NewService(
		inventory.NewRepository(gdb),
		dbClient,
		logg,
		outboxSvc,
		checkoutMetrics,
		inventory.Config{
			ReservationTTL:    cfg.Checkout.ReservationTTL,
			LowStockThreshold: cfg.Checkout.LowStockThreshold,
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewReservationSweepJob(cron.ReservationSweepJobParams{
		Logger:    logg,
		Inventory: inventorySvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation sweep job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Tick,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "cron worker shut down")
}
