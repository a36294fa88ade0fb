package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/akhilnathan/shopsite-backend/api/routes"
	"github.com/akhilnathan/shopsite-backend/internal/addresses"
	"github.com/akhilnathan/shopsite-backend/internal/cart"
	"github.com/akhilnathan/shopsite-backend/internal/catalog"
	"github.com/akhilnathan/shopsite-backend/internal/checkout"
	"github.com/akhilnathan/shopsite-backend/internal/coupons"
	"github.com/akhilnathan/shopsite-backend/internal/inventory"
	"github.com/akhilnathan/shopsite-backend/internal/orders"
	"github.com/akhilnathan/shopsite-backend/internal/reviews"
	"github.com/akhilnathan/shopsite-backend/internal/users"
	"github.com/akhilnathan/shopsite-backend/internal/wishlist"
	"github.com/akhilnathan/shopsite-backend/pkg/config"
	"github.com/akhilnathan/shopsite-backend/pkg/db"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/akhilnathan/shopsite-backend/pkg/metrics"
	"github.com/akhilnathan/shopsite-backend/pkg/migrate"
	"github.com/akhilnathan/shopsite-backend/pkg/outbox"
	"github.com/akhilnathan/shopsite-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gdb := dbClient.DB()
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
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

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gdb), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartSvc, err := cart.NewService(cart.NewRepository(gdb), catalogSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	couponRepo := coupons.NewRepository(gdb)
	couponSvc, err := coupons.NewService(couponRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupons service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(
		dbClient,
		checkout.NewRepository(gdb),
		cartSvc,
		couponSvc,
		inventorySvc,
		couponRepo,
		outboxSvc,
		logg,
		checkoutMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(gdb), dbClient, inventorySvc, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	usersSvc, err := users.NewService(users.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	addressSvc, err := addresses.NewService(gdb)
	if err != nil {
		logg.Error(context.Background(), "failed to create addresses service", err)
		os.Exit(1)
	}

	wishlistSvc, err := wishlist.NewService(gdb)
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	reviewsSvc, err := reviews.NewService(gdb)
	if err != nil {
		logg.Error(context.Background(), "failed to create reviews service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Users:     usersSvc,
			Catalog:   catalogSvc,
			Cart:      cartSvc,
			Coupons:   couponSvc,
			Checkout:  checkoutSvc,
			Orders:    ordersSvc,
			Inventory: inventorySvc,
			Addresses: addressSvc,
			Wishlist:  wishlistSvc,
			Reviews:   reviewsSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
