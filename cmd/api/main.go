package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nayhtetaung/feedledger-backend/api/routes"
	"github.com/nayhtetaung/feedledger-backend/internal/batches"
	"github.com/nayhtetaung/feedledger-backend/internal/inventory"
	"github.com/nayhtetaung/feedledger-backend/internal/ledger"
	"github.com/nayhtetaung/feedledger-backend/internal/parties"
	"github.com/nayhtetaung/feedledger-backend/internal/sales"
	"github.com/nayhtetaung/feedledger-backend/pkg/config"
	"github.com/nayhtetaung/feedledger-backend/pkg/db"
	"github.com/nayhtetaung/feedledger-backend/pkg/logger"
	"github.com/nayhtetaung/feedledger-backend/pkg/metrics"
	"github.com/nayhtetaung/feedledger-backend/pkg/migrate"
	"github.com/nayhtetaung/feedledger-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	gdb := dbClient.DB()
	partyRepo := parties.NewRepository(gdb)
	batchRepo := batches.NewRepository(gdb)
	inventoryRepo := inventory.NewRepository(gdb)
	ledgerRepo := ledger.NewRepository(gdb)
	saleRepo := sales.NewRepository(gdb)

	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	partyService, err := parties.NewService(partyRepo, ledgerRepo, dbClient, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create parties service", err)
		os.Exit(1)
	}
	batchService, err := batches.NewService(batchRepo, partyRepo, ledgerRepo, dbClient, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create batches service", err)
		os.Exit(1)
	}
	inventoryService, err := inventory.NewService(inventoryRepo, ledgerRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	saleService, err := sales.NewService(saleRepo, partyRepo, batchRepo, inventoryRepo, inventoryService, ledgerRepo, dbClient, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Registry:  registry,
			Parties:   partyService,
			Batches:   batchService,
			Inventory: inventoryService,
			Sales:     saleService,
			Ledger:    ledgerService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
