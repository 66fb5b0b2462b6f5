package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/data"
	"github.com/KotFed0t/crypto_vault_tracker/data/cache"
	"github.com/KotFed0t/crypto_vault_tracker/data/repository/postgres"
	"github.com/KotFed0t/crypto_vault_tracker/internal/apiserver"
	"github.com/KotFed0t/crypto_vault_tracker/internal/auth"
	"github.com/KotFed0t/crypto_vault_tracker/internal/externalApi/apiNinjasApi"
	"github.com/KotFed0t/crypto_vault_tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/crypto_vault_tracker/internal/externalApi/coinMarketCapApi"
	"github.com/KotFed0t/crypto_vault_tracker/internal/metrics"
	"github.com/KotFed0t/crypto_vault_tracker/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/crypto_vault_tracker/internal/scheduler"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/allocationLedger"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/authService"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/portfolioService"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/priceOracle"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/reportService"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/snapshotStore"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/valuation"
	"github.com/KotFed0t/crypto_vault_tracker/internal/transport/rest"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	slog.Debug("config loaded", slog.String("allocationsTotalWeight", cfg.Valuation.Allocations.TotalWeight().String()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	recorder := metrics.New(prometheus.DefaultRegisterer)

	seed := rand.NewSource(time.Now().UnixNano())
	simulated := priceOracle.NewSimulated(rand.NewSource(seed.Int63()))
	oracle := priceOracle.New(
		simulated,
		recorder,
		priceOracle.NewGuarded(coinMarketCapApi.New(cfg), cfg.Breaker.MaxFailures, cfg.Breaker.OpenTimeout, cfg.API.CoinMarketCap.RPS),
		priceOracle.NewGuarded(apiNinjasApi.New(cfg), cfg.Breaker.MaxFailures, cfg.Breaker.OpenTimeout, cfg.API.ApiNinjas.RPS),
	)

	engine := valuation.New(cfg.Valuation.Allocations, cfg.TickElapsedFraction(), cfg.Valuation.StableYield)
	ledger := allocationLedger.New(pgRepo, cfg.Valuation.Allocations, rand.NewSource(seed.Int63()))
	store := snapshotStore.New(cfg, pgRepo, redisCache, recorder)
	guard := scheduler.NewTickGuard(recorder)

	portfolioSrv := portfolioService.New(cfg, oracle, engine, ledger, store, guard, pgRepo, recorder, rand.NewSource(seed.Int63()))

	authSrv := authService.New(cfg, pgRepo, auth.NewTokens(cfg.Auth.TokenSecret))
	if err := authSrv.SeedAdmin(utils.NewCtxWithRqID(ctx)); err != nil {
		slog.Error("failed to seed admin", slog.String("err", err.Error()))
	}

	sched := scheduler.New()
	sched.NewIntervalJob("portfolio tick", portfolioSrv.ScheduledTick, cfg.Jobs.TickInterval, cfg.Jobs.TickStartDelay)

	var uploader reportService.Uploader
	if cfg.GoogleDrive.CredentialsFile != "" {
		drive, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			slog.Error("google drive disabled", slog.String("err", err.Error()))
		} else {
			uploader = drive
			sched.NewIntervalJob("drive cleanup", drive.DeleteOldFiles, cfg.Jobs.DriveCleanupInterval, cfg.Jobs.DriveCleanupInterval)
		}
	}
	reportSrv := reportService.New(store, xslsxGenerator.New(), uploader)

	sched.Start()
	defer sched.Stop()

	ctrl := rest.NewController(cfg, portfolioSrv, authSrv, reportSrv)
	router := rest.NewRouter(cfg, ctrl, authSrv, promhttp.Handler())

	server := apiserver.New(cfg, router)
	serverErr := server.Start()
	defer server.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-interrupt:
		slog.Info("shutting down", slog.String("signal", sig.String()))
	case err, ok := <-serverErr:
		if ok {
			slog.Error("api server failed", slog.String("err", err.Error()))
		}
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
