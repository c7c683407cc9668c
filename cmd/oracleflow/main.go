package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oracleflow/internal/adapter/cache"
	"oracleflow/internal/adapter/exchange"
	"oracleflow/internal/adapter/handler"
	"oracleflow/internal/adapter/history"
	"oracleflow/internal/adapter/oracle"
	"oracleflow/internal/adapter/storage"
	"oracleflow/internal/application/service"
	"oracleflow/internal/domain/port"
	"oracleflow/internal/infrastructure/config"
	"oracleflow/internal/infrastructure/logger"
	"oracleflow/internal/infrastructure/server"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to config file")
	portFlag   = flag.Int("port", 0, "Port number")
	helpFlag   = flag.Bool("help", false, "Show help")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printUsage()
		os.Exit(0)
	}

	// .env is optional; environment variables win over the config file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *portFlag != 0 {
		cfg.Server.Port = *portFlag
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting oracleflow", "network", cfg.Oracle.Network, "pairs", cfg.TrackedPairs())

	store, err := storage.NewPostgresAdapter(cfg.PostgresDSN())
	if err != nil {
		log.Error("failed to initialize postgres", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.InitSchema(context.Background()); err != nil {
		log.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	var resultCache port.CachePort
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedisAdapter(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Error("failed to initialize redis cache", "error", err)
			os.Exit(1)
		}
		resultCache = redisCache
		log.Info("using redis result cache", "addr", cfg.Cache.RedisAddr)
	} else {
		resultCache = cache.NewMemoryAdapter()
	}
	defer resultCache.Close()

	medianClient := oracle.NewCLIClient(cfg.Oracle, log.With("component", "oracle"))
	statsClient := exchange.NewStatsClient(cfg.Pairs, log.With("component", "stats"))
	bybitHistory := exchange.NewBybitHistoryClient(cfg.Pairs, log.With("component", "bybit"))
	pragmaClient := history.NewPragmaClient(cfg.Pragma, log.With("component", "pragma"))

	snapshotService := service.NewSnapshotService(
		medianClient, statsClient, store, resultCache,
		cfg.Pairs, cfg.Cache.TTL, log.With("component", "snapshot"))
	historyService := service.NewHistoryService(
		store, bybitHistory, cfg.FullHistoryPairs(), cfg.History.MinRequiredPoints,
		log.With("component", "history"))
	seedService := service.NewSeedService(
		store, pragmaClient, pragmaClient.HasCredential(), cfg.FullHistoryPairs(),
		log.With("component", "seed"))
	retentionService := service.NewRetentionService(
		store, cfg.Retention.Schedule, cfg.Retention.MaxAgeHours,
		log.With("component", "retention"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := seedService.SeedIfEmpty(ctx); err != nil {
		// degraded start: live samples will fill the store over time
		log.Warn("startup seeding incomplete", "error", err)
	}

	if err := retentionService.Start(ctx); err != nil {
		log.Error("failed to start retention pruning", "error", err)
		os.Exit(1)
	}
	defer retentionService.Stop()

	priceHandler := handler.NewPriceHandler(snapshotService, log)
	historyHandler := handler.NewHistoryHandler(
		historyService, seedService,
		cfg.History.WindowSeconds, cfg.History.BucketSeconds, log)
	healthHandler := handler.NewHealthHandler(store, resultCache, log)

	// UseEncodedPath keeps %2F intact so escaped pairs route as one segment.
	router := mux.NewRouter()
	router.UseEncodedPath()
	router.HandleFunc("/api/prices", priceHandler.GetPrices).Methods(http.MethodGet)
	router.HandleFunc("/api/history/seed", historyHandler.Seed).Methods(http.MethodGet)
	router.HandleFunc("/api/history/{pair}", historyHandler.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	srv := server.NewServer(cfg.Server.Port, router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down gracefully")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	log.Info("shutdown complete")
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  oracleflow [--config <path>] [--port <N>]")
	fmt.Println("  oracleflow --help")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config path  Config file path (default configs/config.yaml)")
	fmt.Println("  --port N       Port number")
}
