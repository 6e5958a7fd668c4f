package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mediahub-credits-api/internal/cache"
	"mediahub-credits-api/internal/config"
	"mediahub-credits-api/internal/events"
	"mediahub-credits-api/internal/handler"
	"mediahub-credits-api/internal/middleware"
	"mediahub-credits-api/internal/repository"
	"mediahub-credits-api/internal/router"
	"mediahub-credits-api/internal/service"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.MustLoad()

	log.Printf("[Main] Starting %s (%s) in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	// Settlement database (balances, grants, sales, idempotency keys)
	if err := os.MkdirAll(filepath.Dir(cfg.Ledger.Path), 0o755); err != nil {
		log.Fatalf("[Main] Failed to create data directory: %v", err)
	}

	ledgerDB, err := repository.OpenSQLite(cfg.Ledger.Path)
	if err != nil {
		log.Fatalf("[Main] Failed to open settlement database: %v", err)
	}
	defer ledgerDB.Close()

	balances := repository.NewSQLiteBalanceRepository(ledgerDB)
	grants := repository.NewSQLiteGrantRepository(ledgerDB)
	sales := repository.NewSQLiteSaleRepository(ledgerDB)
	idempotency := repository.NewSQLiteIdempotencyRepository(ledgerDB)
	stats := repository.NewSQLiteStatsRepository(ledgerDB)

	// Media catalog backend
	mediaRepo, err := openCatalog(cfg)
	if err != nil {
		log.Fatalf("[Main] Failed to open media catalog: %v", err)
	}
	defer mediaRepo.Close()

	// Redis is optional: without it the instance runs with in-memory caching,
	// API-key auth only and in-process events.
	redisClient := connectRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var catalogCache cache.Cache
	if redisClient != nil {
		catalogCache = cache.NewRedisCache(redisClient, "")
	} else {
		catalogCache = cache.NewMemoryCache()
	}
	defer catalogCache.Close()

	// Event fan-out: always the in-process bus, plus Redis pub/sub when
	// available.
	bus := events.NewBus()
	defer bus.Close()
	publisher := events.Multi{bus}
	if redisClient != nil {
		publisher = append(publisher, events.NewRedisPublisher(redisClient, cfg.Redis.EventChannel))
	}

	var sessions *service.SessionService
	if redisClient != nil {
		sessions = service.NewSessionService(redisClient)
	}

	catalog := service.NewCatalogService(mediaRepo, catalogCache, cfg.Redis.CacheTTL)

	settlement := service.NewSettlementService(
		balances, grants, sales, idempotency, catalog, publisher,
		service.SettlementConfig{
			CreatorSharePercent: cfg.Settlement.CreatorSharePercent,
			GrantTTL:            cfg.Settlement.GrantTTL,
			StoreTimeout:        cfg.Settlement.StoreTimeout,
		},
	)

	cleanup := service.NewCleanupScheduler(idempotency, service.CleanupConfig{
		Retention: cfg.Settlement.IdempotencyRetention,
		Interval:  cfg.Settlement.CleanupInterval,
	})
	cleanup.Start()
	defer cleanup.Stop()

	handlers := router.Handlers{
		Health:   handler.NewHealthHandler(ledgerDB, redisClient),
		Auth:     handler.NewAuthHandler(sessions),
		Purchase: handler.NewPurchaseHandler(settlement),
		Wallet:   handler.NewWalletHandler(settlement),
		Media:    handler.NewMediaHandler(catalog),
		Admin:    handler.NewAdminHandler(stats, cleanup),
	}

	r := router.New(handlers, router.Config{
		Auth: middleware.AuthConfig{Sessions: sessions},
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[Main] Listening on %s", cfg.Server.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Main] Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[Main] Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[Main] Forced shutdown: %v", err)
	}

	log.Printf("[Main] Stopped")
}

// openCatalog opens the configured media catalog backend. SQLite serves
// development and single-node deployments; MySQL points at the shared
// platform catalog.
func openCatalog(cfg *config.Config) (repository.MediaRepository, error) {
	switch cfg.Catalog.Type {
	case "mysql":
		db, err := sql.Open("mysql", cfg.Catalog.MySQLDSN())
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}

		log.Printf("[Main] Media catalog: MySQL at %s", cfg.Catalog.Host)
		return repository.NewMySQLMediaRepository(db), nil
	default:
		log.Printf("[Main] Media catalog: SQLite at %s", cfg.Catalog.Path)
		return repository.NewSQLiteMediaRepository(cfg.Catalog.Path)
	}
}

// connectRedis returns a connected client or nil when Redis is unreachable.
func connectRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[Main] Redis unavailable, continuing without it: %v", err)
		client.Close()
		return nil
	}

	log.Printf("[Main] Redis connected: %s", cfg.Redis.Address())
	return client
}
