package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/CrewMatch/internal/api"
	"github.com/MikeSquared-Agency/CrewMatch/internal/broker"
	"github.com/MikeSquared-Agency/CrewMatch/internal/cache"
	"github.com/MikeSquared-Agency/CrewMatch/internal/config"
	"github.com/MikeSquared-Agency/CrewMatch/internal/hermes"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	if cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		logger.Info("schema applied")
	}

	// Roster cache (optional)
	var roster store.RosterSource = db
	var rosterCache *cache.RosterCache
	if cfg.RosterCacheEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, roster reads will fall through", "addr", cfg.Redis.Addr, "error", err)
		}
		rosterCache = cache.NewRosterCache(db, rdb, cfg.RosterTTL(), logger)
		roster = rosterCache
		logger.Info("roster cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.RosterTTL())
	}

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	if hermesClient != nil && rosterCache != nil {
		err := hermesClient.Subscribe(hermes.SubjectRosterUpdated, func(subject string, _ []byte) {
			ictx, icancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer icancel()
			if err := rosterCache.Invalidate(ictx); err != nil {
				logger.Warn("roster invalidation failed", "subject", subject, "error", err)
				return
			}
			logger.Info("roster cache invalidated", "subject", subject)
		})
		if err != nil {
			logger.Warn("failed to subscribe to roster updates", "error", err)
		}
	}

	// Broker
	b, err := broker.New(db, roster, hermesClient, cfg, logger)
	if err != nil {
		logger.Error("failed to build broker", "error", err)
		os.Exit(1)
	}
	logger.Info("broker ready",
		"allow_worker_reuse", cfg.Matching.AllowWorkerReuse,
		"roster_timeout", cfg.RosterTimeout(),
		"persist_timeout", cfg.PersistTimeout(),
		"max_retries", cfg.DataAccess.MaxRetries,
	)

	// API server
	var invalidator api.RosterInvalidator
	if rosterCache != nil {
		invalidator = rosterCache
	}
	router := api.NewRouter(b, db, roster, invalidator, api.RouterConfig{
		AdminToken: cfg.Server.AdminToken,
		RateLimit:  cfg.Server.RateLimit,
	}, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
