package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"reflectify/server/internal/config"
	"reflectify/server/internal/db"
	internalhttp "reflectify/server/internal/http"
	"reflectify/server/internal/insights"
	"reflectify/server/internal/jobs"
	"reflectify/server/internal/logging"
	"reflectify/server/internal/repository"
	"reflectify/server/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	logger, err := logging.Init(logging.ConfigFromEnv())
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	// Visit telemetry prefers Redis; without it the counters live in process
	// memory and reset on restart.
	var visits telemetry.Store = telemetry.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, using in-memory visit store", zap.Error(err))
		} else {
			visits = telemetry.NewRedisStore(redisClient)
			defer func() { _ = redisClient.Close() }()
		}
	}

	var insightService internalhttp.InsightService
	if cfg.GenAIAPIKey != "" {
		client, err := insights.NewClient(ctx, cfg.GenAIAPIKey, cfg.GenAIModel, cfg.GenAITimeout)
		if err != nil {
			logger.Warn("insights client init failed, features will degrade", zap.Error(err))
		} else {
			insightService = client
		}
	} else {
		logger.Info("GENAI_API_KEY not set, insight features disabled")
	}

	server, err := internalhttp.NewServer(cfg, store, insightService, visits, logger)
	if err != nil {
		logger.Fatal("server init failed", zap.Error(err))
	}

	jobs.StartSessionCleanupJob(ctx, cfg, store, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("reflectify listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
