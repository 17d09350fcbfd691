package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"cudorms-backend/config"
	"cudorms-backend/internal/api"
	"cudorms-backend/internal/auth"
	"cudorms-backend/internal/cache"
	"cudorms-backend/internal/db"
	"cudorms-backend/internal/model"
	"cudorms-backend/internal/store"
	"cudorms-backend/pkg/logger"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}
	logger.Init(cfg.Env, cfg.Log.Level)
	logger.Info("configuration loaded", map[string]interface{}{
		"path":   configPath,
		"env":    cfg.Env,
		"driver": cfg.Database.Driver,
		"cache":  cfg.Cache.Driver,
	})

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	model.PasswordCost = cfg.Auth.BcryptCost

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore, err := openStore(ctx, &cfg.Database)
	if err != nil {
		logger.Error("failed to initialize data store", err)
		os.Exit(1)
	}
	defer appStore.Close()

	responseCache, err := openCache(ctx, &cfg.Cache, cfg.Server.CacheTTL)
	if err != nil {
		logger.Error("failed to initialize response cache", err)
		os.Exit(1)
	}
	defer responseCache.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Initialize router
	router := api.NewRouter(appStore, responseCache, tokens, &cfg.Server)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server ListenAndServe")
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	log.Info().Msg("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", err)
		return
	}

	log.Info().Msg("server gracefully stopped")
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig) (store.Store, error) {
	if cfg.Driver == "mongo" {
		mdb, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store.NewMongoStore(ctx, mdb)
	}

	gormDB, err := db.Init(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(gormDB), nil
}

func openCache(ctx context.Context, cfg *config.CacheConfig, ttl time.Duration) (cache.Cache, error) {
	if cfg.Driver == "redis" {
		return cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "cudorms:")
	}
	return cache.NewMemory(ttl, 2*ttl), nil
}
