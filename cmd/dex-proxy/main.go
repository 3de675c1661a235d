package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/dex-client/internal/config"
	"github.com/Sternrassler/dex-client/pkg/client"
	"github.com/Sternrassler/dex-client/pkg/logging"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		logger := logging.NewLogger("dex-proxy")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Setup(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: os.Stderr})
	logger := logging.NewLogger("dex-proxy")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional shared cache tier
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("addr", opts.Addr).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	catalogCfg := cfg.Catalog
	catalogCfg.Redis = redisClient
	catalogCfg.RedisTTL = cfg.RedisTTL
	catalogLogger := logging.NewLogger("dex-client")
	catalogCfg.Logger = &catalogLogger

	dexClient, err := client.New(catalogCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create catalog client")
	}
	defer dexClient.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(dexClient, redisClient, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("base_url", catalogCfg.BaseURL).
		Str("user_agent", catalogCfg.UserAgent).
		Msg("Starting dex proxy server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}
