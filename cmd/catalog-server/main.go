package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	"github.com/zeywox/veyronix-core/pkg/catalog"
	"github.com/zeywox/veyronix-core/pkg/ingest"
	"github.com/zeywox/veyronix-core/pkg/logging"
	"github.com/zeywox/veyronix-core/pkg/respcache"
)

type config struct {
	RedisAddr string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Port      string `env:"PORT" envDefault:"8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	HardTTL   time.Duration `env:"RESPONSE_CACHE_HARD_TTL" envDefault:"2m"`
	SoftTTL   time.Duration `env:"RESPONSE_CACHE_SOFT_TTL" envDefault:"5s"`
	MaxWeight int64         `env:"RESPONSE_CACHE_MAX_WEIGHT" envDefault:"268435456"`

	// FeedSource optionally seeds the catalog at startup from a JSON feed
	// (file path or http(s) URL).
	FeedSource        string `env:"FEED_SOURCE"`
	IngestConcurrency int    `env:"INGEST_CONCURRENCY" envDefault:"8"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logging.Setup(logging.DefaultConfig())
		bootLogger := logging.NewLogger("bootstrap")
		bootLogger.Fatal().Err(err).Msg("Failed to parse configuration")
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("catalog-server")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")

	repo := catalog.NewRepository(redisClient)
	ledger := catalog.NewVersionLedger(redisClient)
	registry := catalog.NewIDRegistry(redisClient, logging.NewLogger("nk-registry"))
	service := catalog.NewService(repo, registry, logging.NewLogger("catalog"))

	cache, err := respcache.NewManager(respcache.Config{
		HardTTL:          cfg.HardTTL,
		SoftTTL:          cfg.SoftTTL,
		MaxWeight:        cfg.MaxWeight,
		FreshJoinTimeout: 2000 * time.Millisecond,
		RefreshTimeout:   10 * time.Second,
	}, ledger, logging.NewLogger("respcache"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create response cache")
	}
	defer cache.Close()

	ingester := ingest.NewIngester(registry, repo,
		ingest.Config{Concurrency: cfg.IngestConcurrency},
		logging.NewLogger("ingest"))

	if cfg.FeedSource != "" {
		if _, err := ingester.LoadFeed(ctx, cfg.FeedSource); err != nil {
			logger.Error().Err(err).Str("source", cfg.FeedSource).Msg("Feed bootstrap failed")
		}
	}

	srv := newServer(service, cache, ingester, cfg)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.routes(),
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Starting catalog server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Shutdown incomplete")
	}
}
