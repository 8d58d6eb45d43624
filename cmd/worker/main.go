package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-offers/internal/cache"
	"github.com/noah-isme/toko-offers/internal/config"
	"github.com/noah-isme/toko-offers/internal/lock"
	"github.com/noah-isme/toko-offers/internal/obs"
	"github.com/noah-isme/toko-offers/internal/pricing"
	"github.com/noah-isme/toko-offers/internal/queue"
	"github.com/noah-isme/toko-offers/internal/repo"
	"github.com/noah-isme/toko-offers/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "toko")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	loader := &pricing.Loader{
		Repo:    offerRepository(cfg, pool, logger),
		Cache:   cache.NewJSON(redisClient, cfg.OfferCachePrefix, cfg.OfferCacheTTL),
		Locker:  lock.Locker{R: redisClient},
		LockTTL: cfg.OfferLockTTL,
		Logger:  logger,
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			queue.QueueOffers:  6,
			queue.QueueDefault: 1,
		},
		ShutdownTimeout: 10 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := queue.RegisterSchedule(scheduler, cfg.OfferRefreshCron); err != nil {
		logger.Fatal().Err(err).Msg("register offer refresh schedule")
	}

	if err := srv.Start(queue.NewServeMux(loader, logger)); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	logger.Info().Str("schedule", cfg.OfferRefreshCron).Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")

	<-ctx.Done()
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func offerRepository(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) repo.GuardedOffers {
	breaker := resilience.NewBreaker(cfg.OfferFetchAttempts, 0.5, cfg.OfferBreakerOpenFor).
		WithTarget("offers-db").
		WithLogger(logger)
	return repo.GuardedOffers{
		Repo: repo.OffersRepo{DB: pool},
		Policy: resilience.Policy{
			Breaker:     breaker,
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: cfg.OfferFetchAttempts,
			Jitter:      0.2,
			Timeout:     cfg.OfferFetchTimeout,
		},
	}
}
