package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/bizanalyzer/internal/adapter/memory"
	"github.com/user/bizanalyzer/internal/adapter/postgres"
	"github.com/user/bizanalyzer/internal/adapter/redis"
	"github.com/user/bizanalyzer/internal/delivery/http/handler"
	"github.com/user/bizanalyzer/internal/repository"
	"github.com/user/bizanalyzer/internal/usecase"
	"github.com/user/bizanalyzer/pkg/config"
)

// backend groups the storage collaborators selected by STORE_BACKEND.
type backend struct {
	blobs    repository.BlobStore
	results  repository.ResultSink
	failures repository.FailedRequestRepository
	frontier usecase.FrontierFactory
	checks   map[string]handler.Pinger
	closers  []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	switch cfg.StoreBackend {
	case "redis":
		return openRedisBackend(ctx, cfg, log)
	default:
		return &backend{
			blobs:    memory.NewBlobStore(),
			results:  memory.NewResultSink(),
			failures: memory.NewFailedRequestRepo(),
			frontier: func(string) (repository.QueueRepository, repository.VisitedRepository) {
				return memory.NewQueueRepo(), memory.NewVisitedRepo()
			},
			checks: map[string]handler.Pinger{},
		}, nil
	}
}

func openRedisBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	b := &backend{checks: make(map[string]handler.Pinger)}

	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	b.closers = append(b.closers, dbpool.Close)
	if err := dbpool.Ping(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
		b.Close()
		return nil, err
	}
	log.Info("PostgreSQL connection pool established")

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	b.closers = append(b.closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		b.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("Redis connection established", zap.String("addr", cfg.RedisAddr))

	b.blobs = redis.NewBlobStore(rdb)
	b.results = postgres.NewPageResultRepo(dbpool)
	b.failures = postgres.NewFailedRequestRepo(dbpool)
	b.frontier = func(runID string) (repository.QueueRepository, repository.VisitedRepository) {
		return redis.NewQueueRepo(rdb, runID), redis.NewVisitedRepo(rdb, runID)
	}
	b.checks["postgres"] = handler.PingFunc(dbpool.Ping)
	b.checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	return b, nil
}
