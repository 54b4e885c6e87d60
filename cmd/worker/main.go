package main

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"lienzo/internal/pkg/logger"
	"lienzo/internal/pkg/shutdown"
	"lienzo/internal/storage"
	"lienzo/internal/worker"
	"lienzo/internal/worker/queue"
	"lienzo/internal/worker/util"
)

func main() {
	envErr := godotenv.Load()

	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: util.Env("SERVICE_NAME", "lienzo-worker"),
		AddSource:   util.BoolEnv("LOG_SOURCE", false),
	})
	if envErr != nil {
		log.Debug("no .env file, using process environment")
	}

	dbURL := util.MustEnv("DATABASE_URL")
	queueCfg := queue.ConfigFromEnv()
	storageCfg := storage.ConfigFromEnv()
	if storageCfg.LocalRoot == "" {
		storageCfg.LocalRoot = "/data"
	}

	shutdownMgr := shutdown.NewManager(log, util.DurationEnv("SHUTDOWN_TIMEOUT", 2*time.Minute))
	ctx := shutdownMgr.Context()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}

	var rdb *redis.Client
	if queueCfg.Provider == "redis" {
		rdb = redis.NewClient(&redis.Options{Addr: util.MustEnv("REDIS_ADDR")})
	}

	q, err := queue.New(ctx, queueCfg, rdb)
	if err != nil {
		log.LogFatal("failed to initialize queue", err)
	}

	sp, err := storage.NewProvider(ctx, storageCfg)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}

	deps := worker.Deps{
		Pool:          pool,
		Queue:         q,
		SP:            sp,
		StorageRoot:   storageCfg.LocalRoot,
		CleanupLocal:  util.BoolEnv("CLEANUP_LOCAL", storageCfg.IsRemote()),
		MaxInputBytes: int64(util.IntEnv("MAX_INPUT_MB", 100)) << 20,
		Log:           log,
	}

	failed, stop := context.WithCancel(context.Background())
	defer stop()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := worker.Run(ctx, deps); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("worker stopped", "error", err.Error())
			stop()
		}
	}()

	// espera a que el loop salga (el run en curso queda FAILED) antes de
	// cerrar las conexiones
	shutdownMgr.Register("worker", func(ctx context.Context) error {
		select {
		case <-stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
		pool.Close()
		if rdb != nil {
			return rdb.Close()
		}
		return nil
	})

	shutdownMgr.WaitWithContext(failed)
}
