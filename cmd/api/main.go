package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"lienzo/internal/httpapi"
	"lienzo/internal/httpapi/util"
	"lienzo/internal/pkg/logger"
	"lienzo/internal/pkg/shutdown"
	"lienzo/internal/storage"
	"lienzo/internal/worker/queue"
)

func main() {
	envErr := godotenv.Load()

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: util.Env("SERVICE_NAME", "lienzo-api"),
		AddSource:   util.Env("LOG_SOURCE", "false") == "true",
	})
	if envErr != nil {
		log.Debug("no .env file, using process environment")
	}

	log.Info("starting lienzo API",
		"version", "0.1.0",
	)

	// Load configuration
	httpPort := util.Env("HTTP_PORT", "8080")
	dbURL := mustEnv(log, "DATABASE_URL")
	queueCfg := queue.ConfigFromEnv()
	storageCfg := storage.ConfigFromEnv()

	ctx := context.Background()

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Connect to PostgreSQL
	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.RegisterSimple("postgres", pool.Close)

	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	// Redis only backs the redis queue
	var rdb *redis.Client
	if queueCfg.Provider == "redis" {
		log.Info("connecting to Redis")
		rdb = redis.NewClient(&redis.Options{Addr: mustEnv(log, "REDIS_ADDR")})
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		log.Info("Redis connected")
	}

	q, err := queue.New(ctx, queueCfg, rdb)
	if err != nil {
		log.LogFatal("failed to initialize queue", err)
	}
	log.Info("queue initialized", "provider", queueCfg.Provider, "queue", q.Name())

	log.Info("initializing storage provider")
	sp, err := storage.NewProvider(ctx, storageCfg)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	router := httpapi.NewRouter(httpapi.Deps{
		Pool:           pool,
		RDB:            rdb,
		Queue:          q,
		SP:             sp,
		Log:            log,
		AllowedOrigins: util.ListEnv("CORS_ALLOWED_ORIGINS", nil),
		MaxUploadBytes: int64(util.IntEnv("MAX_UPLOAD_MB", 64)) << 20,
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + httpPort,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", httpPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}

// mustEnv gets a required environment variable or exits.
func mustEnv(log *logger.Logger, key string) string {
	v := util.Env(key, "")
	if v == "" {
		log.LogFatal("missing required environment variable", nil, "key", key)
	}
	return v
}
