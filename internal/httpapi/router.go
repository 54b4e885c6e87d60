package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"lienzo/internal/httpapi/handlers"
	"lienzo/internal/httpapi/util"
	"lienzo/internal/httpkit"
	"lienzo/internal/pkg/logger"
	"lienzo/internal/pkg/middleware"
	"lienzo/internal/ports"
	"lienzo/internal/repositories"
)

type Deps struct {
	Pool  *pgxpool.Pool
	RDB   *redis.Client
	Queue handlers.Enqueuer
	SP    ports.StorageProvider
	Log   *logger.Logger
	// Runs defaults to a RunRepository on Pool.
	Runs           handlers.RunStore
	AllowedOrigins []string
	MaxUploadBytes int64
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	// ---- CORS (front de carga de tablas) ----
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = util.ListEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:8081",
			"http://localhost:5173",
		})
	}
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: origins,
		MaxAgeSeconds:  600,
	}))

	runs := d.Runs
	if runs == nil {
		runs = repositories.NewRunRepository(d.Pool)
	}

	h := handlers.New(handlers.Deps{
		Runs:           runs,
		Queue:          d.Queue,
		SP:             d.SP,
		Pool:           d.Pool,
		RDB:            d.RDB,
		MaxUploadBytes: d.MaxUploadBytes,
		Log:            log,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- RUNS ----
	r.Post("/runs", h.PostRun)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{runId}", h.GetRun)
	r.Get("/runs/{runId}/archive", h.GetRunArchive)

	return r
}
