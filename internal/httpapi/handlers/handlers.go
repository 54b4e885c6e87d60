package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"lienzo/internal/models"
	"lienzo/internal/pkg/logger"
	"lienzo/internal/ports"
	"lienzo/internal/repositories"
)

// DefaultMaxUploadBytes bounds a POST /runs body.
const DefaultMaxUploadBytes = 64 << 20

// RunStore is the part of the run repository the API needs.
type RunStore interface {
	Create(ctx context.Context, run *models.Run) error
	Get(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, status string, limit int) ([]models.Run, error)
	Items(ctx context.Context, runID string) ([]models.RunItem, error)
}

var _ RunStore = (*repositories.RunRepository)(nil)

// Enqueuer hands a run ID to the worker.
type Enqueuer interface {
	Push(ctx context.Context, runID string) error
}

type Deps struct {
	Runs  RunStore
	Queue Enqueuer
	SP    ports.StorageProvider
	// Pool and RDB are only used by the deep health check; nil skips them.
	Pool           *pgxpool.Pool
	RDB            *redis.Client
	MaxUploadBytes int64
	Log            *logger.Logger
}

type Handler struct {
	runs      RunStore
	queue     Enqueuer
	sp        ports.StorageProvider
	pool      *pgxpool.Pool
	rdb       *redis.Client
	maxUpload int64
	log       *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handler{
		runs:      d.Runs,
		queue:     d.Queue,
		sp:        d.SP,
		pool:      d.Pool,
		rdb:       d.RDB,
		maxUpload: maxUpload,
		log:       log.WithComponent("api"),
	}
}
