package worker

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"lienzo/internal/pkg/logger"
	"lienzo/internal/ports"
	"lienzo/internal/worker/queue"
)

type Deps struct {
	Pool          *pgxpool.Pool
	Queue         queue.Queue
	SP            ports.StorageProvider
	StorageRoot   string
	CleanupLocal  bool
	MaxInputBytes int64
	Log           *logger.Logger
}
