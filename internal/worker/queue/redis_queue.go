package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPopWait is how long one BRPOP blocks before returning empty.
const DefaultPopWait = 5 * time.Second

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
	wait      time.Duration
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName, wait: DefaultPopWait}
}

func (q *RedisQueue) Name() string { return q.queueName }

// Push encola un run ID (LPUSH); Pop lo saca por el otro extremo
func (q *RedisQueue) Push(ctx context.Context, runID string) error {
	return q.rdb.LPush(ctx, q.queueName, runID).Err()
}

// Pop bloquea hasta que exista un elemento (BRPOP) o pase la espera;
// en ese caso devuelve "" sin error
func (q *RedisQueue) Pop(ctx context.Context) (string, error) {
	res, err := q.rdb.BRPop(ctx, q.wait, q.queueName).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// Len es la cantidad de runs esperando
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.queueName).Result()
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
