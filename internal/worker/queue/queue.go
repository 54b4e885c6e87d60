// Package queue hands run IDs from the API to the worker.
package queue

import (
	"context"
	"fmt"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"
)

type Queue interface {
	Name() string
	Push(ctx context.Context, runID string) error
	// Pop returns "" with a nil error when nothing arrived in time.
	Pop(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

var (
	_ Queue = (*RedisQueue)(nil)
	_ Queue = (*SQSQueue)(nil)
)

// Config selects the queue backend.
type Config struct {
	Provider    string
	Name        string
	SQSQueueURL string
	AWSRegion   string
}

// ConfigFromEnv reads QUEUE_PROVIDER (default redis), RUN_QUEUE_NAME,
// SQS_QUEUE_URL and AWS_REGION.
func ConfigFromEnv() Config {
	provider := env("QUEUE_PROVIDER")
	if provider == "" {
		provider = "redis"
	}
	name := env("RUN_QUEUE_NAME")
	if name == "" {
		name = "lienzo:runs"
	}
	return Config{
		Provider:    provider,
		Name:        name,
		SQSQueueURL: env("SQS_QUEUE_URL"),
		AWSRegion:   env("AWS_REGION"),
	}
}

// New builds the configured queue. rdb is only used by the redis provider.
func New(ctx context.Context, cfg Config, rdb *redis.Client) (Queue, error) {
	switch cfg.Provider {
	case "redis", "":
		if rdb == nil {
			return nil, fmt.Errorf("redis queue needs a redis client")
		}
		return NewRedisQueue(rdb, cfg.Name), nil

	case "sqs":
		if cfg.SQSQueueURL == "" {
			return nil, fmt.Errorf("missing env: SQS_QUEUE_URL")
		}
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL), nil

	default:
		return nil, fmt.Errorf("unknown queue provider: %s", cfg.Provider)
	}
}

func env(k string) string {
	return strings.TrimSpace(os.Getenv(k))
}
