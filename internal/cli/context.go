package cli

import (
	"context"

	"lienzo/internal/pkg/logger"
)

type loggerKey struct{}

func withLogger(ctx context.Context, log *logger.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, log)
}

func loggerFrom(ctx context.Context) *logger.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerKey{}).(*logger.Logger); ok {
			return log
		}
	}
	return logger.Discard()
}
