// Package logger wraps log/slog with the attributes Lienzo components share:
// service, component, run and request identifiers.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type contextKey string

const (
	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"
	// RunIDKey is the context key for conversion run IDs.
	RunIDKey contextKey = "run_id"
)

// Logger is a slog.Logger with helpers for Lienzo's structured fields.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string
	// Format is json or text.
	Format string
	// Output defaults to os.Stdout.
	Output io.Writer
	// AddSource adds file:line to each record.
	AddSource bool
	// ServiceName is attached to every record as "service".
	ServiceName string
}

// DefaultConfig reads LOG_LEVEL, LOG_FORMAT, LOG_SOURCE and SERVICE_NAME.
func DefaultConfig() Config {
	return Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      getEnv("LOG_FORMAT", "json"),
		Output:      os.Stdout,
		AddSource:   getEnv("LOG_SOURCE", "false") == "true",
		ServiceName: getEnv("SERVICE_NAME", "lienzo"),
	}
}

// New creates a Logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	if cfg.ServiceName != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.ServiceName)})
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewDefault creates a logger with DefaultConfig.
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(Config{Output: io.Discard, Level: "error"})
}

func (l *Logger) with(key, value string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String(key, value))}
}

// WithRequestID attaches request_id.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.with("request_id", requestID)
}

// WithRunID attaches run_id.
func (l *Logger) WithRunID(runID string) *Logger {
	return l.with("run_id", runID)
}

// WithComponent attaches component.
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithError attaches the error text, or returns l unchanged for a nil error.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

// FromContext enriches the logger with request and run IDs found in ctx.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	result := l
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		result = result.WithRequestID(reqID)
	}
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		result = result.WithRunID(runID)
	}
	return result
}

// LogFatal logs at error level and exits the process.
func (l *Logger) LogFatal(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.Error(msg, args...)
	os.Exit(1)
}

// ContextWithRequestID stores a request ID in ctx.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithRunID stores a run ID in ctx.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}
