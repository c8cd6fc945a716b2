package logging

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/masq"
)

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.Default())
}

// Default returns the process-wide logger
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger
func SetDefault(logger *slog.Logger) {
	defaultLogger.Store(logger)
}

type ctxKey struct{}

// With binds a logger to the context
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From extracts the logger bound to ctx, falling back to Default
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}

// Format specifies the log output format
type Format int

const (
	FormatConsole Format = iota
	FormatJSON
)

// New builds a logger writing to w. Fields tagged `masq:"secret"` and any
// field named "authorization" or "api_key" are redacted before output.
func New(w io.Writer, level slog.Level, format Format) *slog.Logger {
	filter := masq.New(
		masq.WithTag("secret"),
		masq.WithFieldName("Authorization"),
		masq.WithFieldName("authorization"),
		masq.WithFieldName("api_key"),
	)

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: filter,
		})
	default:
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(filter),
			clog.WithSource(false),
			clog.WithTimeFmt("15:04:05.000"),
		)
	}

	return slog.New(handler)
}
