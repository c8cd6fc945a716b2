package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

// Dispatch executes a handler function asynchronously in a new goroutine.
// It detaches from the caller's context (so request cancellation does not
// cancel the handler) but keeps the request-scoped logger, and converts
// errors and panics into log entries.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logging.From(bgCtx).Error("async handler failed", "error", goerr.Unwrap(err))
		}
	}()
}
