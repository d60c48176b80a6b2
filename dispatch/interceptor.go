package dispatch

import (
	"context"
	"log/slog"
	"time"
)

// Interceptor wraps handler execution. It may inspect or replace the call
// before invoking next, inspect the result after, or return without
// calling next at all.
//
//	func timing(ctx context.Context, call *dispatch.Call, next dispatch.HandlerFunc) (any, error) {
//	    start := time.Now()
//	    res, err := next(ctx, call)
//	    log.Printf("%s took %v", call.Operation, time.Since(start))
//	    return res, err
//	}
type Interceptor func(ctx context.Context, call *Call, next HandlerFunc) (any, error)

// chain wraps h so that interceptors[0] runs first.
func chain(interceptors []Interceptor, h HandlerFunc) HandlerFunc {
	for i := len(interceptors) - 1; i >= 0; i-- {
		current, next := interceptors[i], h
		h = func(ctx context.Context, call *Call) (any, error) {
			return current(ctx, call, next)
		}
	}
	return h
}

// LoggingInterceptor logs the start and end of each call with its
// duration and error.
func LoggingInterceptor(logger *slog.Logger) Interceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, call *Call, next HandlerFunc) (any, error) {
		start := time.Now()
		logger.DebugContext(ctx, "call started",
			slog.String("operation", call.Operation),
			slog.String("dialect", call.Dialect.String()),
		)

		res, err := next(ctx, call)
		duration := time.Since(start)

		if err != nil {
			logger.ErrorContext(ctx, "call failed",
				slog.String("operation", call.Operation),
				slog.Duration("duration", duration),
				slog.Any("error", err),
			)
		} else {
			logger.InfoContext(ctx, "call completed",
				slog.String("operation", call.Operation),
				slog.Duration("duration", duration),
			)
		}
		return res, err
	}
}
