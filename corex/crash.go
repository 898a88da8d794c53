// Package corex carries the small amount of process-wide plumbing every
// other package leans on: panic containment for background goroutines and
// the shared slog handler they log through.
package corex

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/lmittmann/tint"
)

// NewLogger builds the colorized structured logger every package in this
// module logs through.
func NewLogger(w *os.File) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level: slog.LevelDebug,
	}))
}

// Go runs fn in its own goroutine with a recover guard: a panic inside fn is
// logged via HandleCrash instead of silently taking down the whole process.
// Used for auxiliary goroutines (watchers, timers) that must not be allowed
// to kill the caller. The Clock's own action-execution path deliberately
// does NOT use this — action panics are specified to propagate.
func Go(log *slog.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(log, r)
			}
		}()
		fn()
	}()
}

// HandleCrash logs a captured panic value and its stack trace. Unlike the
// terminal-application original this adapts, there is no TUI to reset first;
// this runs in library contexts, so it logs and returns rather than calling
// os.Exit, leaving the decision to terminate to the caller's goroutine.
func HandleCrash(log *slog.Logger, r any) {
	if r == nil {
		return
	}
	log.Error("recovered panic", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
}

// contextKey namespaces values corex stores on a context.Context.
type contextKey int

const loggerKey contextKey = iota

// WithLogger attaches a logger to ctx for retrieval by FromContext.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger attached by WithLogger, or the default
// colorized logger (NewLogger(os.Stderr)) if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return log
	}
	return NewLogger(os.Stderr)
}
