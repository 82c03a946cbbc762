// Package recovery turns panics in catalog, scan and cache code into logged
// errors so a single bad table or response cannot take the server down.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrPanic is wrapped by the errors RecoverToValue returns for a panic.
var ErrPanic = errors.New("panic")

// RecoverToValue calls fn and converts a panic into an error wrapping
// ErrPanic. The zero value is returned in that case.
//
//	schema, err := recovery.RecoverToValue(logger, "Schema", func() (catalog.Schema, error) {
//	    return cat.Schema(ctx, name)
//	})
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, "Panic recovered", operation, r)
			var zero T
			result = zero
			err = fmt.Errorf("%s: %w: %v", operation, ErrPanic, r)
		}
	}()
	return fn()
}

// Recover calls fn and logs a panic instead of propagating it. Use it for
// background work that has nobody to return an error to.
func Recover(logger *slog.Logger, operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, "Panic recovered in background task", operation, r)
		}
	}()
	fn()
}

func logPanic(logger *slog.Logger, msg, operation string, r any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(msg,
		"operation", operation,
		"panic", r,
		"stack", string(debug.Stack()),
	)
}
