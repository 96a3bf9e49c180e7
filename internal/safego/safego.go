// Package safego runs background goroutines that survive panics. The API
// process hosts long-lived workers (the due-date notifier, audit writes) whose
// panics must be logged, not fatal.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn on a new goroutine. A panic inside fn is recovered and logged
// together with its stack trace so the crash is visible in the structured
// logs instead of killing the process or dying silently.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("background goroutine panicked",
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
