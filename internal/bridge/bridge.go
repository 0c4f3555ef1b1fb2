// Package bridge bounds the time a chat turn may spend waiting on the
// history store. Persistence is best-effort: a slow or unreachable store
// must never stall a turn past the configured bound.
package bridge

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout reports that a persistence operation did not finish within
// the bounded wait. The in-memory history remains the source of truth.
var ErrTimeout = errors.New("persistence timed out")

// Run executes op in its own goroutine under a deadline context and waits
// at most timeout for it to finish. The context handed to op is detached
// from the caller's cancellation so an in-flight write is not torn down by
// a request that has already been answered.
//
// On timeout the goroutine is left to finish (or fail) on its own; Run
// returns ErrTimeout and control goes back to the caller within the bound.
func Run(timeout time.Duration, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return ErrTimeout
	}
}
