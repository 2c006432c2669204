// Package workers provides abstractions for managing and running
// background workers in the launcher.
// It defines the Worker interface, a Workers aggregate that runs several
// workers until their context ends, and the liveness Reaper.
package workers

import (
	"context"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/session"
)

// Worker is the interface that must be implemented by any background worker.
//
// Run blocks until ctx is done or the worker has nothing left to do.
//
// Example implementation:
//
//	type MyWorker struct{}
//
//	func (w *MyWorker) Run(ctx context.Context) {
//	    <-ctx.Done()
//	}
type Worker interface {
	Run(ctx context.Context)
}

// WorkerFunc adapts a plain function to [Worker].
type WorkerFunc func(ctx context.Context)

func (f WorkerFunc) Run(ctx context.Context) { f(ctx) }

// Sessions is the part of the registry the reaper needs.
type Sessions interface {
	Expired(now time.Time, timeout time.Duration) []*session.Session
	RemoveIf(s *session.Session) bool
}
