package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/delta"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/session"
)

const (
	DefaultOpTimeout = 60 * time.Second

	// chunkHeadroom is left in every SyncData frame for the fields around
	// the chunk.
	chunkHeadroom = 4 << 10
)

// Options tunes the orchestrator. Zero values select the defaults.
type Options struct {
	// OpTimeout bounds each target's part of an operation.
	OpTimeout time.Duration

	// BlockSize overrides the size picked from the file length. Values
	// outside the valid range are ignored.
	BlockSize int

	Compression delta.Compression
}

type Orchestrator struct {
	targets Targets
	history HistoryRecorder
	opts    Options
	clock   clock.Clock
	logger  *logger.Logger
}

// New builds an Orchestrator over targets. history may be nil, in which
// case sync reports are not persisted.
func New(targets Targets, history HistoryRecorder, opts Options, clk clock.Clock, log *logger.Logger) *Orchestrator {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Orchestrator{
		targets: targets,
		history: history,
		opts:    opts,
		clock:   clk,
		logger:  log,
	}
}

// targetContext derives the context for one target: it ends at the
// operation timeout, when parent ends, or when the session closes, with the
// session's close cause.
func (o *Orchestrator) targetContext(parent context.Context, s *session.Session) (context.Context, context.CancelFunc) {
	ctx, cancelTimeout := context.WithTimeout(parent, o.opts.OpTimeout)
	ctx, cancel := context.WithCancelCause(ctx)

	sessionCtx := s.Context()
	stop := context.AfterFunc(sessionCtx, func() { cancel(context.Cause(sessionCtx)) })

	return ctx, func() {
		stop()
		cancel(nil)
		cancelTimeout()
	}
}

// fanOut runs fn once per target concurrently and returns the results in
// target order.
func fanOut[T any](ctx context.Context, o *Orchestrator, targets []*session.Session, fn func(context.Context, *session.Session) T) []T {
	results := make([]T, len(targets))

	var wg sync.WaitGroup
	for i, s := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tctx, cancel := o.targetContext(ctx, s)
			defer cancel()
			results[i] = fn(tctx, s)
		}()
	}
	wg.Wait()

	return results
}

// failure turns a target error into the text reported to the operator. A
// channel torn down by the deadline or the session closing reports that
// reason rather than the resulting stream error.
func failure(ctx context.Context, s *session.Session, err error) string {
	var remote *protocol.RemoteError
	if errors.As(err, &remote) {
		return remote.Reason
	}
	if ctx.Err() != nil {
		return context.Cause(ctx).Error()
	}
	if cause := s.Err(); cause != nil {
		return cause.Error()
	}
	return err.Error()
}
