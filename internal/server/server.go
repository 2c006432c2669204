package server

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/transport"
	"github.com/tobert/halfremembered-launcher/internal/workers"
)

const defaultDrainTimeout = 30 * time.Second

// Config holds the acceptor settings and the shutdown budget.
type Config struct {
	Version           string
	HeartbeatInterval time.Duration
	MaxFrameSize      int
	DrainTimeout      time.Duration
}

// Server runs the acceptor and the background workers until a signal, a
// stop request or a listener failure, then shuts down gracefully.
type Server struct {
	cfg      Config
	listener transport.Listener
	registry *registry.Registry
	workers  *workers.Workers
	clock    clock.Clock
	logger   *logger.Logger

	stopOnce   sync.Once
	stopCh     chan struct{}
	stopReason string
}

func New(cfg Config, ln transport.Listener, reg *registry.Registry, bg *workers.Workers, clk clock.Clock, log *logger.Logger) *Server {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if bg == nil {
		bg = workers.New()
	}

	log.Info().Msg("creating new server...")
	return &Server{
		cfg:      cfg,
		listener: ln,
		registry: reg,
		workers:  bg,
		clock:    clk,
		logger:   log,
		stopCh:   make(chan struct{}),
	}
}

// Addr is the address the listener is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop asks a running server to shut down. It is safe to call more than
// once and before Serve.
func (s *Server) Stop(reason string) {
	s.stopOnce.Do(func() {
		s.stopReason = reason
		close(s.stopCh)
	})
}

// Serve runs until SIGTERM, SIGINT or SIGQUIT, a call to Stop, the end of
// ctx, or a listener failure. One-shot commands are answered by d. On the
// way out every session is drained and closed, the listener is closed and
// the workers are waited for.
func (s *Server) Serve(ctx context.Context, d Dispatcher) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stopSignals()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		select {
		case <-s.stopCh:
			cancel(fmt.Errorf("%w: %s", ErrStopRequested, s.stopReason))
		case <-ctx.Done():
		}
	}()

	acceptor := NewAcceptor(AcceptorConfig{
		Version:           s.cfg.Version,
		HeartbeatInterval: s.cfg.HeartbeatInterval,
		MaxFrameSize:      s.cfg.MaxFrameSize,
	}, s.registry, d, s.clock, s.logger)

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		s.workers.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- acceptor.Serve(ctx, s.listener)
	}()
	s.logger.Info().Str("address", s.listener.Addr().String()).Msg("launcher server listening")

	var err error
	select {
	case <-ctx.Done():
		s.logger.Info().AnErr("cause", context.Cause(ctx)).Msg("server stopping")
		<-serveErr
	case err = <-serveErr:
		if err != nil {
			s.logger.Error().Err(err).Msg("acceptor failed")
		}
		cancel(err)
	}

	if closeErr := s.listener.Close(); closeErr != nil {
		s.logger.Debug().Err(closeErr).Msg("closing listener")
	}
	s.drainSessions()
	acceptor.Wait()
	<-workersDone

	s.logger.Info().Msg("server shutdown gracefully")
	return err
}

// drainSessions sends Shutdown to every registered session, waits for its
// in-flight channels within the drain budget, and closes it.
func (s *Server) drainSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, sess := range s.registry.All() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sess.Drain(ctx, "server shutting down"); err != nil {
				sess.Logger().Warn().Err(err).Msg("drain incomplete")
			}
			sess.Close(session.ErrShutdown)
			s.registry.RemoveIf(sess)
		}()
	}
	wg.Wait()
}
