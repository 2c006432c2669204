package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/daemon"
	"github.com/tobert/halfremembered-launcher/internal/executor"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/transport"
	"github.com/tobert/halfremembered-launcher/internal/workers"
)

func startServer(t *testing.T, pn *pipeNetwork, reg *registry.Registry, bg *workers.Workers, d Dispatcher) (*Server, <-chan error) {
	t.Helper()
	srv := New(Config{
		Version:           "1.0.0",
		HeartbeatInterval: time.Minute,
		DrainTimeout:      2 * time.Second,
	}, pn, reg, bg, clock.Real(), logger.Nop())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), d) }()
	return srv, done
}

func startDaemon(t *testing.T, pn *pipeNetwork, hostname string) (*daemon.Daemon, <-chan error) {
	t.Helper()
	dir := t.TempDir()
	d := daemon.New(daemon.Config{
		ServerAddress:     "pipe",
		Hostname:          hostname,
		Version:           "1.0.0",
		WorkingDir:        dir,
		HeartbeatInterval: time.Minute,
		WelcomeTimeout:    2 * time.Second,
		ReconnectInterval: 10 * time.Millisecond,
		ReconnectCeiling:  20 * time.Millisecond,
	}, pn, executor.NewProcessExecutor(dir, 1024, logger.Nop()), clock.Real(), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return d, done
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
		return nil
	}
}

// ── lifecycle ────────────────────────────────────────────────────────────────

func TestServer_StopDrainsDaemons(t *testing.T) {
	pn := newPipeNetwork("fleet")
	reg := registry.New(logger.Nop())
	srv, served := startServer(t, pn, reg, nil, newDispatcherSpy(protocol.SuccessResponse{}))

	d, ran := startDaemon(t, pn, "node-1")
	require.Eventually(t, func() bool {
		return d.State() == session.StateActive && reg.Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	srv.Stop("test over")

	require.NoError(t, waitErr(t, served))
	assert.NoError(t, waitErr(t, ran), "daemon exits without reconnecting after Shutdown")
	assert.Zero(t, reg.Len())
	assert.Equal(t, session.StateDisconnected, d.State())
}

func TestServer_StopBeforeServe(t *testing.T) {
	pn := newPipeNetwork("fleet")
	srv := New(Config{}, pn, registry.New(logger.Nop()), nil, clock.Real(), logger.Nop())
	srv.Stop("early")
	srv.Stop("twice")

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), newDispatcherSpy(nil)) }()
	assert.NoError(t, waitErr(t, done))

	_, err := pn.Dial(context.Background(), "pipe")
	assert.Error(t, err, "listener is closed on the way out")
}

func TestServer_ContextCancelStopsWorkers(t *testing.T) {
	pn := newPipeNetwork("fleet")

	var stopped atomic.Bool
	bg := workers.New(workers.WorkerFunc(func(ctx context.Context) {
		<-ctx.Done()
		stopped.Store(true)
	}))

	srv := New(Config{}, pn, registry.New(logger.Nop()), bg, clock.Real(), logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, newDispatcherSpy(nil)) }()

	cancel()
	assert.NoError(t, waitErr(t, done))
	assert.True(t, stopped.Load())
}

// failingListener fails every Accept with err.
type failingListener struct {
	*pipeNetwork
	err error
}

func (l *failingListener) Accept(context.Context) (transport.Conn, error) { return nil, l.err }

func TestServer_ListenerFailureIsReturned(t *testing.T) {
	boom := errors.New("accept exploded")
	ln := &failingListener{pipeNetwork: newPipeNetwork("fleet"), err: boom}

	var stopped atomic.Bool
	bg := workers.New(workers.WorkerFunc(func(ctx context.Context) {
		<-ctx.Done()
		stopped.Store(true)
	}))

	srv := New(Config{}, ln, registry.New(logger.Nop()), bg, clock.Real(), logger.Nop())
	err := srv.Serve(context.Background(), newDispatcherSpy(nil))

	assert.ErrorIs(t, err, boom)
	assert.True(t, stopped.Load(), "workers are stopped with the server")
}

func TestServer_OneShotThroughListener(t *testing.T) {
	pn := newPipeNetwork("admin")
	spy := newDispatcherSpy(protocol.SuccessResponse{Message: "ok"})
	srv, served := startServer(t, pn, registry.New(logger.Nop()), nil, spy)

	conn, err := pn.Dial(context.Background(), "pipe")
	require.NoError(t, err)
	defer conn.Close()

	stream, err := conn.OpenChannel(context.Background(), protocol.ChannelControl)
	require.NoError(t, err)
	control := protocol.NewConn(protocol.ChannelControl, stream, 0)

	require.NoError(t, control.Send(protocol.ShutdownCommand{Scope: "clients"}))
	resp, err := protocol.Expect[protocol.SuccessResponse](control)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message)
	conn.Close()

	srv.Stop("done")
	require.NoError(t, waitErr(t, served))
	assert.Equal(t, []protocol.Command{protocol.ShutdownCommand{Scope: "clients"}}, spy.commands())
}
