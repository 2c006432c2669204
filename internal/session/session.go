package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/transport"
	"github.com/tobert/halfremembered-launcher/internal/utils"
	"github.com/tobert/halfremembered-launcher/models"
)

// Options describes a connection whose first control frame was a Daemon
// Register.
type Options struct {
	ID           string
	Register     protocol.Register
	Conn         transport.Conn
	Control      *protocol.Conn
	Clock        clock.Clock
	Logger       *logger.Logger
	MaxFrameSize int
}

// Key identifies the principal behind a session. At most one live session
// exists per Key.
type Key struct {
	Hostname string
	Identity transport.Identity
}

// Session is the acceptor-side state of one daemon connection.
type Session struct {
	id           string
	register     protocol.Register
	identity     transport.Identity
	conn         transport.Conn
	control      *protocol.Conn
	clock        clock.Clock
	logger       *logger.Logger
	maxFrameSize int
	connectedAt  time.Time

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu            sync.Mutex
	state         State
	lastHeartbeat time.Time
	heartbeats    uint64
	echoed        bool
	draining      bool
	inflight      sync.WaitGroup

	pendingMu sync.Mutex
	pending   map[string]chan protocol.Pong
}

// New builds a session in the Connecting state. Its context derives from
// parent and carries the session id and a session-scoped logger.
func New(parent context.Context, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.ID == "" {
		opts.ID = utils.NewID()
	}

	now := opts.Clock.Now()
	log := opts.Logger.WithFields("session_id", opts.ID, "hostname", opts.Register.Hostname)

	ctx := utils.WithSessionID(parent, opts.ID)
	ctx = log.WithContext(ctx)
	ctx, cancel := context.WithCancelCause(ctx)

	return &Session{
		id:            opts.ID,
		register:      opts.Register,
		identity:      opts.Conn.Identity(),
		conn:          opts.Conn,
		control:       opts.Control,
		clock:         opts.Clock,
		logger:        log,
		maxFrameSize:  opts.MaxFrameSize,
		connectedAt:   now,
		ctx:           ctx,
		cancel:        cancel,
		state:         StateConnecting,
		lastHeartbeat: now,
		pending:       make(map[string]chan protocol.Pong),
	}
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Hostname() string             { return s.register.Hostname }
func (s *Session) Identity() transport.Identity { return s.identity }
func (s *Session) Purpose() protocol.Purpose    { return s.register.Purpose }
func (s *Session) ConnectedAt() time.Time       { return s.connectedAt }
func (s *Session) Logger() *logger.Logger       { return s.logger }
func (s *Session) Key() Key                     { return Key{Hostname: s.register.Hostname, Identity: s.identity} }

// Context is cancelled when the session ends. context.Cause reports why.
func (s *Session) Context() context.Context { return s.ctx }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Err returns the reason the session ended, or nil while it is live.
func (s *Session) Err() error {
	if s.ctx.Err() == nil {
		return nil
	}
	return context.Cause(s.ctx)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LastHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeartbeat
}

// MarkRegistered moves a Connecting session to Registered.
func (s *Session) MarkRegistered() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnecting {
		return fmt.Errorf("%w: cannot register from %s", ErrNotRegistered, s.state)
	}
	s.state = StateRegistered
	return nil
}

// Touch records a heartbeat at at. The first heartbeat promotes a
// Registered session to Active.
func (s *Session) Touch(at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Live() {
		return fmt.Errorf("%w: %s", ErrNotRegistered, s.state)
	}

	if at.After(s.lastHeartbeat) {
		s.lastHeartbeat = at
	}
	s.heartbeats++
	if s.state == StateRegistered {
		s.state = StateActive
		s.logger.Debug().Msg("session active")
	}
	return nil
}

// Expired reports whether the last heartbeat is older than timeout at now.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastHeartbeat()) > timeout
}

// Info returns a snapshot for listings.
func (s *Session) Info() models.ClientInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := models.ClientInfo{
		SessionID:     s.id,
		Hostname:      s.register.Hostname,
		Platform:      s.register.Platform,
		Version:       s.register.Version,
		Identity:      s.identity.String(),
		Capabilities:  append([]string(nil), s.register.Capabilities...),
		State:         s.state.String(),
		ConnectedAt:   s.connectedAt,
		LastHeartbeat: s.lastHeartbeat,
	}
	if addr := s.conn.RemoteAddr(); addr != nil {
		info.RemoteAddr = addr.String()
	}
	return info
}

// Send writes msg on the control channel.
func (s *Session) Send(msg protocol.Message) error {
	return s.control.Send(msg)
}

// Close ends the session with cause: it becomes Disconnected, its context
// is cancelled, waiting pings fail, and the transport is closed. Only the
// first call has any effect; it reports whether it was that call.
func (s *Session) Close(cause error) bool {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return false
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	if cause == nil {
		cause = ErrTransportClosed
	}
	s.cancel(cause)
	s.failPending()

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("closing transport")
	}

	ev := s.logger.Info()
	if !errors.Is(cause, ErrShutdown) && !errors.Is(cause, ErrTransportClosed) {
		ev = s.logger.Warn()
	}
	ev.AnErr("cause", cause).Msg("session closed")

	return true
}

// ── channels ─────────────────────────────────────────────────────────────────

// OpenChannel opens a Sync or Exec channel to the daemon. The returned Conn
// is closed when ctx or the session ends; callers close it when done.
func (s *Session) OpenChannel(ctx context.Context, c protocol.Channel) (*protocol.Conn, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}

	stream, err := s.conn.OpenChannel(ctx, c)
	if err != nil {
		s.inflight.Done()
		return nil, fmt.Errorf("opening %s channel: %w", c, err)
	}

	tracked := &trackedStream{Stream: stream, done: s.inflight.Done}
	conn := protocol.NewConn(c, tracked, s.maxFrameSize)

	stopCaller := context.AfterFunc(ctx, func() { conn.Close() })
	stopSession := context.AfterFunc(s.ctx, func() { conn.Close() })
	tracked.watch(func() {
		stopCaller()
		stopSession()
	})

	return conn, nil
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == StateDisconnected:
		return s.closedErr()
	case s.draining:
		return ErrDraining
	}
	s.inflight.Add(1)
	return nil
}

func (s *Session) closedErr() error {
	if err := s.Err(); err != nil {
		return err
	}
	return ErrTransportClosed
}

// Accepting reports whether the session still takes new channel work.
func (s *Session) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateDisconnected && !s.draining
}

// Drain stops new channel work, sends Shutdown, and waits for in-flight
// channels to close or ctx to end.
func (s *Session) Drain(ctx context.Context, reason string) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	if err := s.Send(protocol.Shutdown{Reason: reason}); err != nil {
		s.logger.Debug().Err(err).Msg("sending shutdown")
	}

	drained := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// trackedStream releases its in-flight slot and its context watchers on the
// first Close. The watchers may fire before they are handed to watch.
type trackedStream struct {
	transport.Stream
	done func()

	mu     sync.Mutex
	closed bool
	stop   func()
}

// watch hands over the func that stops the context watchers. If the stream
// is already closed it runs straight away.
func (t *trackedStream) watch(stop func()) {
	t.mu.Lock()
	if !t.closed {
		t.stop = stop
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	stop()
}

func (t *trackedStream) Close() error {
	err := t.Stream.Close()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return err
	}
	t.closed = true
	stop := t.stop
	t.mu.Unlock()

	if stop != nil {
		stop()
	}
	t.done()
	return err
}
