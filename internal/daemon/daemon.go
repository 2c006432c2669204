package daemon

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/executor"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/transport"
	"github.com/tobert/halfremembered-launcher/internal/utils"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultWelcomeTimeout    = 10 * time.Second
)

// Capabilities advertised in Register.
var Capabilities = []string{"sync", "exec", "ping"}

// Config is the initiator's view of the launcher configuration.
type Config struct {
	ServerAddress     string
	Hostname          string
	Version           string
	WorkingDir        string
	HeartbeatInterval time.Duration
	WelcomeTimeout    time.Duration
	ReconnectInterval time.Duration
	ReconnectCeiling  time.Duration
	MaxFrameSize      int
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.WelcomeTimeout <= 0 {
		c.WelcomeTimeout = DefaultWelcomeTimeout
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	if c.WorkingDir == "" {
		c.WorkingDir = "."
	}
}

// Daemon keeps one Daemon session with the server alive.
type Daemon struct {
	cfg      Config
	dialer   transport.Dialer
	executor executor.Executor
	clock    clock.Clock
	logger   *logger.Logger

	startedAt time.Time
	pending   atomic.Int32

	mu        sync.Mutex
	state     session.State
	sessionID string
}

func New(cfg Config, dialer transport.Dialer, exec executor.Executor, clk clock.Clock, log *logger.Logger) *Daemon {
	cfg.applyDefaults()
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Daemon{
		cfg:       cfg,
		dialer:    dialer,
		executor:  exec,
		clock:     clk,
		logger:    log,
		startedAt: clk.Now(),
		state:     session.StateDisconnected,
	}
}

// State returns the state of the current connection attempt.
func (d *Daemon) State() session.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SessionID returns the id assigned by the server for the current session.
func (d *Daemon) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

func (d *Daemon) setState(s session.State, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
	if id != "" || s == session.StateDisconnected {
		d.sessionID = id
	}
}

// Run connects and reconnects until ctx is done or the server sends
// Shutdown. Every other disconnect is logged and retried after the current
// backoff delay.
func (d *Daemon) Run(ctx context.Context) error {
	backoff := session.NewBackoff(d.cfg.ReconnectInterval, d.cfg.ReconnectCeiling)

	for {
		err := d.runSession(ctx, backoff)
		d.setState(session.StateDisconnected, "")

		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrShutdownRequested):
			d.logger.Info().Msg("server requested shutdown; not reconnecting")
			return nil
		}

		delay := backoff.Next()
		d.logger.Warn().Err(err).Dur("retry_in", delay).Msg("session ended; reconnecting")

		select {
		case <-d.clock.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

// runSession drives one connection from dial to disconnect.
func (d *Daemon) runSession(ctx context.Context, backoff *session.Backoff) error {
	d.setState(session.StateConnecting, "")

	conn, err := d.dialer.Dial(ctx, d.cfg.ServerAddress)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	stream, err := conn.OpenChannel(ctx, protocol.ChannelControl)
	if err != nil {
		return fmt.Errorf("opening control channel: %w", err)
	}
	control := protocol.NewConn(protocol.ChannelControl, stream, d.cfg.MaxFrameSize)

	welcome, err := d.register(ctx, control, conn)
	if err != nil {
		return err
	}

	d.setState(session.StateRegistered, welcome.SessionID)
	log := d.logger.WithFields("session_id", welcome.SessionID)
	log.Info().Str("server_version", welcome.ServerVersion).Msg("registered")

	interval := d.cfg.HeartbeatInterval
	if welcome.HeartbeatInterval > 0 {
		interval = welcome.HeartbeatInterval
	}

	sessCtx, cancel := context.WithCancelCause(utils.WithSessionID(log.WithContext(ctx), welcome.SessionID))
	defer cancel(nil)
	stopClose := context.AfterFunc(sessCtx, func() { conn.Close() })
	defer stopClose()

	acceptCtx, stopAccepting := context.WithCancel(sessCtx)
	defer stopAccepting()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.heartbeat(sessCtx, cancel, control, interval, conn)
	}()

	accepted := make(chan struct{})
	go func() {
		defer close(accepted)
		d.acceptChannels(acceptCtx, sessCtx, conn)
	}()

	err = d.readControl(sessCtx, control, backoff)

	if errors.Is(err, ErrShutdownRequested) {
		// stop taking channels and let in-flight transfers finish
		stopAccepting()
		<-accepted
	}

	cancel(err)
	conn.Close()
	wg.Wait()
	<-accepted

	if cause := context.Cause(sessCtx); errors.Is(cause, session.ErrHeartbeatTimeout) {
		return cause
	}
	return err
}

func (d *Daemon) register(ctx context.Context, control *protocol.Conn, conn transport.Conn) (protocol.Welcome, error) {
	err := control.Send(protocol.Register{
		Hostname:     d.cfg.Hostname,
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
		Version:      d.cfg.Version,
		Capabilities: Capabilities,
		Purpose:      protocol.PurposeDaemon,
	})
	if err != nil {
		return protocol.Welcome{}, fmt.Errorf("sending register: %w", err)
	}

	type result struct {
		welcome protocol.Welcome
		err     error
	}
	got := make(chan result, 1)
	go func() {
		w, err := protocol.Expect[protocol.Welcome](control)
		got <- result{welcome: w, err: err}
	}()

	select {
	case r := <-got:
		var remote *protocol.RemoteError
		if errors.As(r.err, &remote) {
			return protocol.Welcome{}, fmt.Errorf("%w: %s", ErrRegistrationRefused, remote.Reason)
		}
		if r.err != nil {
			return protocol.Welcome{}, fmt.Errorf("awaiting welcome: %w", r.err)
		}
		return r.welcome, nil
	case <-d.clock.After(d.cfg.WelcomeTimeout):
		conn.Close()
		return protocol.Welcome{}, ErrWelcomeTimeout
	case <-ctx.Done():
		conn.Close()
		return protocol.Welcome{}, context.Cause(ctx)
	}
}

// readControl handles server traffic on the control channel until it ends.
func (d *Daemon) readControl(ctx context.Context, control *protocol.Conn, backoff *session.Backoff) error {
	log := logger.FromContext(ctx)

	for {
		msg, err := control.Receive()
		if err != nil {
			if protocol.IsClean(err) {
				return fmt.Errorf("server closed the connection: %w", err)
			}
			return err
		}

		switch m := msg.(type) {
		case protocol.Heartbeat:
			if d.State() == session.StateRegistered {
				d.setState(session.StateActive, "")
				backoff.Reset()
				log.Info().Msg("session active")
			}

		case protocol.Ping:
			err := control.Send(protocol.Pong{
				RequestID:        m.RequestID,
				Uptime:           d.clock.Now().Sub(d.startedAt),
				PendingTransfers: uint32(d.pending.Load()),
			})
			if err != nil {
				return fmt.Errorf("answering ping: %w", err)
			}

		case protocol.Shutdown:
			log.Info().Str("reason", m.Reason).Msg("shutdown received; draining")
			return ErrShutdownRequested

		case protocol.Error:
			log.Warn().Str("request_id", m.RequestID).Str("reason", m.Reason).Msg("server reported error")

		default:
			return fmt.Errorf("%w: %s from server", protocol.ErrUnexpectedMessage, msg.Tag())
		}
	}
}

// heartbeat sends a Heartbeat immediately and then every interval. If the
// first one is not echoed within two intervals the session is abandoned.
func (d *Daemon) heartbeat(ctx context.Context, cancel context.CancelCauseFunc, control *protocol.Conn, interval time.Duration, conn transport.Conn) {
	log := logger.FromContext(ctx)
	ticker := d.clock.NewTicker(interval)
	defer ticker.Stop()

	deadline := d.clock.Now().Add(2 * interval)
	var seq uint32

	send := func() bool {
		seq++
		err := control.Send(protocol.Heartbeat{Timestamp: d.clock.Now().UnixMilli(), Sequence: seq})
		if err != nil {
			log.Debug().Err(err).Msg("heartbeat send failed")
			return false
		}
		return true
	}

	if !send() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if d.State() == session.StateRegistered && !now.Before(deadline) {
				log.Warn().Msg("first heartbeat was never acknowledged")
				cancel(session.ErrHeartbeatTimeout)
				conn.Close()
				return
			}
			if !send() {
				return
			}
		}
	}
}

// acceptChannels serves every Sync and Exec channel the server opens until
// acceptCtx ends, then waits for the handlers, which run under workCtx.
func (d *Daemon) acceptChannels(acceptCtx, workCtx context.Context, conn transport.Conn) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-acceptCtx.Done():
			return
		case ic, ok := <-conn.Channels():
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.serveChannel(workCtx, ic)
			}()
		}
	}
}

func (d *Daemon) serveChannel(ctx context.Context, ic transport.IncomingChannel) {
	c := protocol.NewConn(ic.Channel, ic.Stream, d.cfg.MaxFrameSize)
	defer c.Close()
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	log := logger.FromContext(ctx)

	var err error
	switch ic.Channel {
	case protocol.ChannelSync:
		err = d.receiveFile(ctx, c)
	case protocol.ChannelExec:
		err = d.execute(ctx, c)
	default:
		err = fmt.Errorf("%w: server opened %s channel", protocol.ErrUnexpectedMessage, ic.Channel)
		_ = c.Send(protocol.Error{Reason: err.Error()})
	}

	if err != nil {
		log.Err(err).Str("func", "Daemon.serveChannel").Str("channel", ic.Channel.String()).Msg("channel failed")
	}
}
