package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/transport"
	"github.com/tobert/halfremembered-launcher/internal/utils"
)

const (
	// classifyTimeout bounds the wait for a connection's control channel and
	// its first frames.
	classifyTimeout = 10 * time.Second

	// lingerTimeout bounds how long a one-shot connection stays open after
	// the response so the peer can read it and hang up first.
	lingerTimeout = 5 * time.Second
)

// AcceptorConfig is what the acceptor tells daemons in Welcome.
type AcceptorConfig struct {
	Version           string
	HeartbeatInterval time.Duration
	MaxFrameSize      int
}

// Acceptor turns accepted connections into daemon sessions or one-shot
// command exchanges.
type Acceptor struct {
	cfg        AcceptorConfig
	registry   *registry.Registry
	dispatcher Dispatcher
	clock      clock.Clock
	logger     *logger.Logger

	wg sync.WaitGroup
}

func NewAcceptor(cfg AcceptorConfig, reg *registry.Registry, d Dispatcher, clk clock.Clock, log *logger.Logger) *Acceptor {
	return &Acceptor{
		cfg:        cfg,
		registry:   reg,
		dispatcher: d,
		clock:      clk,
		logger:     log,
	}
}

// Serve accepts connections from ln until ctx ends or the listener is
// closed. Each connection is handled in its own goroutine.
func (a *Acceptor) Serve(ctx context.Context, ln transport.Listener) error {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.HandleConn(ctx, conn)
		}()
	}
}

// Wait blocks until every connection handler has returned.
func (a *Acceptor) Wait() {
	a.wg.Wait()
}

// HandleConn classifies conn by its first control frame and serves it.
// It returns when the connection is finished.
func (a *Acceptor) HandleConn(ctx context.Context, conn transport.Conn) {
	log := a.logger.WithFields("remote", conn.RemoteAddr().String(), "identity", conn.Identity().String())
	release := a.deadline(conn, classifyTimeout)

	control, err := a.controlChannel(ctx, conn)
	if err != nil {
		release()
		log.Debug().Err(err).Msg("connection closed before control channel")
		conn.Close()
		return
	}

	msg, err := control.Receive()
	if err != nil {
		release()
		if protocol.IsClean(err) {
			conn.Close()
			return
		}
		a.refuse(conn, control, log, fmt.Errorf("%w: %w", ErrFirstFrame, err))
		return
	}

	switch m := msg.(type) {
	case protocol.Register:
		switch m.Purpose {
		case protocol.PurposeDaemon:
			release()
			a.serveDaemon(conn, control, m)
		case protocol.PurposeOneShotControl:
			cmd, err := expectCommand(control)
			release()
			if err != nil {
				a.refuse(conn, control, log, err)
				return
			}
			a.serveOneShot(ctx, conn, control, cmd, log)
		default:
			release()
			a.refuse(conn, control, log, fmt.Errorf("%w: %s", errUnknownPurpose, m.Purpose))
		}

	case protocol.Command:
		release()
		a.serveOneShot(ctx, conn, control, m, log)

	default:
		release()
		a.refuse(conn, control, log, fmt.Errorf("%w: %s", ErrFirstFrame, msg.Tag()))
	}
}

// controlChannel waits for the peer to open the control channel.
func (a *Acceptor) controlChannel(ctx context.Context, conn transport.Conn) (*protocol.Conn, error) {
	select {
	case ic, ok := <-conn.Channels():
		if !ok {
			return nil, transport.ErrClosed
		}
		if ic.Channel != protocol.ChannelControl {
			ic.Stream.Close()
			return nil, fmt.Errorf("%w: %s before control", ErrFirstFrame, ic.Channel)
		}
		return protocol.NewConn(protocol.ChannelControl, ic.Stream, a.cfg.MaxFrameSize), nil
	case <-conn.Done():
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

func expectCommand(control *protocol.Conn) (protocol.Command, error) {
	msg, err := control.Receive()
	if err != nil {
		return nil, err
	}
	cmd, ok := msg.(protocol.Command)
	if !ok {
		return nil, fmt.Errorf("%w: %s after one-shot register", protocol.ErrUnexpectedMessage, msg.Tag())
	}
	return cmd, nil
}

// deadline closes conn unless release is called within d.
func (a *Acceptor) deadline(conn transport.Conn, d time.Duration) (release func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
		case <-conn.Done():
		case <-a.clock.After(d):
			a.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("classification timed out")
			conn.Close()
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// serveDaemon registers a daemon session and runs its control loop. The
// session outlives the request that created it, so it is detached from the
// server context and closed explicitly on shutdown.
func (a *Acceptor) serveDaemon(conn transport.Conn, control *protocol.Conn, reg protocol.Register) {
	s := session.New(context.Background(), session.Options{
		Register:     reg,
		Conn:         conn,
		Control:      control,
		Clock:        a.clock,
		Logger:       a.logger,
		MaxFrameSize: a.cfg.MaxFrameSize,
	})
	log := s.Logger()

	if err := s.MarkRegistered(); err != nil {
		a.refuse(conn, control, log, err)
		return
	}

	superseded, err := a.registry.Register(s)
	if err != nil {
		a.refuse(conn, control, log, err)
		return
	}
	if superseded != nil {
		superseded.Close(session.ErrSuperseded)
	}

	welcome := protocol.Welcome{
		SessionID:         s.ID(),
		ServerVersion:     a.cfg.Version,
		HeartbeatInterval: a.cfg.HeartbeatInterval,
	}
	if err := control.Send(welcome); err != nil {
		log.Warn().Err(err).Str("func", "*Acceptor.serveDaemon").Msg("sending welcome")
		s.Close(err)
		a.registry.RemoveIf(s)
		return
	}

	log.Info().
		Str("platform", reg.Platform).
		Str("version", reg.Version).
		Strs("capabilities", reg.Capabilities).
		Msg("daemon registered")

	if err := s.Serve(a.registry.TouchHeartbeat); err != nil {
		log.Warn().Err(err).Msg("control loop failed")
	}
	a.registry.RemoveIf(s)
}

// serveOneShot answers cmd and closes the connection. The command is
// cancelled if the admin peer hangs up first.
func (a *Acceptor) serveOneShot(ctx context.Context, conn transport.Conn, control *protocol.Conn, cmd protocol.Command, log *logger.Logger) {
	defer conn.Close()

	ctx, cancel := context.WithCancelCause(utils.WithRequestID(ctx, utils.NewID()))
	defer cancel(nil)
	go func() {
		select {
		case <-conn.Done():
			cancel(transport.ErrClosed)
		case <-ctx.Done():
		}
	}()

	log.Debug().Str("command", cmd.Tag().String()).Msg("one-shot command")

	resp := a.dispatcher.Handle(log.WithContext(ctx), cmd)
	if err := control.Send(resp); err != nil {
		log.Warn().Err(err).Str("func", "*Acceptor.serveOneShot").Msg("sending response")
		return
	}
	if err := control.CloseWrite(); err != nil {
		log.Debug().Err(err).Msg("half-closing control channel")
	}

	select {
	case <-conn.Done():
	case <-ctx.Done():
	case <-a.clock.After(lingerTimeout):
	}
}

// refuse reports err to the peer and closes the connection.
func (a *Acceptor) refuse(conn transport.Conn, control *protocol.Conn, log *logger.Logger, err error) {
	log.Warn().Err(err).Str("func", "*Acceptor.refuse").Msg("refusing connection")

	release := a.deadline(conn, lingerTimeout)
	defer release()

	if sendErr := control.Send(protocol.Error{Reason: err.Error()}); sendErr != nil {
		log.Debug().Err(sendErr).Msg("sending refusal")
	}
	control.CloseWrite()
	conn.Close()
}
