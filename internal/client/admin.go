package client

import (
	"context"
	"fmt"
	"runtime"

	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/transport"
)

// Config identifies the admin client to the server.
type Config struct {
	ServerAddress string
	Hostname      string
	Version       string
	MaxFrameSize  int
}

// Admin opens a fresh connection for every command.
type Admin struct {
	cfg    Config
	dialer transport.Dialer
	logger *logger.Logger
}

func NewAdmin(cfg Config, dialer transport.Dialer, log *logger.Logger) *Admin {
	return &Admin{cfg: cfg, dialer: dialer, logger: log}
}

// Do implements [Commander]. Cancelling ctx closes the connection, which
// the server treats as abandoning the command.
func (a *Admin) Do(ctx context.Context, cmd protocol.Command) (protocol.Message, error) {
	conn, err := a.dialer.Dial(ctx, a.cfg.ServerAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServerUnreachable, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	stream, err := conn.OpenChannel(ctx, protocol.ChannelControl)
	if err != nil {
		return nil, fmt.Errorf("%w: opening control channel: %w", ErrServerUnreachable, err)
	}
	control := protocol.NewConn(protocol.ChannelControl, stream, a.cfg.MaxFrameSize)

	err = control.Send(protocol.Register{
		Hostname: a.cfg.Hostname,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Version:  a.cfg.Version,
		Purpose:  protocol.PurposeOneShotControl,
	})
	if err != nil {
		return nil, a.failed(ctx, "sending register", err)
	}
	if err := control.Send(cmd); err != nil {
		return nil, a.failed(ctx, "sending command", err)
	}

	a.logger.Debug().Str("command", cmd.Tag().String()).Str("server", a.cfg.ServerAddress).Msg("command sent")

	msg, err := control.Receive()
	if err != nil {
		return nil, a.failed(ctx, "awaiting response", err)
	}
	if e, ok := msg.(protocol.Error); ok {
		return nil, &protocol.RemoteError{RequestID: e.RequestID, Reason: e.Reason}
	}
	return msg, nil
}

// failed prefers the context's cause over the transport error it produced.
func (a *Admin) failed(ctx context.Context, step string, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return fmt.Errorf("%s: %w", step, cause)
	}
	return fmt.Errorf("%s: %w", step, err)
}

// Call sends cmd through c and requires a T in response.
func Call[T protocol.Message](ctx context.Context, c Commander, cmd protocol.Command) (T, error) {
	var zero T

	msg, err := c.Do(ctx, cmd)
	if err != nil {
		return zero, err
	}

	typed, ok := msg.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %s, want %T", ErrUnexpectedResponse, msg.Tag(), zero)
	}
	return typed, nil
}
