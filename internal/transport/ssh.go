package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/tobert/halfremembered-launcher/internal/crypto"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

const (
	serverVersion           = "SSH-2.0-hrl-launcher"
	defaultHandshakeTimeout = 10 * time.Second
)

// ServerOptions configures the SSH acceptor.
type ServerOptions struct {
	HostSigner       ssh.Signer
	Authorize        func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error)
	HandshakeTimeout time.Duration
}

// ClientOptions configures the SSH initiator.
type ClientOptions struct {
	User            string
	Auth            []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback
	Timeout         time.Duration
}

// ── listener ─────────────────────────────────────────────────────────────────

type sshListener struct {
	ln     net.Listener
	config *ssh.ServerConfig
	opts   ServerOptions
	logger *logger.Logger

	conns     chan Conn
	closed    chan struct{}
	closeOnce sync.Once
}

var _ Listener = (*sshListener)(nil)

// Listen opens a TCP listener on address and performs SSH handshakes for
// every accepted connection in the background.
func Listen(address string, opts ServerOptions, log *logger.Logger) (Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", address, err)
	}
	return Serve(ln, opts, log), nil
}

// Serve wraps an existing listener.
func Serve(ln net.Listener, opts ServerOptions, log *logger.Logger) Listener {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if log == nil {
		log = logger.Nop()
	}

	config := &ssh.ServerConfig{
		PublicKeyCallback: opts.Authorize,
		ServerVersion:     serverVersion,
	}
	config.AddHostKey(opts.HostSigner)

	l := &sshListener{
		ln:     ln,
		config: config,
		opts:   opts,
		logger: log,
		conns:  make(chan Conn),
		closed: make(chan struct{}),
	}
	go l.acceptLoop()

	return l
}

func (l *sshListener) acceptLoop() {
	for {
		nc, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.closed:
			default:
				l.logger.Err(err).Str("func", "sshListener.acceptLoop").Msg("accept failed; listener stopped")
				l.Close()
			}
			return
		}
		go l.handshake(nc)
	}
}

func (l *sshListener) handshake(nc net.Conn) {
	_ = nc.SetDeadline(time.Now().Add(l.opts.HandshakeTimeout))

	sc, chans, reqs, err := ssh.NewServerConn(nc, l.config)
	if err != nil {
		l.logger.Warn().Err(err).Str("remote", nc.RemoteAddr().String()).Msg("ssh handshake failed")
		nc.Close()
		return
	}
	_ = nc.SetDeadline(time.Time{})

	identity := Identity{User: sc.User()}
	if sc.Permissions != nil {
		identity.Fingerprint = sc.Permissions.Extensions[crypto.ExtFingerprint]
	}

	conn := newSSHConn(sc, chans, reqs, identity, l.logger)

	select {
	case l.conns <- conn:
	case <-l.closed:
		conn.Close()
	}
}

func (l *sshListener) Accept(ctx context.Context) (Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

func (l *sshListener) Addr() net.Addr { return l.ln.Addr() }

func (l *sshListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.ln.Close()
	})
	return err
}

// ── dialer ───────────────────────────────────────────────────────────────────

type sshDialer struct {
	opts   ClientOptions
	logger *logger.Logger
}

var _ Dialer = (*sshDialer)(nil)

// NewDialer returns an SSH Dialer.
func NewDialer(opts ClientOptions, log *logger.Logger) Dialer {
	if log == nil {
		log = logger.Nop()
	}
	return &sshDialer{opts: opts, logger: log}
}

func (d *sshDialer) Dial(ctx context.Context, address string) (Conn, error) {
	var hostKey ssh.PublicKey
	callback := d.opts.HostKeyCallback
	if callback == nil {
		callback = ssh.InsecureIgnoreHostKey()
	}

	config := &ssh.ClientConfig{
		User: d.opts.User,
		Auth: d.opts.Auth,
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			hostKey = key
			return callback(hostname, remote, key)
		},
		Timeout: d.opts.Timeout,
	}

	netDialer := net.Dialer{Timeout: d.opts.Timeout}
	nc, err := netDialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
	}

	cc, chans, reqs, err := ssh.NewClientConn(nc, address, config)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", address, err)
	}
	_ = nc.SetDeadline(time.Time{})

	identity := Identity{User: "server"}
	if hostKey != nil {
		identity.Fingerprint = ssh.FingerprintSHA256(hostKey)
	}

	return newSSHConn(cc, chans, reqs, identity, d.logger), nil
}

// ── connection ───────────────────────────────────────────────────────────────

type sshConn struct {
	conn     ssh.Conn
	identity Identity
	logger   *logger.Logger

	incoming chan IncomingChannel
	done     chan struct{}
}

var _ Conn = (*sshConn)(nil)

func newSSHConn(conn ssh.Conn, chans <-chan ssh.NewChannel, reqs <-chan *ssh.Request, identity Identity, log *logger.Logger) *sshConn {
	c := &sshConn{
		conn:     conn,
		identity: identity,
		logger:   log,
		incoming: make(chan IncomingChannel),
		done:     make(chan struct{}),
	}

	go ssh.DiscardRequests(reqs)
	go c.acceptChannels(chans)
	go func() {
		_ = conn.Wait()
		close(c.done)
	}()

	return c
}

func (c *sshConn) acceptChannels(chans <-chan ssh.NewChannel) {
	defer close(c.incoming)

	for nc := range chans {
		kind, err := ParseChannelType(nc.ChannelType())
		if err != nil {
			_ = nc.Reject(ssh.UnknownChannelType, err.Error())
			continue
		}

		ch, reqs, err := nc.Accept()
		if err != nil {
			c.logger.Warn().Err(err).Str("channel", kind.String()).Msg("accepting channel failed")
			continue
		}
		go ssh.DiscardRequests(reqs)

		select {
		case c.incoming <- IncomingChannel{Channel: kind, Stream: ch}:
		case <-c.done:
			ch.Close()
		}
	}
}

type openResult struct {
	ch  ssh.Channel
	err error
}

func (c *sshConn) OpenChannel(ctx context.Context, kind protocol.Channel) (Stream, error) {
	name, err := ChannelType(kind)
	if err != nil {
		return nil, err
	}

	result := make(chan openResult, 1)
	go func() {
		ch, reqs, err := c.conn.OpenChannel(name, nil)
		if err == nil {
			go ssh.DiscardRequests(reqs)
		}
		result <- openResult{ch: ch, err: err}
	}()

	select {
	case r := <-result:
		if r.err != nil {
			var open *ssh.OpenChannelError
			if errors.As(r.err, &open) {
				return nil, fmt.Errorf("%w: %s: %s", ErrChannelRejected, name, open.Message)
			}
			return nil, fmt.Errorf("opening %s: %w", name, r.err)
		}
		return r.ch, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		go func() {
			if r := <-result; r.err == nil {
				r.ch.Close()
			}
		}()
		return nil, context.Cause(ctx)
	}
}

func (c *sshConn) Channels() <-chan IncomingChannel { return c.incoming }

func (c *sshConn) Identity() Identity { return c.identity }

func (c *sshConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *sshConn) Close() error { return c.conn.Close() }

func (c *sshConn) Done() <-chan struct{} { return c.done }
