// Package transport carries the launcher's logical channels. The production
// implementation multiplexes them as SSH channels over one authenticated
// connection; Pipe provides an in-memory pair with the same semantics.
package transport

import (
	"context"
	"io"
	"net"

	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

// Identity is the authenticated principal on the far side of a Conn.
type Identity struct {
	User        string `json:"user"`
	Fingerprint string `json:"fingerprint"`
}

func (i Identity) String() string {
	if i.Fingerprint == "" {
		return i.User
	}
	return i.User + "/" + i.Fingerprint
}

// Stream is one open logical channel.
type Stream interface {
	io.ReadWriteCloser

	// CloseWrite signals EOF to the peer while leaving the read side open.
	CloseWrite() error
}

// IncomingChannel is a channel opened by the peer.
type IncomingChannel struct {
	Channel protocol.Channel
	Stream  Stream
}

// Conn is one authenticated connection.
type Conn interface {
	// OpenChannel opens a new logical channel of kind c.
	OpenChannel(ctx context.Context, c protocol.Channel) (Stream, error)

	// Channels delivers channels opened by the peer. It is closed when the
	// connection ends.
	Channels() <-chan IncomingChannel

	Identity() Identity
	RemoteAddr() net.Addr
	Close() error

	// Done is closed once the connection has ended for any reason.
	Done() <-chan struct{}
}

// Listener accepts authenticated connections.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() net.Addr
	Close() error
}

// Dialer establishes authenticated connections.
type Dialer interface {
	Dial(ctx context.Context, address string) (Conn, error)
}
