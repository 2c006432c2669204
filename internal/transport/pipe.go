package transport

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

// Pipe returns a connected in-memory pair. The acceptor side reports
// identity as the authenticated peer. Closing either side ends both.
func Pipe(identity Identity) (initiator, acceptor Conn) {
	shared := &pipeShared{done: make(chan struct{})}

	i := newPipeConn(shared, Identity{User: "acceptor"})
	a := newPipeConn(shared, identity)
	i.peer, a.peer = a, i

	return i, a
}

func newPipeConn(shared *pipeShared, identity Identity) *pipeConn {
	p := &pipeConn{
		shared:   shared,
		identity: identity,
		queue:    make(chan IncomingChannel, 8),
		incoming: make(chan IncomingChannel),
	}
	go p.forward()
	return p
}

// forward hands queued channels to Channels() and closes it once the pair
// is closed. OpenChannel never sends on a channel that can be closed.
func (p *pipeConn) forward() {
	defer close(p.incoming)
	for {
		select {
		case ic := <-p.queue:
			select {
			case p.incoming <- ic:
			case <-p.shared.done:
				return
			}
		case <-p.shared.done:
			return
		}
	}
}

type pipeShared struct {
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	streams []*pipeStream
}

type pipeConn struct {
	shared   *pipeShared
	peer     *pipeConn
	identity Identity
	queue    chan IncomingChannel
	incoming chan IncomingChannel
}

var _ Conn = (*pipeConn)(nil)

func (p *pipeConn) OpenChannel(ctx context.Context, c protocol.Channel) (Stream, error) {
	if !c.Valid() {
		return nil, ErrUnknownChannelType
	}

	local, remote := newPipeStreams()

	p.shared.mu.Lock()
	if p.shared.closed {
		p.shared.mu.Unlock()
		return nil, ErrClosed
	}
	p.shared.streams = append(p.shared.streams, local, remote)
	p.shared.mu.Unlock()

	select {
	case p.peer.queue <- IncomingChannel{Channel: c, Stream: remote}:
		return local, nil
	case <-p.shared.done:
		return nil, ErrClosed
	case <-ctx.Done():
		local.Close()
		return nil, context.Cause(ctx)
	}
}

func (p *pipeConn) Channels() <-chan IncomingChannel { return p.incoming }

func (p *pipeConn) Identity() Identity { return p.identity }

func (p *pipeConn) RemoteAddr() net.Addr { return pipeAddr{} }

func (p *pipeConn) Done() <-chan struct{} { return p.shared.done }

// Close ends both sides and every stream opened on them.
func (p *pipeConn) Close() error {
	p.shared.mu.Lock()
	defer p.shared.mu.Unlock()

	if p.shared.closed {
		return nil
	}
	p.shared.closed = true
	close(p.shared.done)

	for _, s := range p.shared.streams {
		s.Close()
	}

	return nil
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

// pipeStream is one direction-pair of io.Pipes so CloseWrite can deliver
// EOF to the peer independently of Close.
type pipeStream struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newPipeStreams() (*pipeStream, *pipeStream) {
	r1, w1 := io.Pipe()
	r2, w2 := io.Pipe()
	return &pipeStream{r: r1, w: w2}, &pipeStream{r: r2, w: w1}
}

func (s *pipeStream) Read(b []byte) (int, error)  { return s.r.Read(b) }
func (s *pipeStream) Write(b []byte) (int, error) { return s.w.Write(b) }
func (s *pipeStream) CloseWrite() error           { return s.w.Close() }

func (s *pipeStream) Close() error {
	s.w.Close()
	return s.r.Close()
}
