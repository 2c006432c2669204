package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Conn carries framed messages for one logical channel. Send is safe for
// concurrent use; Receive must be called from a single goroutine.
type Conn struct {
	channel Channel
	rw      io.ReadWriteCloser
	reader  *Reader
	max     int

	sendMu sync.Mutex
}

// NewConn wraps rw as channel c. A non-positive maxPayload means
// DefaultMaxFrameSize.
func NewConn(c Channel, rw io.ReadWriteCloser, maxPayload int) *Conn {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxFrameSize
	}
	return &Conn{
		channel: c,
		rw:      rw,
		reader:  NewReader(rw, maxPayload),
		max:     maxPayload,
	}
}

// Channel returns the logical channel this Conn carries.
func (c *Conn) Channel() Channel { return c.channel }

// MaxPayload returns the payload limit enforced in both directions.
func (c *Conn) MaxPayload() int { return c.max }

// Send frames and writes msg. Messages that do not belong to the channel
// are refused with ErrWrongChannel before anything is written.
func (c *Conn) Send(msg Message) error {
	if !c.channel.Allows(msg.Tag()) {
		return fmt.Errorf("%w: %s on %s", ErrWrongChannel, msg.Tag(), c.channel)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	return WriteFrame(c.rw, msg, c.max)
}

// Receive reads the next message. A message that does not belong to the
// channel is a protocol violation and returns ErrUnexpectedMessage.
func (c *Conn) Receive() (Message, error) {
	msg, err := c.reader.ReadFrame()
	if err != nil {
		return nil, err
	}

	if !c.channel.Allows(msg.Tag()) {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnexpectedMessage, msg.Tag(), c.channel)
	}

	return msg, nil
}

// CloseWrite half-closes the underlying stream when it supports it, so the
// peer sees a clean EOF after the last frame.
func (c *Conn) CloseWrite() error {
	if cw, ok := c.rw.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.rw.Close()
}

// Expect receives the next message and requires it to be a T. An Error
// message is returned as *RemoteError.
func Expect[T Message](c *Conn) (T, error) {
	var zero T

	msg, err := c.Receive()
	if err != nil {
		return zero, err
	}

	if e, ok := msg.(Error); ok {
		return zero, &RemoteError{RequestID: e.RequestID, Reason: e.Reason}
	}

	typed, ok := msg.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %s, want %T", ErrUnexpectedMessage, msg.Tag(), zero)
	}

	return typed, nil
}

// IsClean reports whether err is the orderly end of a stream.
func IsClean(err error) bool {
	return errors.Is(err, io.EOF)
}
