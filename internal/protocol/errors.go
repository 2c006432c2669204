package protocol

import (
	"errors"
	"fmt"
)

// Framing errors. All of them are fatal to the connection that produced them.
var (
	ErrFrameTooLarge  = errors.New("frame exceeds maximum size")
	ErrMalformedFrame = errors.New("malformed frame")
	ErrTruncatedFrame = errors.New("stream ended inside a frame")
	ErrUnknownTag     = errors.New("unknown message tag")
	ErrStream         = errors.New("stream failure")
)

// Protocol errors.
var (
	// ErrUnexpectedMessage is returned when a message arrives on a channel
	// that does not carry it, or in a state that does not expect it.
	ErrUnexpectedMessage = errors.New("unexpected message")

	// ErrWrongChannel is returned when sending a message on a channel that
	// cannot carry it.
	ErrWrongChannel = errors.New("message does not belong to this channel")
)

// RemoteError is the local form of an Error message received from the peer.
type RemoteError struct {
	RequestID string
	Reason    string
}

func (e *RemoteError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("remote error: %s", e.Reason)
	}
	return fmt.Sprintf("remote error (request %s): %s", e.RequestID, e.Reason)
}
