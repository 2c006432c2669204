package client

import "errors"

var (
	// ErrServerUnreachable wraps dial and channel-open failures.
	ErrServerUnreachable = errors.New("launcher server unreachable")

	// ErrUnexpectedResponse is returned by Call when the server answers
	// with a different response type than the command implies.
	ErrUnexpectedResponse = errors.New("unexpected response")
)
