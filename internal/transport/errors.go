package transport

import "errors"

var (
	ErrClosed             = errors.New("transport closed")
	ErrUnknownChannelType = errors.New("unknown channel type")
	ErrChannelRejected    = errors.New("channel rejected by peer")
)
