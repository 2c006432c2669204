package session

import "errors"

var (
	// ErrSuperseded is the cancellation cause of a session replaced by a
	// newer registration from the same hostname and identity.
	ErrSuperseded = errors.New("session superseded by a newer registration")

	// ErrHeartbeatTimeout is the cancellation cause of a session whose
	// heartbeats stopped arriving.
	ErrHeartbeatTimeout = errors.New("heartbeat deadline elapsed")

	// ErrShutdown is the cause of a session ended by a Shutdown message.
	ErrShutdown = errors.New("session shut down")

	// ErrTransportClosed is the cause of a session whose connection ended.
	ErrTransportClosed = errors.New("transport closed")

	// ErrDraining is returned when new work is requested on a session that
	// is shutting down.
	ErrDraining = errors.New("session is draining")

	ErrNotRegistered = errors.New("session is not registered")
)
