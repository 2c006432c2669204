package session

import "fmt"

// State is the lifecycle position of a session.
type State int32

const (
	StateConnecting State = iota
	StateRegistered
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRegistered:
		return "registered"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Live reports whether a session in state s belongs in the registry.
func (s State) Live() bool {
	return s == StateRegistered || s == StateActive
}
