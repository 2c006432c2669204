package protocol

import "fmt"

// Channel identifies a logical channel within one connection.
type Channel uint8

const (
	ChannelControl Channel = iota + 1
	ChannelSync
	ChannelExec
)

func (c Channel) String() string {
	switch c {
	case ChannelControl:
		return "control"
	case ChannelSync:
		return "sync"
	case ChannelExec:
		return "exec"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c >= ChannelControl && c <= ChannelExec
}

// Allows reports whether messages with tag t may travel on c. Error is
// allowed everywhere.
func (c Channel) Allows(t Tag) bool {
	return t == TagError || t.Channel() == c
}

// Purpose is the registration purpose a connection declares on its control
// channel. One connection carries exactly one purpose.
type Purpose uint8

const (
	PurposeDaemon Purpose = iota + 1
	PurposeOneShotControl
)

func (p Purpose) String() string {
	switch p {
	case PurposeDaemon:
		return "daemon"
	case PurposeOneShotControl:
		return "one-shot-control"
	default:
		return fmt.Sprintf("purpose(%d)", uint8(p))
	}
}
