package transport

import (
	"fmt"

	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

// SSH channel-open types for the logical channels.
const (
	ChannelTypeControl = "hrl-control"
	ChannelTypeSync    = "hrl-sync"
	ChannelTypeExec    = "hrl-exec"
)

// ChannelType returns the SSH channel-open type for c.
func ChannelType(c protocol.Channel) (string, error) {
	switch c {
	case protocol.ChannelControl:
		return ChannelTypeControl, nil
	case protocol.ChannelSync:
		return ChannelTypeSync, nil
	case protocol.ChannelExec:
		return ChannelTypeExec, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownChannelType, c)
	}
}

// ParseChannelType maps an SSH channel-open type back to its logical channel.
func ParseChannelType(name string) (protocol.Channel, error) {
	switch name {
	case ChannelTypeControl:
		return protocol.ChannelControl, nil
	case ChannelTypeSync:
		return protocol.ChannelSync, nil
	case ChannelTypeExec:
		return protocol.ChannelExec, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannelType, name)
	}
}
