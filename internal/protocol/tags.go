package protocol

import "fmt"

// Tag is the one-byte type code that precedes every payload.
type Tag uint8

// Control channel, daemon traffic.
const (
	TagRegister  Tag = 0x01
	TagHeartbeat Tag = 0x02
	TagPong      Tag = 0x03
	TagWelcome   Tag = 0x10
	TagPing      Tag = 0x11
	TagShutdown  Tag = 0x12
)

// Sync channel.
const (
	TagSyncStart     Tag = 0x20
	TagSyncSignature Tag = 0x21
	TagSyncData      Tag = 0x22
	TagSyncComplete  Tag = 0x23
)

// Exec channel.
const (
	TagExecute      Tag = 0x28
	TagExecComplete Tag = 0x29
)

// Control channel, administrative commands and their responses.
const (
	TagStatusCommand       Tag = 0x30
	TagPingCommand         Tag = 0x31
	TagListClientsCommand  Tag = 0x32
	TagShutdownCommand     Tag = 0x33
	TagSyncFileCommand     Tag = 0x34
	TagExecuteCommand      Tag = 0x35
	TagWatchCommand        Tag = 0x36
	TagUnwatchCommand      Tag = 0x37
	TagListWatchesCommand  Tag = 0x38
	TagNotifyChangeCommand Tag = 0x39

	TagSuccessResponse      Tag = 0x40
	TagStatusResponse       Tag = 0x41
	TagClientListResponse   Tag = 0x42
	TagPingResponse         Tag = 0x43
	TagSyncReportResponse   Tag = 0x44
	TagExecReportResponse   Tag = 0x45
	TagWatchListResponse    Tag = 0x46
	TagChangeReportResponse Tag = 0x47
)

// TagError is valid on every channel.
const TagError Tag = 0xFF

var tagNames = map[Tag]string{
	TagRegister:             "Register",
	TagHeartbeat:            "Heartbeat",
	TagPong:                 "Pong",
	TagWelcome:              "Welcome",
	TagPing:                 "Ping",
	TagShutdown:             "Shutdown",
	TagSyncStart:            "SyncStart",
	TagSyncSignature:        "SyncSignature",
	TagSyncData:             "SyncData",
	TagSyncComplete:         "SyncComplete",
	TagExecute:              "Execute",
	TagExecComplete:         "ExecComplete",
	TagStatusCommand:        "StatusCommand",
	TagPingCommand:          "PingCommand",
	TagListClientsCommand:   "ListClientsCommand",
	TagShutdownCommand:      "ShutdownCommand",
	TagSyncFileCommand:      "SyncFileCommand",
	TagExecuteCommand:       "ExecuteCommand",
	TagWatchCommand:         "WatchDirectoryCommand",
	TagUnwatchCommand:       "UnwatchDirectoryCommand",
	TagListWatchesCommand:   "ListWatchesCommand",
	TagNotifyChangeCommand:  "NotifyChangeCommand",
	TagSuccessResponse:      "SuccessResponse",
	TagStatusResponse:       "StatusResponse",
	TagClientListResponse:   "ClientListResponse",
	TagPingResponse:         "PingResponse",
	TagSyncReportResponse:   "SyncReportResponse",
	TagExecReportResponse:   "ExecReportResponse",
	TagWatchListResponse:    "WatchListResponse",
	TagChangeReportResponse: "ChangeReportResponse",
	TagError:                "Error",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(0x%02x)", uint8(t))
}

// Channel returns the logical channel that carries t. Error returns zero
// because it is carried by all of them.
func (t Tag) Channel() Channel {
	if _, known := tagNames[t]; !known || t == TagError {
		return 0
	}

	switch {
	case t >= TagRegister && t <= TagShutdown:
		return ChannelControl
	case t >= TagSyncStart && t <= TagSyncComplete:
		return ChannelSync
	case t >= TagExecute && t <= TagExecComplete:
		return ChannelExec
	case t >= TagStatusCommand && t <= TagChangeReportResponse:
		return ChannelControl
	default:
		return 0
	}
}
