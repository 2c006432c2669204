package protocol

import (
	"time"

	"github.com/tobert/halfremembered-launcher/internal/delta"
)

// Message is the closed set of values that can be framed. Only types in this
// package implement it.
type Message interface {
	Tag() Tag
	isMessage()
}

// ── control channel: daemon session ─────────────────────────────────────────

// Register is the first frame an initiator sends on its control channel.
type Register struct {
	Hostname     string   `cbor:"hostname"`
	Platform     string   `cbor:"platform,omitempty"`
	Version      string   `cbor:"version,omitempty"`
	Capabilities []string `cbor:"capabilities,omitempty"`
	Purpose      Purpose  `cbor:"purpose"`
}

// Heartbeat is sent by the initiator every heartbeat interval. The acceptor
// echoes the first one of a session to confirm liveness.
type Heartbeat struct {
	Timestamp int64  `cbor:"ts"` // unix milliseconds
	Sequence  uint32 `cbor:"seq"`
}

// Pong answers a Ping.
type Pong struct {
	RequestID        string        `cbor:"request_id"`
	Uptime           time.Duration `cbor:"uptime"`
	PendingTransfers uint32        `cbor:"pending_transfers"`
}

// Welcome acknowledges a Daemon registration.
type Welcome struct {
	SessionID         string        `cbor:"session_id"`
	ServerVersion     string        `cbor:"server_version,omitempty"`
	HeartbeatInterval time.Duration `cbor:"heartbeat_interval,omitempty"`
}

// Ping asks the daemon to prove it is alive.
type Ping struct {
	RequestID string `cbor:"request_id"`
}

// Shutdown asks the receiver to finish in-flight work and close.
type Shutdown struct {
	Reason string `cbor:"reason,omitempty"`
}

// Error reports a failure for a request, or for the channel when RequestID
// is empty. It is valid on every channel.
type Error struct {
	RequestID string `cbor:"request_id,omitempty"`
	Reason    string `cbor:"reason"`
}

// ── sync channel ─────────────────────────────────────────────────────────────

// SyncStart opens a sync transaction. The receiver answers with the
// signature of its current copy of RelativePath.
type SyncStart struct {
	RequestID    string `cbor:"request_id"`
	RelativePath string `cbor:"relative_path"`
	Size         int64  `cbor:"size"`
	Checksum     string `cbor:"checksum"`
	ModTime      int64  `cbor:"mtime,omitempty"` // unix seconds
	Mode         uint32 `cbor:"mode,omitempty"`
	BlockSize    uint32 `cbor:"block_size"`
}

// SyncSignature carries the receiver's block signature. An absent file is
// an empty signature.
type SyncSignature struct {
	RequestID string          `cbor:"request_id"`
	Signature delta.Signature `cbor:"signature"`
}

// SyncData carries one chunk of the encoded, possibly compressed, delta.
// The last chunk has Final set.
type SyncData struct {
	RequestID   string            `cbor:"request_id"`
	Chunk       []byte            `cbor:"chunk"`
	Compression delta.Compression `cbor:"compression,omitempty"`
	RawSize     int64             `cbor:"raw_size"`
	Final       bool              `cbor:"final,omitempty"`
}

// SyncComplete reports a verified write.
type SyncComplete struct {
	RequestID        string `cbor:"request_id"`
	Path             string `cbor:"path"`
	BytesTransferred int64  `cbor:"bytes_transferred"`
	Checksum         string `cbor:"checksum"`
}

// ── exec channel ─────────────────────────────────────────────────────────────

// Execute asks the daemon to run a command.
type Execute struct {
	RequestID  string            `cbor:"request_id"`
	Command    string            `cbor:"command"`
	Args       []string          `cbor:"args,omitempty"`
	WorkingDir string            `cbor:"working_dir,omitempty"`
	Env        map[string]string `cbor:"env,omitempty"`
}

// ExecComplete reports a finished command.
type ExecComplete struct {
	RequestID string `cbor:"request_id"`
	ExitCode  int    `cbor:"exit_code"`
	Stdout    string `cbor:"stdout,omitempty"`
	Stderr    string `cbor:"stderr,omitempty"`
}

func (Register) Tag() Tag      { return TagRegister }
func (Heartbeat) Tag() Tag     { return TagHeartbeat }
func (Pong) Tag() Tag          { return TagPong }
func (Welcome) Tag() Tag       { return TagWelcome }
func (Ping) Tag() Tag          { return TagPing }
func (Shutdown) Tag() Tag      { return TagShutdown }
func (Error) Tag() Tag         { return TagError }
func (SyncStart) Tag() Tag     { return TagSyncStart }
func (SyncSignature) Tag() Tag { return TagSyncSignature }
func (SyncData) Tag() Tag      { return TagSyncData }
func (SyncComplete) Tag() Tag  { return TagSyncComplete }
func (Execute) Tag() Tag       { return TagExecute }
func (ExecComplete) Tag() Tag  { return TagExecComplete }

func (Register) isMessage()      {}
func (Heartbeat) isMessage()     {}
func (Pong) isMessage()          {}
func (Welcome) isMessage()       {}
func (Ping) isMessage()          {}
func (Shutdown) isMessage()      {}
func (Error) isMessage()         {}
func (SyncStart) isMessage()     {}
func (SyncSignature) isMessage() {}
func (SyncData) isMessage()      {}
func (SyncComplete) isMessage()  {}
func (Execute) isMessage()       {}
func (ExecComplete) isMessage()  {}
