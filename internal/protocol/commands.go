package protocol

import "github.com/tobert/halfremembered-launcher/models"

// Command is an administrative request sent over a one-shot control
// connection.
type Command interface {
	Message
	isCommand()
}

type StatusCommand struct{}

// PingCommand pings every session whose hostname matches Target.
type PingCommand struct {
	Target string `cbor:"target"`
}

type ListClientsCommand struct{}

// ShutdownCommand stops the server ("server") or sends Shutdown to the
// sessions selected by Scope ("clients", or a hostname glob).
type ShutdownCommand struct {
	Scope string `cbor:"scope,omitempty"`
}

// SyncFileCommand pushes a file to the selected targets. When Inline is set
// the content is Data, possibly empty, and Path only labels the report;
// otherwise the server reads Path itself.
type SyncFileCommand struct {
	Path        string `cbor:"path"`
	Inline      bool   `cbor:"inline"`
	Data        []byte `cbor:"data"`
	Destination string `cbor:"destination"`
	Targets     string `cbor:"targets,omitempty"`
}

// ExecuteCommand runs a command on the sessions selected by Target.
type ExecuteCommand struct {
	Target     string            `cbor:"target"`
	Command    string            `cbor:"command"`
	Args       []string          `cbor:"args,omitempty"`
	WorkingDir string            `cbor:"working_dir,omitempty"`
	Env        map[string]string `cbor:"env,omitempty"`
}

// WatchDirectoryCommand stores a watch configuration.
type WatchDirectoryCommand struct {
	Path        string   `cbor:"path"`
	Recursive   bool     `cbor:"recursive,omitempty"`
	Include     []string `cbor:"include,omitempty"`
	Exclude     []string `cbor:"exclude,omitempty"`
	Destination string   `cbor:"destination,omitempty"`
}

type UnwatchDirectoryCommand struct {
	Path string `cbor:"path"`
}

type ListWatchesCommand struct{}

// NotifyChangeCommand reports files that changed on the server host. Each
// absolute path is matched against the stored watches and synced to every
// session under the watch that claims it.
type NotifyChangeCommand struct {
	Paths []string `cbor:"paths"`
}

func (StatusCommand) Tag() Tag           { return TagStatusCommand }
func (PingCommand) Tag() Tag             { return TagPingCommand }
func (ListClientsCommand) Tag() Tag      { return TagListClientsCommand }
func (ShutdownCommand) Tag() Tag         { return TagShutdownCommand }
func (SyncFileCommand) Tag() Tag         { return TagSyncFileCommand }
func (ExecuteCommand) Tag() Tag          { return TagExecuteCommand }
func (WatchDirectoryCommand) Tag() Tag   { return TagWatchCommand }
func (UnwatchDirectoryCommand) Tag() Tag { return TagUnwatchCommand }
func (ListWatchesCommand) Tag() Tag      { return TagListWatchesCommand }
func (NotifyChangeCommand) Tag() Tag     { return TagNotifyChangeCommand }

func (StatusCommand) isMessage()           {}
func (PingCommand) isMessage()             {}
func (ListClientsCommand) isMessage()      {}
func (ShutdownCommand) isMessage()         {}
func (SyncFileCommand) isMessage()         {}
func (ExecuteCommand) isMessage()          {}
func (WatchDirectoryCommand) isMessage()   {}
func (UnwatchDirectoryCommand) isMessage() {}
func (ListWatchesCommand) isMessage()      {}
func (NotifyChangeCommand) isMessage()     {}

func (StatusCommand) isCommand()           {}
func (PingCommand) isCommand()             {}
func (ListClientsCommand) isCommand()      {}
func (ShutdownCommand) isCommand()         {}
func (SyncFileCommand) isCommand()         {}
func (ExecuteCommand) isCommand()          {}
func (WatchDirectoryCommand) isCommand()   {}
func (UnwatchDirectoryCommand) isCommand() {}
func (ListWatchesCommand) isCommand()      {}
func (NotifyChangeCommand) isCommand()     {}

// ── responses ────────────────────────────────────────────────────────────────

type SuccessResponse struct {
	Message string `cbor:"message"`
}

type StatusResponse struct {
	Status models.ServerStatus `cbor:"status"`
}

type ClientListResponse struct {
	Clients []models.ClientInfo `cbor:"clients"`
}

type PingResponse struct {
	Results []models.PingOutcome `cbor:"results"`
}

type SyncReportResponse struct {
	Report models.SyncReport `cbor:"report"`
}

type ExecReportResponse struct {
	Report models.ExecReport `cbor:"report"`
}

type WatchListResponse struct {
	Watches []models.Watch `cbor:"watches"`
}

// ChangeReportResponse answers NotifyChangeCommand with one report per synced
// file. Unmatched lists the paths no watch claimed.
type ChangeReportResponse struct {
	Reports   []models.SyncReport `cbor:"reports"`
	Unmatched []string            `cbor:"unmatched,omitempty"`
}

func (SuccessResponse) Tag() Tag      { return TagSuccessResponse }
func (StatusResponse) Tag() Tag       { return TagStatusResponse }
func (ClientListResponse) Tag() Tag   { return TagClientListResponse }
func (PingResponse) Tag() Tag         { return TagPingResponse }
func (SyncReportResponse) Tag() Tag   { return TagSyncReportResponse }
func (ExecReportResponse) Tag() Tag   { return TagExecReportResponse }
func (WatchListResponse) Tag() Tag    { return TagWatchListResponse }
func (ChangeReportResponse) Tag() Tag { return TagChangeReportResponse }

func (SuccessResponse) isMessage()      {}
func (StatusResponse) isMessage()       {}
func (ClientListResponse) isMessage()   {}
func (PingResponse) isMessage()         {}
func (SyncReportResponse) isMessage()   {}
func (ExecReportResponse) isMessage()   {}
func (WatchListResponse) isMessage()    {}
func (ChangeReportResponse) isMessage() {}
