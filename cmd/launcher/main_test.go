package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobert/halfremembered-launcher/internal/client"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/models"
)

// ── Fakes ──

type fakeCommander struct {
	resp   protocol.Message
	err    error
	got    []protocol.Command
	closed bool
}

func (f *fakeCommander) Do(_ context.Context, cmd protocol.Command) (protocol.Message, error) {
	f.got = append(f.got, cmd)
	return f.resp, f.err
}

type harness struct {
	cli       *cli
	commander *fakeCommander
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	cfg       *config.AdminConfig
}

func newHarness(resp protocol.Message, err error) *harness {
	h := &harness{
		commander: &fakeCommander{resp: resp, err: err},
		stdout:    &bytes.Buffer{},
		stderr:    &bytes.Buffer{},
	}
	h.cli = newCLI(models.NewAppBuildInfo("1.4.0", "2026-05-01", "abc123"), h.stdout, h.stderr)
	h.cli.dialAdmin = func(cfg *config.AdminConfig, _ *logger.Logger) (client.Commander, func() error, error) {
		h.cfg = cfg
		return h.commander, func() error {
			h.commander.closed = true
			return nil
		}, nil
	}
	return h
}

func (h *harness) run(args ...string) error {
	return h.cli.execute(args)
}

// ── Admin commands ──

func TestAdminCommands(t *testing.T) {
	now := time.Now()
	node := models.ClientInfo{SessionID: "s-1", Hostname: "node-1", State: "active", Platform: "linux/amd64", LastHeartbeat: now}

	tests := []struct {
		name    string
		args    []string
		resp    protocol.Message
		wantCmd protocol.Command
		wantOut []string
		wantErr error
	}{
		{
			name:    "list",
			args:    []string{"list"},
			resp:    protocol.ClientListResponse{Clients: []models.ClientInfo{node}},
			wantCmd: protocol.ListClientsCommand{},
			wantOut: []string{"node-1", "linux/amd64", "s-1"},
		},
		{
			name:    "list empty",
			args:    []string{"list"},
			resp:    protocol.ClientListResponse{},
			wantCmd: protocol.ListClientsCommand{},
			wantOut: []string{"no clients connected"},
		},
		{
			name:    "status",
			args:    []string{"status"},
			resp:    protocol.StatusResponse{Status: models.ServerStatus{Hostname: "hub", Version: "1.4.0", Uptime: time.Hour, Clients: []models.ClientInfo{node}}},
			wantCmd: protocol.StatusCommand{},
			wantOut: []string{"hub", "version 1.4.0", "up 1h0m0s, 1 client(s)", "node-1"},
		},
		{
			name:    "ping",
			args:    []string{"ping", "node-*"},
			resp:    protocol.PingResponse{Results: []models.PingOutcome{{Hostname: "node-1", RoundTrip: 3 * time.Millisecond}}},
			wantCmd: protocol.PingCommand{Target: "node-*"},
			wantOut: []string{"node-1", "ok", "3ms"},
		},
		{
			name:    "ping with failed target",
			args:    []string{"ping", "*"},
			resp:    protocol.PingResponse{Results: []models.PingOutcome{{Hostname: "node-2", Error: "timed out"}}},
			wantCmd: protocol.PingCommand{Target: "*"},
			wantOut: []string{"node-2", "timed out"},
			wantErr: ErrTargetsFailed,
		},
		{
			name: "exec passes flags through to the command",
			args: []string{"exec", "--dir", "/tmp", "node-1", "ls", "-la"},
			resp: protocol.ExecReportResponse{Report: models.ExecReport{Outcomes: []models.ExecOutcome{
				{Hostname: "node-1", Stdout: "total 0\n"},
			}}},
			wantCmd: protocol.ExecuteCommand{Target: "node-1", Command: "ls", Args: []string{"-la"}, WorkingDir: "/tmp"},
			wantOut: []string{"node-1", "total 0"},
		},
		{
			name: "exec with non-zero exit",
			args: []string{"exec", "node-1", "false"},
			resp: protocol.ExecReportResponse{Report: models.ExecReport{Outcomes: []models.ExecOutcome{
				{Hostname: "node-1", ExitCode: 1},
			}}},
			wantCmd: protocol.ExecuteCommand{Target: "node-1", Command: "false", Args: []string{}},
			wantErr: ErrTargetsFailed,
		},
		{
			name:    "sync on server",
			args:    []string{"sync", "--on-server", "/srv/model.bin", "-d", "models/model.bin", "-t", "gpu-*"},
			resp:    protocol.SyncReportResponse{Report: models.SyncReport{RequestID: "r-1", Outcomes: []models.SyncOutcome{{Hostname: "gpu-1", Success: true, BytesTransferred: 42}}}},
			wantCmd: protocol.SyncFileCommand{Path: "/srv/model.bin", Destination: "models/model.bin", Targets: "gpu-*"},
			wantOut: []string{"sync r-1", "gpu-1", "1 succeeded, 0 failed"},
		},
		{
			name:    "shutdown defaults to the server",
			args:    []string{"shutdown"},
			resp:    protocol.SuccessResponse{Message: "server shutting down"},
			wantCmd: protocol.ShutdownCommand{Scope: "server"},
			wantOut: []string{"ok:", "server shutting down"},
		},
		{
			name:    "shutdown clients",
			args:    []string{"shutdown", "--scope", "clients"},
			resp:    protocol.SuccessResponse{Message: "shutdown sent to 2 client(s)"},
			wantCmd: protocol.ShutdownCommand{Scope: "clients"},
		},
		{
			name:    "watch",
			args:    []string{"watch", "/srv/models", "-r", "--include", "*.bin", "--exclude", "*.tmp", "-d", "models"},
			resp:    protocol.SuccessResponse{Message: "watching /srv/models"},
			wantCmd: protocol.WatchDirectoryCommand{Path: "/srv/models", Recursive: true, Include: []string{"*.bin"}, Exclude: []string{"*.tmp"}, Destination: "models"},
			wantOut: []string{"watching /srv/models"},
		},
		{
			name:    "unwatch",
			args:    []string{"unwatch", "/srv/models"},
			resp:    protocol.SuccessResponse{Message: "removed"},
			wantCmd: protocol.UnwatchDirectoryCommand{Path: "/srv/models"},
		},
		{
			name:    "watches",
			args:    []string{"watches"},
			resp:    protocol.WatchListResponse{Watches: []models.Watch{{Path: "/srv/models", Recursive: true}}},
			wantCmd: protocol.ListWatchesCommand{},
			wantOut: []string{"/srv/models", "true"},
		},
		{
			name: "notify",
			args: []string{"notify", "/srv/models/a.bin", "/srv/models/notes.txt"},
			resp: protocol.ChangeReportResponse{
				Reports: []models.SyncReport{{RequestID: "r-7", Path: "/srv/models/a.bin", Destination: "a.bin", Outcomes: []models.SyncOutcome{
					{Hostname: "gpu-1", Success: true},
				}}},
				Unmatched: []string{"/srv/models/notes.txt"},
			},
			wantCmd: protocol.NotifyChangeCommand{Paths: []string{"/srv/models/a.bin", "/srv/models/notes.txt"}},
			wantOut: []string{"sync r-7", "gpu-1", "no watch for /srv/models/notes.txt"},
		},
		{
			name: "notify with failed target",
			args: []string{"notify", "/srv/models/a.bin"},
			resp: protocol.ChangeReportResponse{Reports: []models.SyncReport{{RequestID: "r-8", Outcomes: []models.SyncOutcome{
				{Hostname: "gpu-2", Error: "disk full"},
			}}}},
			wantCmd: protocol.NotifyChangeCommand{Paths: []string{"/srv/models/a.bin"}},
			wantOut: []string{"gpu-2", "disk full"},
			wantErr: ErrTargetsFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.resp, nil)

			err := h.run(tt.args...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			require.Len(t, h.commander.got, 1)
			assert.Equal(t, tt.wantCmd, h.commander.got[0])
			assert.True(t, h.commander.closed)
			for _, want := range tt.wantOut {
				assert.Contains(t, h.stdout.String(), want)
			}
		})
	}
}

func TestNotify_MakesRelativePathsAbsolute(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	h := newHarness(protocol.ChangeReportResponse{}, nil)

	require.NoError(t, h.run("notify", "models/a.bin"))

	require.Len(t, h.commander.got, 1)
	assert.Equal(t, protocol.NotifyChangeCommand{Paths: []string{filepath.Join(dir, "models", "a.bin")}}, h.commander.got[0])
}

func TestAdmin_VersionFromBuildInfo(t *testing.T) {
	h := newHarness(protocol.ClientListResponse{}, nil)
	require.NoError(t, h.run("list"))
	require.NotNil(t, h.cfg)
	assert.Equal(t, "1.4.0", h.cfg.Version)
}

func TestAdmin_RemoteErrorIsReturned(t *testing.T) {
	remote := &protocol.RemoteError{Reason: "no such watch"}
	h := newHarness(nil, remote)

	err := h.run("unwatch", "/nope")
	require.Error(t, err)

	var got *protocol.RemoteError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "no such watch", got.Reason)
}

func TestAdmin_UnexpectedResponseType(t *testing.T) {
	h := newHarness(protocol.SuccessResponse{Message: "?"}, nil)

	err := h.run("list")
	assert.ErrorIs(t, err, client.ErrUnexpectedResponse)
}

func TestAdmin_ArgumentsCheckedBeforeDialing(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "exec needs a command", args: []string{"exec", "node-1"}},
		{name: "ping needs a host", args: []string{"ping"}},
		{name: "sync needs a path", args: []string{"sync"}},
		{name: "list takes no args", args: []string{"list", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(nil, nil)
			assert.Error(t, h.run(tt.args...))
			assert.Nil(t, h.cfg)
			assert.Empty(t, h.commander.got)
		})
	}
}

// ── Sync ──

func TestSync_SendsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o600))

	h := newHarness(protocol.SyncReportResponse{}, nil)
	require.NoError(t, h.run("sync", path))

	require.Len(t, h.commander.got, 1)
	got, ok := h.commander.got[0].(protocol.SyncFileCommand)
	require.True(t, ok)
	assert.Equal(t, "weights.bin", got.Path)
	assert.Equal(t, "weights.bin", got.Destination)
	assert.True(t, got.Inline)
	assert.Equal(t, []byte("payload"), got.Data)
	assert.Contains(t, h.stdout.String(), "no matching clients")
}

func TestSync_SendsEmptyLocalFileInline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.conf")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	h := newHarness(protocol.SyncReportResponse{}, nil)
	require.NoError(t, h.run("sync", path))

	require.Len(t, h.commander.got, 1)
	got, ok := h.commander.got[0].(protocol.SyncFileCommand)
	require.True(t, ok)
	assert.True(t, got.Inline)
	assert.Empty(t, got.Data)
	assert.Equal(t, "app.conf", got.Destination)
}

func TestSync_MissingLocalFile(t *testing.T) {
	h := newHarness(nil, nil)

	err := h.run("sync", filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, h.commander.got)
}

// ── Root ──

func TestRoot_Version(t *testing.T) {
	h := newHarness(nil, nil)

	require.NoError(t, h.run("--version"))
	assert.Equal(t, "launcher 1.4.0 (built 2026-05-01, commit abc123)\n", h.stdout.String())
}

func TestClient_BadAddressArgument(t *testing.T) {
	h := newHarness(nil, nil)

	err := h.run("client", "no-port")
	assert.ErrorIs(t, err, config.ErrInvalidTransportConfigs)
}

func TestVersionPreference(t *testing.T) {
	tests := []struct {
		name       string
		build      string
		configured string
		want       string
	}{
		{name: "build version replaces the default", build: "1.4.0", configured: "dev", want: "1.4.0"},
		{name: "configured version wins", build: "1.4.0", configured: "2.0.0-rc1", want: "2.0.0-rc1"},
		{name: "no build version", build: "N/A", configured: "dev", want: "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI(models.NewAppBuildInfo(tt.build, "", ""), &bytes.Buffer{}, &bytes.Buffer{})
			assert.Equal(t, tt.want, c.version(tt.configured))
		})
	}
}

func TestPrintFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHint bool
	}{
		{name: "unreachable server gets a hint", err: errors.Join(client.ErrServerUnreachable, errors.New("dial tcp: refused")), wantHint: true},
		{name: "remote error has none", err: &protocol.RemoteError{Reason: "bad selector"}},
		{name: "failed targets have none", err: ErrTargetsFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(nil, nil)
			h.cli.printFailure(tt.err)

			out := h.stderr.String()
			assert.Contains(t, out, "error:")
			assert.Equal(t, tt.wantHint, bytes.Contains([]byte(out), []byte("hint:")))
		})
	}
}
