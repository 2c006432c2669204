package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/tobert/halfremembered-launcher/internal/client"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/delta"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/models"
)

// writeIdentity creates a client key pair, authorizes it and returns the
// private key path and the authorized_keys path.
func writeIdentity(t *testing.T, dir string) (identity, authorized string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	block, err := ssh.MarshalPrivateKey(priv, "test identity")
	require.NoError(t, err)
	identity = filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(identity, pem.EncodeToMemory(block), 0o600))

	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	authorized = filepath.Join(dir, "authorized_keys")
	require.NoError(t, os.WriteFile(authorized, ssh.MarshalAuthorizedKey(sshPub), 0o600))

	return identity, authorized
}

func TestLauncherEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.bin"), []byte("server-side copy\n"), 0o644))
	identity, authorized := writeIdentity(t, dir)
	log := logger.Nop()
	ctx := context.Background()

	srv, err := NewServer(ctx, &config.ServerConfig{
		Hostname:           "hub",
		Version:            "1.0.0",
		ListenAddress:      "127.0.0.1:0",
		HostKeyPath:        filepath.Join(dir, "host_ed25519"),
		AuthorizedKeysPath: authorized,
		HeartbeatInterval:  30 * time.Second,
		DrainTimeout:       2 * time.Second,
		OpTimeout:          10 * time.Second,
		Compression:        delta.CompressionZstd,
		DSN:                filepath.Join(dir, "launcher.db"),
	}, models.NewAppBuildInfo("1.0.0", "", ""), log)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "host_ed25519"), "host key is generated on first start")

	served := make(chan error, 1)
	go func() { served <- srv.Run(ctx) }()

	sshCfg := config.SSHClient{
		ServerAddress: srv.Addr().String(),
		User:          "tester",
		IdentityPath:  identity,
	}

	workDir := filepath.Join(dir, "node-1")
	require.NoError(t, os.MkdirAll(workDir, 0o755))
	d, closeDaemonAuth, err := NewDaemon(&config.DaemonConfig{
		SSH:               sshCfg,
		Hostname:          "node-1",
		Version:           "1.0.0",
		WorkingDir:        workDir,
		HeartbeatInterval: 30 * time.Second,
		WelcomeTimeout:    5 * time.Second,
		ReconnectInterval: 50 * time.Millisecond,
		ReconnectCeiling:  100 * time.Millisecond,
	}, log)
	require.NoError(t, err)
	defer closeDaemonAuth()

	daemonDone := make(chan error, 1)
	go func() { daemonDone <- d.Run(ctx) }()

	admin, closeAdminAuth, err := NewAdmin(&config.AdminConfig{SSH: sshCfg, Hostname: "laptop", Version: "1.0.0"}, log)
	require.NoError(t, err)
	defer closeAdminAuth()

	// ── the daemon shows up ──────────────────────────────────────────────────
	require.Eventually(t, func() bool {
		resp, err := client.Call[protocol.ClientListResponse](ctx, admin, protocol.ListClientsCommand{})
		return err == nil && len(resp.Clients) == 1 && resp.Clients[0].Hostname == "node-1"
	}, 10*time.Second, 50*time.Millisecond)

	status, err := client.Call[protocol.StatusResponse](ctx, admin, protocol.StatusCommand{})
	require.NoError(t, err)
	assert.Equal(t, "hub", status.Status.Hostname)

	// ── sync pushes a file ───────────────────────────────────────────────────
	payload := []byte("weights v1\n")
	report, err := client.Call[protocol.SyncReportResponse](ctx, admin, protocol.SyncFileCommand{
		Path:        "model.bin",
		Data:        payload,
		Destination: "models/model.bin",
		Targets:     "node-1",
	})
	require.NoError(t, err)
	require.Len(t, report.Report.Outcomes, 1)
	assert.True(t, report.Report.Outcomes[0].Success, report.Report.Outcomes[0].Error)

	got, err := os.ReadFile(filepath.Join(workDir, "models", "model.bin"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// ── an empty inline file truncates instead of reading the server's copy ─
	report, err = client.Call[protocol.SyncReportResponse](ctx, admin, protocol.SyncFileCommand{
		Path:        "model.bin",
		Inline:      true,
		Data:        []byte{},
		Destination: "models/model.bin",
		Targets:     "node-1",
	})
	require.NoError(t, err)
	require.Len(t, report.Report.Outcomes, 1)
	assert.True(t, report.Report.Outcomes[0].Success, report.Report.Outcomes[0].Error)
	assert.Zero(t, report.Report.Size)

	got, err = os.ReadFile(filepath.Join(workDir, "models", "model.bin"))
	require.NoError(t, err)
	assert.Empty(t, got)

	// ── watches persist in the store ─────────────────────────────────────────
	_, err = client.Call[protocol.SuccessResponse](ctx, admin, protocol.WatchDirectoryCommand{
		Path: "/srv/models", Recursive: true, Include: []string{"*.bin"},
	})
	require.NoError(t, err)

	watches, err := client.Call[protocol.WatchListResponse](ctx, admin, protocol.ListWatchesCommand{})
	require.NoError(t, err)
	require.Len(t, watches.Watches, 1)
	assert.Equal(t, []string{"*.bin"}, watches.Watches[0].Include)

	// ── a change notification syncs through the stored watch ─────────────────
	published := filepath.Join(dir, "published")
	require.NoError(t, os.MkdirAll(filepath.Join(published, "v2"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(published, "v2", "weights.bin"), []byte("weights v2\n"), 0o644))
	_, err = client.Call[protocol.SuccessResponse](ctx, admin, protocol.WatchDirectoryCommand{
		Path: published, Recursive: true, Include: []string{"*.bin"}, Destination: "models",
	})
	require.NoError(t, err)

	changes, err := client.Call[protocol.ChangeReportResponse](ctx, admin, protocol.NotifyChangeCommand{Paths: []string{
		filepath.Join(published, "v2", "weights.bin"),
		filepath.Join(published, "README.md"),
	}})
	require.NoError(t, err)
	require.Len(t, changes.Reports, 1)
	require.Len(t, changes.Reports[0].Outcomes, 1)
	assert.True(t, changes.Reports[0].Outcomes[0].Success, changes.Reports[0].Outcomes[0].Error)
	assert.Equal(t, []string{filepath.Join(published, "README.md")}, changes.Unmatched)

	got, err = os.ReadFile(filepath.Join(workDir, "models", "v2", "weights.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("weights v2\n"), got)

	// ── invalid commands come back as server errors ──────────────────────────
	_, err = admin.Do(ctx, protocol.ExecuteCommand{Target: "node-1"})
	var remote *protocol.RemoteError
	assert.ErrorAs(t, err, &remote)
	assert.Empty(t, Hint(err))

	// ── shutdown stops the server and the daemon ─────────────────────────────
	_, err = client.Call[protocol.SuccessResponse](ctx, admin, protocol.ShutdownCommand{Scope: "server"})
	require.NoError(t, err)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	select {
	case err := <-daemonDone:
		assert.NoError(t, err, "daemon does not reconnect after a server shutdown")
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestNewServer_BadDSNDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := NewServer(context.Background(), &config.ServerConfig{
		Hostname: "hub",
		Version:  "1.0.0",
		DSN:      filepath.Join(blocker, "sub", "launcher.db"),
	}, models.NewAppBuildInfo("1.0.0", "", ""), logger.Nop())
	assert.Error(t, err)
}

func TestNewDaemon_NoCredentials(t *testing.T) {
	_, _, err := NewDaemon(&config.DaemonConfig{SSH: config.SSHClient{ServerAddress: "127.0.0.1:1"}}, logger.Nop())
	assert.Equal(t, MsgNoCredentials, Hint(err))
}
