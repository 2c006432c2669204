package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

// ── newConfigBuilder ──────────────────────────────────────────────────────────

func TestNewConfigBuilder_InitialState(t *testing.T) {
	b := newConfigBuilder()
	require.NotNil(t, b)
	assert.NoError(t, b.err)
	assert.Empty(t, b.configs)
}

// ── merge ─────────────────────────────────────────────────────────────────────

func TestMerge_EmptyBuilder(t *testing.T) {
	cfg, err := newConfigBuilder().merge()
	require.NoError(t, err)
	assert.Equal(t, &StructuredConfig{}, cfg)
}

func TestMerge_PropagatesBuilderError(t *testing.T) {
	b := newConfigBuilder()
	b.err = assert.AnError

	cfg, err := b.build()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

// TestMerge_LaterLayersWin verifies that non-zero fields of later layers
// override earlier ones while zero fields leave them alone.
func TestMerge_LaterLayersWin(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{App: App{Hostname: "a", Version: "1"}, Sync: Sync{OpTimeout: time.Second}},
		&StructuredConfig{App: App{Hostname: "b"}},
		&StructuredConfig{Sync: Sync{OpTimeout: time.Minute}},
	)

	cfg, err := b.merge()
	require.NoError(t, err)
	assert.Equal(t, "b", cfg.App.Hostname)
	assert.Equal(t, "1", cfg.App.Version)
	assert.Equal(t, time.Minute, cfg.Sync.OpTimeout)
}

// ── GetStructuredConfig ───────────────────────────────────────────────────────

func TestGetStructuredConfig_DefaultsOnly(t *testing.T) {
	cfg, err := GetStructuredConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8022", cfg.Transport.ListenAddress)
	assert.Equal(t, "127.0.0.1:8022", cfg.Transport.ServerAddress)
	assert.Equal(t, 30*time.Second, cfg.Session.HeartbeatInterval)
	assert.Equal(t, 60*time.Second, cfg.Sync.OpTimeout)
	assert.Equal(t, "zstd", cfg.Sync.Compression)
	assert.NotEmpty(t, cfg.Storage.DB.DSN)
}

// TestGetStructuredConfig_LayerPrecedence sets the same field in every layer
// and checks flags > env > file > defaults.
func TestGetStructuredConfig_LayerPrecedence(t *testing.T) {
	path := writeConfigFile(t, "launcher.yaml", `
app:
  hostname: from-file
  version: "1.2.3"
sync:
  op_timeout: 45s
  compression: lz4
`)
	t.Setenv("HRL_CONFIG", path)
	t.Setenv("HRL_APP_HOSTNAME", "from-env")
	t.Setenv("HRL_SYNC_OP_TIMEOUT", "90s")

	fs := newFlagSet(t, "--op-timeout", "2m")

	cfg, err := GetStructuredConfig(fs)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.FilePath)
	assert.Equal(t, "1.2.3", cfg.App.Version)
	assert.Equal(t, "lz4", cfg.Sync.Compression)
	assert.Equal(t, "from-env", cfg.App.Hostname)
	assert.Equal(t, 2*time.Minute, cfg.Sync.OpTimeout)
}

func TestGetStructuredConfig_ConfigFlagBeatsEnv(t *testing.T) {
	envPath := writeConfigFile(t, "env.json", `{"app": {"version": "env"}}`)
	flagPath := writeConfigFile(t, "flag.json", `{"app": {"version": "flag"}}`)
	t.Setenv("HRL_CONFIG", envPath)

	cfg, err := GetStructuredConfig(newFlagSet(t, "--config", flagPath))
	require.NoError(t, err)
	assert.Equal(t, "flag", cfg.App.Version)
}

func TestGetStructuredConfig_MissingFile(t *testing.T) {
	_, err := GetStructuredConfig(newFlagSet(t, "-c", filepath.Join(t.TempDir(), "missing.json")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading a config file")
}

func TestGetStructuredConfig_InvalidResult(t *testing.T) {
	_, err := GetStructuredConfig(newFlagSet(t, "--compression", "gzip"))
	require.ErrorIs(t, err, ErrInvalidSyncConfigs)
}

// ── views ─────────────────────────────────────────────────────────────────────

func TestServerConfig_HTTPDisabled(t *testing.T) {
	cfg, err := GetServerConfig(newFlagSet(t, "--http-address", "off", "--block-size", "8192"))
	require.NoError(t, err)

	assert.Empty(t, cfg.HTTPAddress)
	assert.Equal(t, 8192, cfg.BlockSize)
}

func TestDaemonConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := GetDaemonConfig(newFlagSet(t, "--identity", "~/.ssh/id_ed25519", "--server", "fleet.example.com:2222"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".ssh", "id_ed25519"), cfg.SSH.IdentityPath)
	assert.Equal(t, "fleet.example.com:2222", cfg.SSH.ServerAddress)
	assert.Equal(t, 5*time.Second, cfg.ReconnectInterval)
	assert.Equal(t, 60*time.Second, cfg.ReconnectCeiling)
}

func TestAdminConfig(t *testing.T) {
	t.Setenv("HRL_ADAPTER_STATUS_URL", "http://fleet:9000")

	cfg, err := GetAdminConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://fleet:9000", cfg.StatusURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}
