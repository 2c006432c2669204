package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// SSHClient holds the settings every initiator uses to dial the server.
type SSHClient struct {
	ServerAddress  string
	User           string
	IdentityPath   string
	AgentSocket    string
	KnownHostsPath string
	MaxFrameSize   int
}

// DaemonConfig is the initiator daemon's view of the launcher configuration.
type DaemonConfig struct {
	SSH               SSHClient
	Hostname          string
	Version           string
	LogLevel          string
	WorkingDir        string
	HeartbeatInterval time.Duration
	WelcomeTimeout    time.Duration
	ReconnectInterval time.Duration
	ReconnectCeiling  time.Duration
}

// GetDaemonConfig loads the merged configuration and maps the fields the
// daemon needs.
func GetDaemonConfig(fs *pflag.FlagSet) (*DaemonConfig, error) {
	cfg, err := GetStructuredConfig(fs)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}
	return cfg.DaemonConfig(), nil
}

// DaemonConfig derives the daemon view from a validated config.
func (cfg *StructuredConfig) DaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		SSH:               cfg.sshClient(),
		Hostname:          cfg.App.Hostname,
		Version:           cfg.App.Version,
		LogLevel:          cfg.App.LogLevel,
		WorkingDir:        expandHome(cfg.App.WorkingDir),
		HeartbeatInterval: cfg.Session.HeartbeatInterval,
		WelcomeTimeout:    cfg.Session.WelcomeTimeout,
		ReconnectInterval: cfg.Session.ReconnectInterval,
		ReconnectCeiling:  cfg.Session.ReconnectCeiling,
	}
}

func (cfg *StructuredConfig) sshClient() SSHClient {
	return SSHClient{
		ServerAddress:  cfg.Transport.ServerAddress,
		User:           cfg.Transport.User,
		IdentityPath:   expandHome(cfg.Transport.IdentityPath),
		AgentSocket:    expandHome(cfg.Transport.AgentSocket),
		KnownHostsPath: expandHome(cfg.Transport.KnownHostsPath),
		MaxFrameSize:   cfg.Transport.MaxFrameSize,
	}
}
