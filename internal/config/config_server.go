package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/tobert/halfremembered-launcher/internal/delta"
)

// ServerConfig is the acceptor's view of the launcher configuration.
type ServerConfig struct {
	Hostname           string
	Version            string
	LogLevel           string
	ListenAddress      string
	HostKeyPath        string
	AuthorizedKeysPath string
	MaxFrameSize       int
	HeartbeatInterval  time.Duration
	DrainTimeout       time.Duration
	OpTimeout          time.Duration
	BlockSize          int
	Compression        delta.Compression
	DSN                string
	// HTTPAddress is empty when the status API is disabled.
	HTTPAddress    string
	RequestTimeout time.Duration
}

// GetServerConfig loads the merged configuration and maps the fields the
// acceptor needs.
func GetServerConfig(fs *pflag.FlagSet) (*ServerConfig, error) {
	cfg, err := GetStructuredConfig(fs)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}
	return cfg.ServerConfig(), nil
}

// ServerConfig derives the acceptor view from a validated config.
func (cfg *StructuredConfig) ServerConfig() *ServerConfig {
	compression, _ := delta.ParseCompression(cfg.Sync.Compression)

	httpAddress := cfg.Server.HTTPAddress
	if httpAddress == HTTPDisabled {
		httpAddress = ""
	}

	return &ServerConfig{
		Hostname:           cfg.App.Hostname,
		Version:            cfg.App.Version,
		LogLevel:           cfg.App.LogLevel,
		ListenAddress:      cfg.Transport.ListenAddress,
		HostKeyPath:        expandHome(cfg.Transport.HostKeyPath),
		AuthorizedKeysPath: expandHome(cfg.Transport.AuthorizedKeysPath),
		MaxFrameSize:       cfg.Transport.MaxFrameSize,
		HeartbeatInterval:  cfg.Session.HeartbeatInterval,
		DrainTimeout:       cfg.Session.DrainTimeout,
		OpTimeout:          cfg.Sync.OpTimeout,
		BlockSize:          cfg.Sync.BlockSize,
		Compression:        compression,
		DSN:                expandHome(cfg.Storage.DB.DSN),
		HTTPAddress:        httpAddress,
		RequestTimeout:     cfg.Server.RequestTimeout,
	}
}
