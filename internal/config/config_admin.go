package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// AdminConfig is the view used by one-shot admin commands and the monitor.
type AdminConfig struct {
	SSH            SSHClient
	Hostname       string
	Version        string
	LogLevel       string
	StatusURL      string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	// OpTimeout bounds a whole admin round trip.
	OpTimeout time.Duration
}

// GetAdminConfig loads the merged configuration and maps the fields the
// admin commands need.
func GetAdminConfig(fs *pflag.FlagSet) (*AdminConfig, error) {
	cfg, err := GetStructuredConfig(fs)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}
	return cfg.AdminConfig(), nil
}

// AdminConfig derives the admin view from a validated config.
func (cfg *StructuredConfig) AdminConfig() *AdminConfig {
	return &AdminConfig{
		SSH:            cfg.sshClient(),
		Hostname:       cfg.App.Hostname,
		Version:        cfg.App.Version,
		LogLevel:       cfg.App.LogLevel,
		StatusURL:      cfg.Adapter.StatusURL,
		RequestTimeout: cfg.Adapter.RequestTimeout,
		PollInterval:   cfg.Adapter.PollInterval,
		OpTimeout:      cfg.Sync.OpTimeout,
	}
}
