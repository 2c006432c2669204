package app

import (
	"github.com/tobert/halfremembered-launcher/internal/adapter"
	"github.com/tobert/halfremembered-launcher/internal/client"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/logger"
)

// NewAdmin builds the one-shot command client. The returned closer releases
// the ssh-agent connection.
func NewAdmin(cfg *config.AdminConfig, log *logger.Logger) (*client.Admin, func() error, error) {
	d, closeAuth, err := dialer(cfg.SSH, log)
	if err != nil {
		return nil, nil, err
	}

	return client.NewAdmin(client.Config{
		ServerAddress: cfg.SSH.ServerAddress,
		Hostname:      cfg.Hostname,
		Version:       cfg.Version,
		MaxFrameSize:  cfg.SSH.MaxFrameSize,
	}, d, log), closeAuth, nil
}

// NewStatusAdapter builds the status API client used by the monitor.
func NewStatusAdapter(cfg *config.AdminConfig, log *logger.Logger) (adapter.StatusAdapter, error) {
	return adapter.NewHTTPStatusAdapter(*cfg, log)
}
