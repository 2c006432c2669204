package app

import (
	"fmt"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/crypto"
	"github.com/tobert/halfremembered-launcher/internal/daemon"
	"github.com/tobert/halfremembered-launcher/internal/executor"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/transport"
)

// NewDaemon builds the reconnecting initiator. The returned closer releases
// the ssh-agent connection and must be called after Run returns.
func NewDaemon(cfg *config.DaemonConfig, log *logger.Logger) (*daemon.Daemon, func() error, error) {
	sshDialer, closeAuth, err := dialer(cfg.SSH, log)
	if err != nil {
		return nil, nil, err
	}

	d := daemon.New(daemon.Config{
		ServerAddress:     cfg.SSH.ServerAddress,
		Hostname:          cfg.Hostname,
		Version:           cfg.Version,
		WorkingDir:        cfg.WorkingDir,
		HeartbeatInterval: cfg.HeartbeatInterval,
		WelcomeTimeout:    cfg.WelcomeTimeout,
		ReconnectInterval: cfg.ReconnectInterval,
		ReconnectCeiling:  cfg.ReconnectCeiling,
		MaxFrameSize:      cfg.SSH.MaxFrameSize,
	}, sshDialer, executor.NewProcessExecutor(cfg.WorkingDir, executor.DefaultOutputLimit, log), clock.Real(), log)

	return d, closeAuth, nil
}

// dialer resolves the client credentials and host key policy for cfg.
func dialer(cfg config.SSHClient, log *logger.Logger) (transport.Dialer, func() error, error) {
	keys := crypto.NewKeyChain(log)

	auth, closeAuth, err := keys.ClientAuth(cfg.AgentSocket, cfg.IdentityPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading client credentials: %w", err)
	}

	hostKeys, err := keys.HostKeyCallback(cfg.KnownHostsPath)
	if err != nil {
		closeAuth()
		return nil, nil, fmt.Errorf("loading known hosts: %w", err)
	}

	return transport.NewDialer(transport.ClientOptions{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
	}, log), closeAuth, nil
}
