package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tobert/halfremembered-launcher/internal/app"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/logger"
)

func (c *cli) serverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the SSH acceptor, the registry and the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.GetServerConfig(cmd.Flags())
			if err != nil {
				return err
			}
			cfg.Version = c.version(cfg.Version)

			log := logger.NewLogger("server")
			logger.SetLevel(cfg.LogLevel)
			log.Debug().Any("config", cfg).Msg("received configs")

			srv, err := app.NewServer(cmd.Context(), cfg, c.info, log)
			if err != nil {
				return fmt.Errorf("starting server: %w", err)
			}
			log.Info().
				Str("listen", srv.Addr().String()).
				Str("http", valueOrOff(cfg.HTTPAddress)).
				Str("version", cfg.Version).
				Msg("launcher server started")

			return srv.Run(cmd.Context())
		},
	}
}

func (c *cli) clientCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "client [address]",
		Short: "Run the client daemon, reconnecting until shut down",
		Long: `Run the client daemon. It dials the server, registers this machine and
then receives syncs and commands until the server sends Shutdown or the
process is interrupted. Lost connections are retried with backoff.

The address argument overrides --server.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.GetDaemonConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := new(config.NetAddress).Set(args[0]); err != nil {
					return fmt.Errorf("%w: address %q: %w", config.ErrInvalidTransportConfigs, args[0], err)
				}
				cfg.SSH.ServerAddress = args[0]
			}
			cfg.Version = c.version(cfg.Version)

			log := logger.NewLogger("client")
			logger.SetLevel(cfg.LogLevel)
			log.Debug().Any("config", cfg).Msg("received configs")

			d, closeAuth, err := app.NewDaemon(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeAuth(); err != nil {
					log.Warn().Err(err).Msg("closing ssh-agent connection")
				}
			}()

			log.Info().Str("server", cfg.SSH.ServerAddress).Str("hostname", cfg.Hostname).Msg("launcher client started")
			return d.Run(cmd.Context())
		},
	}
}

func valueOrOff(v string) string {
	if v == "" {
		return config.HTTPDisabled
	}
	return v
}
