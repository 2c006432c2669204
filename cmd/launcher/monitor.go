package main

import (
	"github.com/spf13/cobra"
	"github.com/tobert/halfremembered-launcher/internal/app"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/tui"
)

func (c *cli) monitorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Watch the fleet in a terminal UI backed by the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.GetAdminConfig(cmd.Flags())
			if err != nil {
				return err
			}

			log := logger.NewConsoleLogger("monitor", c.stderr)
			statusAdapter, err := app.NewStatusAdapter(cfg, log)
			if err != nil {
				return err
			}

			return tui.New(statusAdapter, cfg.PollInterval, log).Run(cmd.Context())
		},
	}
}
