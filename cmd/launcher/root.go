package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tobert/halfremembered-launcher/internal/app"
	"github.com/tobert/halfremembered-launcher/internal/client"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/models"
)

// dialAdminFunc builds the client admin commands send through.
type dialAdminFunc func(cfg *config.AdminConfig, log *logger.Logger) (client.Commander, func() error, error)

type cli struct {
	info      models.AppBuildInfo
	stdout    io.Writer
	stderr    io.Writer
	dialAdmin dialAdminFunc
}

func newCLI(info models.AppBuildInfo, stdout, stderr io.Writer) *cli {
	return &cli{
		info:   info,
		stdout: stdout,
		stderr: stderr,
		dialAdmin: func(cfg *config.AdminConfig, log *logger.Logger) (client.Commander, func() error, error) {
			return app.NewAdmin(cfg, log)
		},
	}
}

func (c *cli) execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := c.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "launcher",
		Short: "Push files and commands to a fleet of machines over SSH",
		Long: `launcher keeps persistent SSH sessions from client daemons to one server
and uses them to sync files, run commands and report fleet status.

Run "launcher server" on the hub, "launcher client" on every machine, and
the admin commands (list, status, ping, exec, sync, ...) from anywhere that
can reach the server.`,
		Version:       c.info.BuildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.SetVersionTemplate(fmt.Sprintf("launcher %s (built %s, commit %s)\n",
		c.info.BuildVersion(), c.info.BuildDate(), c.info.BuildCommit()))

	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		c.serverCommand(),
		c.clientCommand(),
		c.listCommand(),
		c.statusCommand(),
		c.pingCommand(),
		c.execCommand(),
		c.syncCommand(),
		c.shutdownCommand(),
		c.watchCommand(),
		c.unwatchCommand(),
		c.watchesCommand(),
		c.notifyCommand(),
		c.monitorCommand(),
	)
	return root
}

// version is the launcher version reported to peers. A configured version
// wins over the build version.
func (c *cli) version(configured string) string {
	if configured != "" && configured != "dev" {
		return configured
	}
	if v := c.info.BuildVersion(); v != "N/A" && v != "" {
		return v
	}
	return configured
}

func (c *cli) printFailure(err error) {
	fmt.Fprintln(c.stderr, errorStyle.Render("error:"), err)
	if hint := app.Hint(err); hint != "" {
		fmt.Fprintln(c.stderr, hintStyle.Render("hint: "+hint))
	}
}
